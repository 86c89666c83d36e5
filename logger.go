package main

import (
	"go.uber.org/zap"
)

func NewLogger(opts options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if opts.logFile != "" {
		cfg.OutputPaths = []string{opts.logFile}
		cfg.ErrorOutputPaths = []string{opts.logFile}
	}
	return cfg.Build()
}
