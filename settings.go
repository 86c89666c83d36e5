package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Settings is the raw record a host supplies. Source names the display sink;
// an empty source means nothing is rendered.
type Settings struct {
	Source        string `yaml:"source" json:"source"`
	Increment     int    `yaml:"increment" json:"increment"`
	IncrementUnit string `yaml:"increment_unit" json:"increment_unit"`
	TimerFormat   string `yaml:"timer_format" json:"timer_format"`
	Duration      string `yaml:"duration" json:"duration"`
}

// MaxIncrement bounds the amount a single postpone adds, in increment units.
const MaxIncrement = 60

func DefaultSettings() Settings {
	return Settings{
		Increment:     10,
		IncrementUnit: Minutes.String(),
		TimerFormat:   SecondsPrecision.String(),
		Duration:      "03:00",
	}
}

// TimerConfig converts the record. Invalid fields fall back to their
// defaults and are logged; the duration is parsed by Configure.
func (s Settings) TimerConfig(logger *zap.Logger) TimerConfig {
	cfg := DefaultTimerConfig()

	switch {
	case s.Increment <= 0:
		logger.Warn("Increment must be positive, using default",
			zap.Int("increment", s.Increment), zap.Int("default", cfg.Increment))
	case s.Increment > MaxIncrement:
		logger.Warn("Increment too large, clamping",
			zap.Int("increment", s.Increment), zap.Int("max", MaxIncrement))
		cfg.Increment = MaxIncrement
	default:
		cfg.Increment = s.Increment
	}

	if unit, err := ParseIncrementUnit(s.IncrementUnit); err != nil {
		logger.Warn("Using default increment unit", zap.Error(err), zap.Stringer("default", cfg.IncrementUnit))
	} else {
		cfg.IncrementUnit = unit
	}

	if g, err := ParseGranularity(s.TimerFormat); err != nil {
		logger.Warn("Using default timer format", zap.Error(err), zap.Stringer("default", cfg.Granularity))
	} else {
		cfg.Granularity = g
	}

	return cfg
}

// SettingsSource supplies the current settings record.
type SettingsSource interface {
	Load() (Settings, error)
}

// fileSettings reads settings from a YAML file. Keys missing from the file
// keep their defaults.
type fileSettings struct {
	path string
}

func NewFileSettings(path string) *fileSettings {
	return &fileSettings{path: path}
}

func (f *fileSettings) Load() (Settings, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", f.path, err)
	}
	return s, nil
}

// staticSettings always returns the same record, so it is never watched.
type staticSettings Settings

func (s staticSettings) Load() (Settings, error) {
	return Settings(s), nil
}

func (staticSettings) static() {}

func isStatic(src SettingsSource) bool {
	_, ok := src.(interface{ static() })
	return ok
}
