package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/brutella/hap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type options struct {
	port         int
	settingsPath string
	display      string
	outputDir    string
	homekit      bool
	name         string
	storeDir     string
	pin          string
	logFile      string
	debug        bool
}

func defaultOptions() options {
	return options{
		port:      30001,
		display:   "file",
		outputDir: ".",
		homekit:   true,
		name:      "timer",
		storeDir:  "./db",
	}
}

func addFlags(fs *pflag.FlagSet, opts *options) {
	fs.IntVar(&opts.port, "port", opts.port, "HTTP server port")
	fs.StringVar(&opts.settingsPath, "settings", opts.settingsPath, "YAML settings file, watched for changes")
	fs.StringVar(&opts.display, "display", opts.display, "Display sink: file, terminal or none")
	fs.StringVar(&opts.outputDir, "output-dir", opts.outputDir, "Directory for the file display sink")
	fs.BoolVar(&opts.homekit, "homekit", opts.homekit, "Publish a HomeKit switch that turns on when the countdown ends")
	fs.StringVar(&opts.name, "name", opts.name, "HomeKit accessory name")
	fs.StringVar(&opts.storeDir, "store", opts.storeDir, "Directory for HomeKit pairing data")
	fs.StringVar(&opts.pin, "pin", opts.pin, "HomeKit setup code")
	fs.StringVar(&opts.logFile, "log-file", opts.logFile, "Log to this file instead of stderr")
	fs.BoolVar(&opts.debug, "debug", opts.debug, "Human readable debug logging")
}

func newRootCmd() *cobra.Command {
	opts := defaultOptions()
	cmd := &cobra.Command{
		Use:          "stagetimer",
		Short:        "Countdown timer that renders to text displays and HomeKit",
		Args:         cobra.NoArgs,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	addFlags(cmd.Flags(), &opts)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	app := fx.New(appOptions(opts))

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	return app.Stop(stopCtx)
}

func appOptions(opts options) fx.Option {
	return fx.Options(
		fx.Supply(opts),
		fx.Provide(
			NewLogger,
			newClock,
			newScheduler,
			newDisplaySink,
			newSettingsSource,
			newAppController,
			newAppSwitch,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(registerController, registerServer),
	)
}

func newClock() Clock {
	return systemClock{}
}

func newScheduler(lc fx.Lifecycle, logger *zap.Logger) Scheduler {
	s := NewTickerScheduler(logger.Named("scheduler"))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
	return s
}

func newDisplaySink(opts options, logger *zap.Logger) (DisplaySink, error) {
	switch opts.display {
	case "file":
		if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		return NewFileSink(opts.outputDir, logger.Named("display")), nil
	case "terminal":
		return NewTerminalSink(os.Stdout), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown display %q", opts.display)
	}
}

func newSettingsSource(opts options) SettingsSource {
	if opts.settingsPath == "" {
		return staticSettings(DefaultSettings())
	}
	return NewFileSettings(opts.settingsPath)
}

func newAppController(clock Clock, scheduler Scheduler, sink DisplaySink, settings SettingsSource, logger *zap.Logger) *Controller {
	return NewController(clock, scheduler, sink, settings, logger.Named("controller"))
}

// newAppSwitch returns nil when HomeKit is disabled
func newAppSwitch(opts options, logger *zap.Logger) *homekitSwitch {
	if !opts.homekit {
		return nil
	}
	return newHomekitSwitch(opts.name, logger.Named("homekit"))
}

func registerController(lc fx.Lifecycle, c *Controller, hk *homekitSwitch, logger *zap.Logger) {
	if hk != nil {
		c.Observe(hk)
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// a bad settings file is not fatal, valid settings can be PUT later
			if err := c.Init(); err != nil {
				logger.Info("Settings watch not armed", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			c.OnUnload()
			return nil
		},
	})
}

func registerServer(lc fx.Lifecycle, opts options, c *Controller, hk *homekitSwitch, logger *zap.Logger) error {
	logger = logger.Named("http")
	addr := fmt.Sprintf(":%d", opts.port)

	var serve func(ctx context.Context) error
	if hk != nil {
		// Store the pairing data in the store directory
		fs := hap.NewFsStore(opts.storeDir)
		s, err := hap.NewServer(fs, hk.acc.A)
		if err != nil {
			return fmt.Errorf("create HAP server: %w", err)
		}
		s.Addr = addr
		if opts.pin != "" {
			s.Pin = opts.pin
		}
		for _, r := range routes(c, logger) {
			s.ServeMux().Handle(r.path, r.handler)
		}
		serve = s.ListenAndServe
	} else {
		mux := http.NewServeMux()
		for _, r := range routes(c, logger) {
			mux.Handle(r.path, r.handler)
		}
		serve = plainServer(&http.Server{Addr: addr, Handler: mux})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				logger.Info("Starting stagetimer", zap.String("addr", addr), zap.Bool("homekit", hk != nil))
				if err := serve(ctx); err != nil {
					logger.Error("Server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("Stopping stagetimer")
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
	return nil
}

// plainServer adapts an http.Server to the context-driven ListenAndServe
// the HAP server uses
func plainServer(srv *http.Server) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			srv.Shutdown(context.Background())
		}()
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
