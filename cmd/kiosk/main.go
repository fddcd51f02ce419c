package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/camkiosk/camkiosk/internal/config"
	"github.com/camkiosk/camkiosk/internal/display"
	"github.com/camkiosk/camkiosk/internal/domain"
	"github.com/camkiosk/camkiosk/internal/filter"
	"github.com/camkiosk/camkiosk/internal/inhibit"
	"github.com/camkiosk/camkiosk/internal/playback"
	"github.com/camkiosk/camkiosk/internal/source"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "camkiosk",
		Usage: "full-screen live traffic camera viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"CAMKIOSK_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "windowed",
				Usage: "run in a window instead of fullscreen (debugging)",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.String("config"), c.Bool("windowed"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string, windowed bool) error {
	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var surface *display.EbitenSurface
	app := fx.New(
		AppOptions(cfgPath, windowed),
		fx.Populate(&surface),
	)
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	// The render loop must own the main goroutine; everything else runs
	// in lifecycle-managed goroutines. Run returns on signal or when the
	// window is closed.
	runErr := surface.Run(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return err
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

// AppOptions assembles the dependency graph for the kiosk.
func AppOptions(cfgPath string, windowed bool) fx.Option {
	return fx.Options(
		// Logger configuration
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),

		// Provide dependencies
		fx.Provide(
			newLogger,
			func(logger *zap.Logger) (*config.Config, error) {
				return config.Load(cfgPath, logger)
			},
			newSource,
			newFilter,
			func(cfg *config.Config, logger *zap.Logger) (*display.EbitenSurface, error) {
				return display.New(display.Options{
					Width:    cfg.DisplayWidth,
					Height:   cfg.DisplayHeight,
					Windowed: windowed,
				}, logger)
			},
			func(s *display.EbitenSurface) domain.Surface { return s },
			inhibit.NewInhibitor,
			playback.NewLoop,
		),

		// Lifecycle hooks
		fx.Invoke(registerHooks),
	)
}

// newLogger creates a new zap logger instance
func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func newSource(cfg *config.Config, logger *zap.Logger) domain.Source {
	return source.New(source.Options{
		URL:              cfg.CameraURL,
		Mode:             cfg.SourceMode,
		SnapshotInterval: cfg.SnapshotInterval,
		StallTimeout:     cfg.StallTimeout,
	}, logger)
}

func newFilter(cfg *config.Config, logger *zap.Logger) (domain.Filter, error) {
	return filter.New(filter.Options{
		Name:            cfg.Filter,
		PosterizeLevels: cfg.PosterizeLevels,
	}, logger)
}

// registerHooks sets up application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	loop *playback.Loop,
	inh *inhibit.Inhibitor,
	surface *display.EbitenSurface,
	src domain.Source,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Camera kiosk starting")
			if err := inh.Start(ctx); err != nil {
				return err
			}
			return loop.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			if err := loop.Stop(ctx); err != nil {
				logger.Warn("Playback loop did not stop cleanly", zap.Error(err))
			}
			if err := inh.Stop(ctx); err != nil {
				logger.Warn("Releasing screensaver inhibition failed", zap.Error(err))
			}
			if err := surface.Close(); err != nil {
				logger.Warn("Closing display surface failed", zap.Error(err))
			}
			// The source goes down last so an in-flight pull can finish.
			return src.Close()
		},
	})
}
