package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/runger/ridebook/internal/booking"
	"github.com/runger/ridebook/internal/config"
	"github.com/runger/ridebook/internal/consistency"
	blog "github.com/runger/ridebook/internal/log"
	"github.com/runger/ridebook/internal/metrics"
	"github.com/runger/ridebook/internal/storage"
)

// app bundles everything a command needs for one invocation.
type app struct {
	cfg      *config.Config
	paths    *config.Paths
	logger   *slog.Logger
	logFile  *os.File
	store    *storage.SQLiteStore
	bookings *booking.Service
	checker  *consistency.Checker
}

// cmdContext returns the command's context, or Background when the command
// is invoked directly rather than through Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads the config file named by --config (or the XDG default)
// and applies --db on top.
func loadConfig() (*config.Config, *config.Paths, error) {
	paths := config.DefaultPaths()
	cfgPath := flagConfigPath
	if cfgPath == "" {
		cfgPath = paths.ConfigFile()
	}

	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagDBPath != "" {
		cfg.Database.Path = flagDBPath
	}
	return cfg, paths, nil
}

// openApp loads config, builds the logger and opens the store. The caller
// must Close the app.
func openApp(ctx context.Context) (*app, error) {
	cfg, paths, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DatabasePath(paths)
	store, err := storage.Open(ctx, storage.Options{
		Path:          dbPath,
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
		Logger:        logger,
	})
	if err != nil {
		blog.LogSQLiteError(logger, "open", err)
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}

	svc := booking.NewService(store, booking.Options{
		Lifecycle: cfg.BookingLifecycle(),
		Metrics:   metrics.Global,
		Logger:    logger,
	})
	checker := consistency.NewChecker(store.DB(), consistency.Options{
		Metrics: metrics.Global,
		Logger:  logger,
	})

	return &app{
		cfg:      cfg,
		paths:    paths,
		logger:   logger,
		logFile:  logFile,
		store:    store,
		bookings: svc,
		checker:  checker,
	}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	return err
}

func newLogger(cfg *config.Config) (*slog.Logger, *os.File, error) {
	level, err := blog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Log.File == "" {
		return blog.New(&blog.Config{Output: os.Stderr, Level: level}), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return blog.New(&blog.Config{Output: f, Level: level}), f, nil
}
