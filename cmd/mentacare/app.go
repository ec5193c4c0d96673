package main

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/Victorkib/mentacare-backend-admin/internal/config"
	"github.com/Victorkib/mentacare-backend-admin/internal/logging"
	"github.com/Victorkib/mentacare-backend-admin/pkg/di"
)

// app is the loaded configuration, logger and container shared by the
// subcommands.
type app struct {
	cfg       *config.Config
	log       logr.Logger
	container *di.Container
	sync      func()
}

func newApp(ctx context.Context, logLevel string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, sync, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	log = log.WithName("mentacare")
	log.V(1).Info("configuration loaded", "config", cfg.String())

	c, err := di.NewContainer(ctx, cfg, log)
	if err != nil {
		sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, container: c, sync: sync}, nil
}

func (a *app) Close() {
	if err := a.container.Close(); err != nil {
		a.log.Error(err, "close container")
	}
	a.sync()
}
