package bootstrap

import (
	"context"
	"errors"
	"time"

	"go_ingest_backend/config"
	"go_ingest_backend/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Cfg            *config.Config
	Infrastructure *Infrastructure
	Repositories   *Repositories
	Services       *Services
	Handlers       *Handlers
}

func NewApp(cfg *config.Config) (*App, error) {
	app := &App{Cfg: cfg}
	infra, err := NewInfrastructure(cfg)
	if err != nil {
		logging.Logger.Error("fail NewInfrastructure", "error", err)
		return nil, err
	}
	app.Infrastructure = infra

	// repos
	app.Repositories = NewRepositories(cfg, infra)

	// services
	app.Services = NewServices(cfg, app.Repositories, infra)

	app.Handlers = NewHandlers(cfg, app.Services)
	return app, nil
}

// Start subscribes the roles that consume the bus.
func (a *App) Start(ctx context.Context) error {
	if a.Services.Gateway != nil {
		if err := a.Services.Gateway.Start(ctx); err != nil {
			return err
		}
	}
	if a.Cfg.HasRole(config.RoleProcessing) && a.Services.ProcessingService != nil {
		if err := a.Services.ProcessingService.Start(ctx); err != nil {
			return err
		}
	}
	logging.Logger.Info("service roles started", "roles", a.Cfg.Roles)
	return nil
}

// Shutdown ends client streams, stops HTTP, drains the worker and closes infra.
func (a *App) Shutdown(stopHTTP func(time.Duration) error) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Services != nil && a.Services.Gateway != nil {
		errs = append(errs, a.Services.Gateway.Stop())
	}
	if stopHTTP != nil {
		errs = append(errs, stopHTTP(shutdownTimeout))
	}
	if a.Services != nil && a.Services.ProcessingService != nil {
		errs = append(errs, a.Services.ProcessingService.Stop())
	}
	if a.Infrastructure != nil {
		errs = append(errs, a.Infrastructure.Shutdown())
	}
	return errors.Join(errs...)
}
