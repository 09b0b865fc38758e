package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"go_ingest_backend/bootstrap"
	"go_ingest_backend/config"
	"go_ingest_backend/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; deployments set the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Logger.Warn("could not load .env file", "error", err)
	}
	logging.Init()
	cfg := config.LoadConfig()

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		logging.Logger.Error("fail bootstrap", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logging.Logger.Error("fail starting services", "error", err)
		_ = app.Shutdown(nil)
		return 1
	}

	server := app.NewServer()
	listenErr := make(chan error, 1)
	go func() {
		logging.Logger.Info("Server running", "port", cfg.HttpPort, "roles", cfg.Roles)
		listenErr <- server.Listen(":" + cfg.HttpPort)
	}()

	code := 0
	select {
	case <-ctx.Done():
		logging.Logger.Info("shutdown signal received")
	case err := <-listenErr:
		logging.Logger.Error("server stopped", "error", err)
		code = 1
	}

	if err := app.Shutdown(server.ShutdownWithTimeout); err != nil {
		logging.Logger.Error("shutdown finished with errors", "error", err)
		code = 1
	}
	return code
}
