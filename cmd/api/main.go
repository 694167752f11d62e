package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"face-auth-backend/internal/bootstrap"
	"face-auth-backend/internal/shared/config"
	"face-auth-backend/internal/shared/server"
	"face-auth-backend/internal/shared/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	defer telemetry.Sync()
	logger := telemetry.L()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		os.Exit(1)
	}

	app, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		logger.Error("bootstrap", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting api server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
	if err := serve(srv, shutdownTimeout, logger, nil, nil); err != nil {
		logger.Error("server error", zap.Error(err))
		app.Close()
		os.Exit(1)
	}
	logger.Info("server stopped")
}
