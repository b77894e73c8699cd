package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/colispro/delivery_tracker/internal/platform/config"
	"github.com/colispro/delivery_tracker/internal/platform/database"
	"github.com/colispro/delivery_tracker/internal/platform/events"
	"github.com/colispro/delivery_tracker/internal/platform/logger"
	"github.com/colispro/delivery_tracker/internal/tracker_service/app"
	"github.com/colispro/delivery_tracker/internal/tracker_service/domain"
	"github.com/colispro/delivery_tracker/internal/tracker_service/inbound"
	"github.com/colispro/delivery_tracker/internal/tracker_service/repository/memory"
	"github.com/colispro/delivery_tracker/internal/tracker_service/repository/postgres"
	httptransport "github.com/colispro/delivery_tracker/internal/tracker_service/transport/http"
)

const (
	serviceName     = "tracker_service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Starting service...",
		"port", cfg.ServerPort,
		"postgres_dsn_present", cfg.PostgresDSN != "",
		"amqp_enabled", cfg.AMQPUrl != "",
	)

	// Store: PostgreSQL in any real deployment; the in-memory store keeps
	// local development working without a database, like the original's
	// SQLite toggle.
	var store domain.ClientStore
	if cfg.PostgresDSN != "" {
		dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
		if err != nil {
			appLogger.Error("Failed to initialize database connection pool", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()
		store = postgres.NewPgClientStore(dbPool, appLogger)
		appLogger.Info("Database connection pool initialized")
	} else {
		store = memory.NewClientStore()
		appLogger.Warn("No PostgreSQL DSN configured; using volatile in-memory store")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPUrl != "" {
		publisher, err = events.NewRabbitPublisher(cfg.AMQPUrl, cfg.AMQPExchange, appLogger)
		if err != nil {
			appLogger.Error("Failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		appLogger.Info("RabbitMQ publisher initialized", "exchange", cfg.AMQPExchange)
	}

	trackerService := app.NewTrackerService(
		store,
		publisher,
		appLogger.With("component", "tracker_app"),
		cfg.DefaultLatitude,
		cfg.DefaultLongitude,
	)

	handler := httptransport.NewTrackerHandler(
		trackerService,
		inbound.NewNormalizer(cfg.ForwarderFallbackPhone),
		appLogger,
		validator.New(),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           httptransport.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server listening", "addr", srv.Addr)
		serverErrCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("Received termination signal", "signal", sig.String())
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed", "error", err)
		}
	}

	appLogger.Info("Attempting graceful shutdown...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Graceful shutdown failed", "error", err)
	}
	appLogger.Info("Service stopped")
}
