package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "meter_reading/docs"
	"meter_reading/internal/capture"
	"meter_reading/internal/config"
	"meter_reading/internal/consensus"
	"meter_reading/internal/extractor"
	"meter_reading/internal/handlers"
	"meter_reading/internal/lease"
	"meter_reading/internal/logger"
	"meter_reading/internal/repository"
	"meter_reading/internal/repository/db"
	"meter_reading/internal/server"
	"meter_reading/internal/service"
	"meter_reading/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// @title                       Meter Reading API
// @version                     1.0
// @description                 Camera installation validation and meter reading consensus.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// load configs/config.yml + METER_* env
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.Get(cfg.Log.Level, cfg.Log.Format)

	// open DB
	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	snapshots, err := capture.NewStore(cfg.Capture.Dir)
	if err != nil {
		log.Fatalw("failed to init snapshot store", "dir", cfg.Capture.Dir, "err", err)
	}
	leases, err := lease.NewManager(cfg.Lease.Dir, log.Named("lease"))
	if err != nil {
		log.Fatalw("failed to init session leases", "dir", cfg.Lease.Dir, "err", err)
	}
	registry := extractor.FromConfig(cfg.Extractors, log.Named("extractor"))
	engine := consensus.NewEngine(registry, cfg.Extractors.CallTimeout, log.Named("consensus"))

	services, err := service.NewService(service.Deps{
		Repos:     repos,
		Config:    cfg,
		Resolver:  engine,
		Leases:    leases,
		Snapshots: snapshots,
		Log:       log,
	})
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, log.Named("http"),
		handlers.WithDeviceKey(cfg.Heartbeat.APIKey),
		handlers.WithAllowedOrigins(cfg.WebSocket.AllowedOrigins),
	)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// mark silent cameras offline
	go services.Sweeper.Run(ctx, cfg.Connectivity.SweepInterval)

	listener := startTelemetry(ctx, cfg, snapshots, services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, listener, log)
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening sqlite", "path", cfg.DB.Path)
	return db.InitDB(cfg.DB.Path)
}

// startTelemetry connects the MQTT listener when enabled. A broker that is
// down at boot is logged, not fatal: heartbeats still arrive over HTTP.
func startTelemetry(ctx context.Context, cfg *config.Config, snapshots *capture.Store, services *service.Service, log *logger.Logger) *telemetry.Listener {
	if !cfg.MQTT.Enabled {
		return nil
	}
	l := telemetry.NewListener(cfg.MQTT, snapshots, services.Connectivity, log.Named("mqtt"))
	if err := l.Start(ctx); err != nil {
		log.Errorw("mqtt listener not started", "broker", cfg.MQTT.Broker, "err", err)
		return nil
	}
	return l
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, cfg *config.Config, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "port", cfg.Port)
		err := srv.Run(cfg.Port, handler.InitRoutes(), server.WithWriteTimeout(cfg.WriteTimeout))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, listener *telemetry.Listener, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()
	if listener != nil {
		listener.Stop()
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
