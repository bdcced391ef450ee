// Package app wires the process together: configuration, logging, the
// document store, the hub with its background timers, and the HTTP server,
// plus the graceful-shutdown contract of flushing every document before
// exit.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "pill-rush/server"
	"pill-rush/server/internal/config"
	"pill-rush/server/internal/metrics"
	servernet "pill-rush/server/internal/net"
	"pill-rush/server/internal/store"
	"pill-rush/server/logging"
	loggingSinks "pill-rush/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	ConfigPath string
	Logger     *log.Logger
}

func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = os.Getenv("PILLRUSH_CONFIG")
	}
	if configPath == "" {
		configPath = "config.json"
	}

	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	logConfig := logging.DefaultConfig()
	sinks := map[string]logging.Sink{
		"console": loggingSinks.NewConsole(os.Stdout),
	}
	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, logger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	documents, err := store.Open(fileCfg.DataDir, logger)
	if err != nil {
		return err
	}

	metricSet := metrics.New()
	hub := server.NewHubWithConfig(server.HubConfig{
		Tunables:  toTunables(fileCfg.Game),
		Store:     documents,
		Publisher: router,
		Metrics:   metricSet,
		Logger:    logger,
	})

	manager, err := config.NewManager(configPath, func(updated config.Config) {
		hub.ApplyTunables(toTunables(updated.Game))
		logger.Printf("config reloaded from %s", configPath)
	})
	if err != nil {
		return err
	}
	if err := manager.Watch(ctx); err != nil {
		logger.Printf("config watch disabled: %v", err)
	}
	defer manager.StopWatch()

	stop := make(chan struct{})
	go hub.RunSpawner(stop)
	go hub.RunDailyClock(stop)
	go hub.RunScoreFlush(stop)
	go hub.RunTokenSweep(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:    logger,
		Publisher: router,
		Metrics:   metricSet,
	})
	srv := &http.Server{Addr: fileCfg.ListenAddr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		close(stop)
		hub.Shutdown()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Printf("shutting down")
	close(stop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}

	// The documents must hit disk before the process exits.
	hub.Shutdown()
	return nil
}

func toTunables(t config.Tunables) server.Tunables {
	return server.Tunables{
		PillCapacity:  t.PillCapacity,
		SpawnRamp:     t.SpawnRamp(),
		SpawnInterval: t.SpawnInterval(),
		MoveInterval:  t.MoveInterval(),
		RespawnDelay:  t.RespawnDelay(),
		TokenTTL:      t.TokenTTL(),
		FlushInterval: t.FlushInterval(),
	}
}
