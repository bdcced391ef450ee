// Package net assembles the server's HTTP surface: the websocket upgrade
// endpoint and the prometheus scrape endpoint. Static assets, health
// probes, and CORS belong to the fronting infrastructure, not this process.
package net

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	server "pill-rush/server"
	"pill-rush/server/internal/metrics"
	"pill-rush/server/internal/net/ws"
	"pill-rush/server/logging"
)

type HTTPHandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
	Metrics   *metrics.Set
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) http.Handler {
	mux := http.NewServeMux()

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{
		Logger:    cfg.Logger,
		Publisher: cfg.Publisher,
	})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.Metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload := struct {
			PlayerCount int `json:"playerCount"`
			PillCount   int `json:"pillCount"`
			Players     any `json:"players"`
		}{
			PlayerCount: hub.PlayerCount(),
			PillCount:   hub.PillCount(),
			Players:     hub.DiagnosticsSnapshot(),
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger(cfg).Printf("failed to encode diagnostics: %v", err)
		}
	})

	return mux
}

func logger(cfg HTTPHandlerConfig) *log.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return log.Default()
}
