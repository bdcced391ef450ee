// Package metrics exposes the arena's prometheus collectors on a private
// registry so multiple hubs can coexist in one process (tests included).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Set struct {
	Registry *prometheus.Registry

	ConnectedPlayers  prometheus.Gauge
	BroadcastsTotal   prometheus.Counter
	BroadcastFailures prometheus.Counter
	PillsSpawned      prometheus.Counter
	PillsCollected    prometheus.Counter
	TokensMinted      prometheus.Counter
	TokensRedeemed    prometheus.Counter
	TokensRejected    prometheus.Counter
	DailyResets       prometheus.Counter
}

func New() *Set {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Set{
		Registry: registry,
		ConnectedPlayers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arena_connected_players",
			Help: "Number of currently connected players.",
		}),
		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_broadcast_messages_total",
			Help: "Messages written to subscribers across all fan-outs.",
		}),
		BroadcastFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_broadcast_failures_total",
			Help: "Subscriber writes that failed and forced a disconnect.",
		}),
		PillsSpawned: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_pills_spawned_total",
			Help: "Pills added to the pool by the spawner.",
		}),
		PillsCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_pills_collected_total",
			Help: "Pills removed from the pool by player pickups.",
		}),
		TokensMinted: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_session_tokens_minted_total",
			Help: "Session tokens minted for disconnecting players.",
		}),
		TokensRedeemed: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_session_tokens_redeemed_total",
			Help: "Session tokens successfully redeemed.",
		}),
		TokensRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_session_tokens_rejected_total",
			Help: "Session token redemptions that failed closed.",
		}),
		DailyResets: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_daily_leaderboard_resets_total",
			Help: "Daily leaderboard midnight rollovers performed.",
		}),
	}
}
