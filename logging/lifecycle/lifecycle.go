package lifecycle

import (
	"context"

	"pill-rush/server/logging"
)

const (
	// EventPlayerConnected is emitted when a new connection joins the arena.
	EventPlayerConnected logging.EventType = "lifecycle.player_connected"
	// EventPlayerDisconnected is emitted when a connection closes.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventUsernameSet is emitted when a player claims a display name.
	EventUsernameSet logging.EventType = "lifecycle.username_set"
	// EventPlayerRespawned is emitted when a delayed respawn completes.
	EventPlayerRespawned logging.EventType = "lifecycle.player_respawned"
)

// PlayerConnectedPayload captures spawn metadata for a new player.
type PlayerConnectedPayload struct {
	Name   string  `json:"name"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// PlayerDisconnectedPayload captures the player's final score.
type PlayerDisconnectedPayload struct {
	Name       string `json:"name"`
	FinalScore int    `json:"finalScore"`
}

// UsernameSetPayload records the sanitized name a player claimed.
type UsernameSetPayload struct {
	Name          string `json:"name"`
	ScoreRestored bool   `json:"scoreRestored"`
}

// PlayerRespawnedPayload records the respawn position.
type PlayerRespawnedPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerConnected publishes a connection event.
func PlayerConnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerConnectedPayload) {
	publish(ctx, pub, EventPlayerConnected, actor, payload)
}

// PlayerDisconnected publishes a disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerDisconnectedPayload) {
	publish(ctx, pub, EventPlayerDisconnected, actor, payload)
}

// UsernameSet publishes a username claim event.
func UsernameSet(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload UsernameSetPayload) {
	publish(ctx, pub, EventUsernameSet, actor, payload)
}

// PlayerRespawned publishes a respawn completion event.
func PlayerRespawned(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerRespawnedPayload) {
	publish(ctx, pub, EventPlayerRespawned, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
