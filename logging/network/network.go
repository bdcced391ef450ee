package network

import (
	"context"

	"pill-rush/server/logging"
)

const (
	// EventBroadcastFailed is emitted when a fan-out write to a subscriber fails.
	EventBroadcastFailed logging.EventType = "network.broadcast_failed"
	// EventMalformedPayload is emitted when a client message cannot be decoded.
	EventMalformedPayload logging.EventType = "network.malformed_payload"
)

// BroadcastFailedPayload carries the write error for a failed delivery.
type BroadcastFailedPayload struct {
	Error string `json:"error"`
}

// MalformedPayload carries the decode error for a discarded client message.
type MalformedPayload struct {
	Error string `json:"error"`
}

// BroadcastFailed publishes a delivery failure event.
func BroadcastFailed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload BroadcastFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBroadcastFailed,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// MalformedClientPayload publishes a decode failure event.
func MalformedClientPayload(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload MalformedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMalformedPayload,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
