package scoring

import (
	"context"

	"pill-rush/server/logging"
)

const (
	// EventPillCollected is emitted whenever a player picks up a pill.
	EventPillCollected logging.EventType = "scoring.pill_collected"
	// EventScoreRestored is emitted when a session token restores a score.
	EventScoreRestored logging.EventType = "scoring.score_restored"
	// EventTokenMinted is emitted when a disconnect mints a session token.
	EventTokenMinted logging.EventType = "scoring.token_minted"
	// EventTokenRejected is emitted when token redemption fails. The reason
	// stays server-side; the client is never told why restoration failed.
	EventTokenRejected logging.EventType = "scoring.token_rejected"
	// EventDailyReset is emitted when the daily leaderboard rolls over.
	EventDailyReset logging.EventType = "scoring.daily_reset"
	// EventPersistFailed is emitted when a document write fails.
	EventPersistFailed logging.EventType = "scoring.persist_failed"
)

// PillCollectedPayload describes a pickup.
type PillCollectedPayload struct {
	PillID   string `json:"pillId"`
	Points   int    `json:"points"`
	NewScore int    `json:"newScore"`
}

// ScoreRestoredPayload describes a successful token redemption.
type ScoreRestoredPayload struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// TokenMintedPayload describes a freshly minted token binding.
type TokenMintedPayload struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// TokenRejectedPayload describes why a redemption failed.
type TokenRejectedPayload struct {
	Reason string `json:"reason"`
}

// DailyResetPayload describes a daily rollover.
type DailyResetPayload struct {
	Day            string `json:"day"`
	ClearedEntries int    `json:"clearedEntries"`
}

// PersistFailedPayload names the document that failed to write.
type PersistFailedPayload struct {
	Document string `json:"document"`
	Error    string `json:"error"`
}

// PillCollected publishes a pickup event.
func PillCollected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PillCollectedPayload) {
	publish(ctx, pub, EventPillCollected, actor, logging.SeverityInfo, payload)
}

// ScoreRestored publishes a successful redemption event.
func ScoreRestored(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ScoreRestoredPayload) {
	publish(ctx, pub, EventScoreRestored, actor, logging.SeverityInfo, payload)
}

// TokenMinted publishes a token mint event.
func TokenMinted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload TokenMintedPayload) {
	publish(ctx, pub, EventTokenMinted, actor, logging.SeverityInfo, payload)
}

// TokenRejected publishes a failed redemption event.
func TokenRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload TokenRejectedPayload) {
	publish(ctx, pub, EventTokenRejected, actor, logging.SeverityWarn, payload)
}

// DailyReset publishes a rollover event.
func DailyReset(ctx context.Context, pub logging.Publisher, payload DailyResetPayload) {
	publish(ctx, pub, EventDailyReset, logging.EntityRef{Kind: logging.EntityKindWorld}, logging.SeverityInfo, payload)
}

// PersistFailed publishes a document write failure.
func PersistFailed(ctx context.Context, pub logging.Publisher, payload PersistFailedPayload) {
	publish(ctx, pub, EventPersistFailed, logging.EntityRef{Kind: logging.EntityKindWorld}, logging.SeverityError, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, actor logging.EntityRef, severity logging.Severity, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryScoring,
		Payload:  payload,
	})
}
