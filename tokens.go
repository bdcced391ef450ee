package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pill-rush/server/logging"
	"pill-rush/server/logging/scoring"
)

// SessionToken binds a display name to a score so the score can survive a
// disconnect/reconnect cycle without trusting a client-supplied value.
// Strictly single-use; unusable once redeemed or older than the TTL.
type SessionToken struct {
	Token     string
	Name      string
	Score     int
	CreatedAt time.Time
}

func (h *Hub) mintTokenLocked(name string, score int, now time.Time) SessionToken {
	token := SessionToken{
		Token:     fmt.Sprintf("%x-%s", now.UnixMilli(), uuid.NewString()),
		Name:      name,
		Score:     score,
		CreatedAt: now,
	}
	h.tokens[token.Token] = token

	h.metrics.TokensMinted.Inc()
	scoring.TokenMinted(context.Background(), h.publisher, logging.EntityRef{Kind: logging.EntityKindPlayer}, scoring.TokenMintedPayload{
		Name:  name,
		Score: score,
	})
	return token
}

// redeemTokenLocked validates and consumes a session token. It succeeds only
// if the token exists, is younger than the TTL, and its bound name exactly
// matches the sanitized username. Any failure falls closed to a zero score;
// the reason is logged server-side and never revealed to the client.
func (h *Hub) redeemTokenLocked(token, name string, now time.Time, playerID string) (int, bool) {
	reject := func(reason string) (int, bool) {
		h.metrics.TokensRejected.Inc()
		scoring.TokenRejected(context.Background(), h.publisher, h.playerRef(playerID), scoring.TokenRejectedPayload{Reason: reason})
		return 0, false
	}

	entry, ok := h.tokens[token]
	if !ok {
		return reject("unknown")
	}
	if now.Sub(entry.CreatedAt) > h.tunables.TokenTTL {
		delete(h.tokens, token)
		return reject("expired")
	}
	if entry.Name != name {
		return reject("name mismatch")
	}

	delete(h.tokens, token)
	h.metrics.TokensRedeemed.Inc()
	scoring.ScoreRestored(context.Background(), h.publisher, h.playerRef(playerID), scoring.ScoreRestoredPayload{
		Name:  entry.Name,
		Score: entry.Score,
	})
	return entry.Score, true
}

// sweepTokens deletes every token older than the TTL and returns how many
// were removed. Expiry is also checked at redemption; the sweep only bounds
// growth of the store.
func (h *Hub) sweepTokens(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for key, entry := range h.tokens {
		if now.Sub(entry.CreatedAt) > h.tunables.TokenTTL {
			delete(h.tokens, key)
			removed++
		}
	}
	return removed
}

// RunTokenSweep expires stale session tokens on an hourly cadence.
func (h *Hub) RunTokenSweep(stop <-chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if removed := h.sweepTokens(now); removed > 0 {
				h.logger.Printf("expired %d session tokens", removed)
			}
		}
	}
}
