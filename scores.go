package server

import (
	"context"
	"fmt"
	"time"

	"pill-rush/server/logging/scoring"
)

func scoreKey(name, playerID string) string {
	return fmt.Sprintf("%s_%s", name, playerID)
}

// upsertScoreLocked supersedes the ledger entry for this player and persists
// the ledger inline. Entries are never pruned.
func (h *Hub) upsertScoreLocked(state *playerState, now time.Time) {
	h.scores[scoreKey(state.Name, state.ID)] = ScoreRecord{
		Name:     state.Name,
		Score:    state.Score,
		LastSeen: now,
	}
	h.persistScoresLocked(now)
}

func (h *Hub) persistScoresLocked(now time.Time) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveScores(h.scores); err != nil {
		h.logger.Printf("failed to persist score ledger: %v", err)
		scoring.PersistFailed(context.Background(), h.publisher, scoring.PersistFailedPayload{
			Document: "scores",
			Error:    err.Error(),
		})
	}
}

// flushScores opportunistically re-persists the ledger, skipping the write
// entirely when the ledger is empty.
func (h *Hub) flushScores(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.scores) == 0 {
		return
	}
	h.persistScoresLocked(now)
}

// RunScoreFlush re-persists the score ledger periodically as a safety net
// behind the inline writes.
func (h *Hub) RunScoreFlush(stop <-chan struct{}) {
	ticker := time.NewTicker(h.currentTunables().FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			h.flushScores(now)
		}
	}
}
