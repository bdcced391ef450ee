package server

import (
	"context"
	"fmt"
	"math"
	"time"

	"pill-rush/server/logging/scoring"
)

// Pill is a collectible worth a fixed point value, removed on pickup.
type Pill struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Points    int     `json:"points"`
	SpawnedAt int64   `json:"spawnedAt"`
}

// spawnPill adds one pill at a random interior point unless the pool is at
// capacity. It reports whether the pool is full after the attempt, which
// flips the spawner from ramp-up to steady state.
func (h *Hub) spawnPill(now time.Time) bool {
	h.mu.Lock()
	if len(h.pills) >= h.tunables.PillCapacity {
		h.mu.Unlock()
		return true
	}

	id := fmt.Sprintf("pill-%d", h.nextPillID.Add(1))
	x, y := h.randomSpawnLocked()
	pill := Pill{
		ID:        id,
		X:         x,
		Y:         y,
		Points:    pillPointValue,
		SpawnedAt: now.UnixMilli(),
	}
	h.pills[id] = pill
	full := len(h.pills) >= h.tunables.PillCapacity

	msgs := []outbound{
		broadcast(pillSpawnedMessage{Type: "pillSpawned", Pill: pill, Animate: true}),
	}
	h.mu.Unlock()

	h.metrics.PillsSpawned.Inc()
	h.deliver(msgs)
	return full
}

// PillCount returns the current pool size.
func (h *Hub) PillCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pills)
}

// RunSpawner drives pill spawning: one pill per ramp interval until the pool
// first reaches capacity, so startup does not burst thirty spawn events at
// once, then one attempt per steady-state interval for the life of the
// process.
func (h *Hub) RunSpawner(stop <-chan struct{}) {
	tun := h.currentTunables()

	ramp := time.NewTicker(tun.SpawnRamp)
	rampDone := false
	for !rampDone {
		select {
		case <-stop:
			ramp.Stop()
			return
		case now := <-ramp.C:
			rampDone = h.spawnPill(now)
		}
	}
	ramp.Stop()

	interval := h.currentTunables().SpawnInterval
	steady := time.NewTicker(interval)
	defer steady.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-steady.C:
			h.spawnPill(now)
			if next := h.currentTunables().SpawnInterval; next != interval {
				interval = next
				steady.Reset(interval)
			}
		}
	}
}

// collectPillLocked scans the pool for a pill overlapping the player's new
// position. The first hit is collected and the scan stops: simultaneous
// overlap of several pills yields exactly one pickup per move.
func (h *Hub) collectPillLocked(state *playerState, now time.Time) []outbound {
	for id, pill := range h.pills {
		dx := pill.X - state.X
		dy := pill.Y - state.Y
		if math.Hypot(dx, dy) > playerHalf+pillRadius {
			continue
		}

		delete(h.pills, id)
		state.Score += pill.Points
		h.upsertScoreLocked(state, now)

		msgs := []outbound{
			broadcast(pillCollectedMessage{
				Type:     "pillCollected",
				PillID:   id,
				PlayerID: state.ID,
				Points:   pill.Points,
				NewScore: state.Score,
			}),
		}
		msgs = append(msgs, h.reportDailyLocked(state.Name, state.Score, now)...)
		msgs = append(msgs, h.reportAllTimeLocked(state.Name, state.Score, now)...)

		h.metrics.PillsCollected.Inc()
		scoring.PillCollected(context.Background(), h.publisher, h.playerRef(state.ID), scoring.PillCollectedPayload{
			PillID:   id,
			Points:   pill.Points,
			NewScore: state.Score,
		})
		return msgs
	}
	return nil
}
