package server

import (
	"context"
	"sort"
	"time"

	"pill-rush/server/internal/store"
	"pill-rush/server/logging/scoring"
)

// dailyBoard is the name-keyed daily leaderboard. Keying by display name is
// what lets a score survive a reconnect within the same day; two players
// sharing a name overwrite each other's entry.
type dailyBoard struct {
	entries    map[string]DailyEntry
	currentDay string
	lastReset  time.Time
	nextReset  time.Time
	dirty      bool
}

func (d *dailyBoard) remainingMillis(now time.Time) int64 {
	remaining := d.nextReset.Sub(now).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// nextMidnight returns the next local midnight after now.
func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}

// loadDailyBoard restores the persisted daily document. A stale day
// identifier means the process slept through at least one midnight: the
// board resets during load, before any snapshot is served.
func loadDailyBoard(s *store.Store, now time.Time) dailyBoard {
	doc := s.LoadDaily()
	today := now.Format(dayFormat)

	board := dailyBoard{
		entries:    doc.Entries,
		currentDay: doc.CurrentDay,
		lastReset:  doc.LastReset,
		nextReset:  nextMidnight(now),
	}
	if board.currentDay != today {
		board.entries = make(map[string]DailyEntry)
		board.currentDay = today
		board.lastReset = now
		board.dirty = true
	}
	return board
}

// reportDailyLocked unconditionally overwrites the name's daily entry, even
// when the reported score is lower, persists the document, and stages a
// top-10 broadcast.
func (h *Hub) reportDailyLocked(name string, score int, now time.Time) []outbound {
	h.daily.entries[name] = DailyEntry{Name: name, Score: score, UpdatedAt: now}
	h.persistDailyLocked(now)

	return []outbound{
		broadcast(dailyLeaderboardUpdateMessage{
			Type: "dailyLeaderboardUpdate",
			Top:  h.dailyTopLocked(),
			Day:  h.daily.currentDay,
		}),
	}
}

// reportAllTimeLocked applies update-if-greater semantics per name, keeps
// the list sorted descending and capped, and stages a broadcast whenever an
// insert or update happened.
func (h *Hub) reportAllTimeLocked(name string, score int, now time.Time) []outbound {
	updated := false
	found := false
	for i := range h.allTime {
		if h.allTime[i].Name != name {
			continue
		}
		found = true
		if score > h.allTime[i].Score {
			h.allTime[i] = AllTimeEntry{Name: name, Score: score, Timestamp: now, Date: now.Format(dayFormat)}
			updated = true
		}
		break
	}
	if !found {
		h.allTime = append(h.allTime, AllTimeEntry{Name: name, Score: score, Timestamp: now, Date: now.Format(dayFormat)})
		updated = true
	}
	if !updated {
		return nil
	}

	sort.SliceStable(h.allTime, func(i, j int) bool {
		return h.allTime[i].Score > h.allTime[j].Score
	})
	if len(h.allTime) > allTimeTopSize {
		h.allTime = h.allTime[:allTimeTopSize]
	}
	h.persistAllTimeLocked(now)

	top := make([]AllTimeEntry, len(h.allTime))
	copy(top, h.allTime)
	return []outbound{
		broadcast(allTimeLeaderboardUpdateMessage{Type: "allTimeLeaderboardUpdate", Top: top}),
	}
}

// dailyTopLocked returns the top entries sorted descending by score, ties
// broken by name for a stable ordering.
func (h *Hub) dailyTopLocked() []DailyEntry {
	top := make([]DailyEntry, 0, len(h.daily.entries))
	for _, entry := range h.daily.entries {
		top = append(top, entry)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score != top[j].Score {
			return top[i].Score > top[j].Score
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > dailyTopSize {
		top = top[:dailyTopSize]
	}
	return top
}

// resetDailyLocked clears the board, advances the day identifier, and sets
// the next midnight target.
func (h *Hub) resetDailyLocked(now time.Time) []outbound {
	cleared := len(h.daily.entries)
	h.daily.entries = make(map[string]DailyEntry)
	h.daily.currentDay = now.Format(dayFormat)
	h.daily.lastReset = now
	h.daily.nextReset = nextMidnight(now)
	h.persistDailyLocked(now)

	h.metrics.DailyResets.Inc()
	scoring.DailyReset(context.Background(), h.publisher, scoring.DailyResetPayload{
		Day:            h.daily.currentDay,
		ClearedEntries: cleared,
	})

	return []outbound{
		broadcast(dailyLeaderboardResetMessage{
			Type:            "dailyLeaderboardReset",
			Day:             h.daily.currentDay,
			RemainingMillis: h.daily.remainingMillis(now),
		}),
	}
}

// stepDailyClock is one firing of the per-second countdown tick. It resets
// the board when the target midnight has passed, and always broadcasts the
// remaining time so clients can render the countdown.
func (h *Hub) stepDailyClock(now time.Time) {
	h.mu.Lock()
	var msgs []outbound
	if !now.Before(h.daily.nextReset) {
		msgs = h.resetDailyLocked(now)
	}
	msgs = append(msgs, broadcast(timeUpdateMessage{
		Type:            "timeUpdate",
		RemainingMillis: h.daily.remainingMillis(now),
	}))
	h.mu.Unlock()

	h.deliver(msgs)
}

// RunDailyClock drives the countdown/reset tick until stop closes.
func (h *Hub) RunDailyClock(stop <-chan struct{}) {
	ticker := time.NewTicker(countdownInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.stepDailyClock(h.clock.Now())
		}
	}
}

func (h *Hub) persistDailyLocked(now time.Time) {
	if h.store == nil {
		return
	}
	doc := store.DailyDocument{
		CurrentDay: h.daily.currentDay,
		LastReset:  h.daily.lastReset,
		Entries:    h.daily.entries,
	}
	if err := h.store.SaveDaily(doc); err != nil {
		h.logger.Printf("failed to persist daily leaderboard: %v", err)
		scoring.PersistFailed(context.Background(), h.publisher, scoring.PersistFailedPayload{
			Document: "daily",
			Error:    err.Error(),
		})
	}
}

func (h *Hub) persistAllTimeLocked(now time.Time) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveAllTime(h.allTime); err != nil {
		h.logger.Printf("failed to persist all-time leaderboard: %v", err)
		scoring.PersistFailed(context.Background(), h.publisher, scoring.PersistFailedPayload{
			Document: "alltime",
			Error:    err.Error(),
		})
	}
}
