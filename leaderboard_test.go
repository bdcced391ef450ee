package server

import (
	"fmt"
	"log"
	"testing"
	"time"

	"pill-rush/server/internal/store"
)

func lockedDailyReport(hub *Hub, name string, score int, now time.Time) {
	hub.mu.Lock()
	msgs := hub.reportDailyLocked(name, score, now)
	hub.mu.Unlock()
	hub.deliver(msgs)
}

func lockedAllTimeReport(hub *Hub, name string, score int, now time.Time) []outbound {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return hub.reportAllTimeLocked(name, score, now)
}

func TestDailyReportOverwritesEvenLower(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub := newTestHub(clock)

	conn := &stubConn{}
	hub.Connect(conn)

	lockedDailyReport(hub, "frank", 10, clock.Now())
	lockedDailyReport(hub, "frank", 4, clock.Now())

	updates := conn.messagesOfType(t, "dailyLeaderboardUpdate")
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	last := decodeInto[dailyLeaderboardUpdateMessage](t, updates[1])
	if len(last.Top) != 1 || last.Top[0].Score != 4 {
		t.Fatalf("lower report did not overwrite, top %+v", last.Top)
	}
}

func TestDailyTopSortedAndCapped(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub := newTestHub(clock)

	hub.mu.Lock()
	for i := 0; i < 15; i++ {
		name := fmt.Sprintf("p%02d", i)
		hub.daily.entries[name] = DailyEntry{Name: name, Score: i, UpdatedAt: clock.Now()}
	}
	top := hub.dailyTopLocked()
	hub.mu.Unlock()

	if len(top) != dailyTopSize {
		t.Fatalf("top size = %d, want %d", len(top), dailyTopSize)
	}
	for i := 1; i < len(top); i++ {
		if top[i].Score > top[i-1].Score {
			t.Fatalf("top not sorted descending: %+v", top)
		}
	}
	if top[0].Score != 14 {
		t.Fatalf("top entry score = %d, want 14", top[0].Score)
	}
}

func TestDailyTopTiesBreakByName(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub := newTestHub(clock)

	hub.mu.Lock()
	hub.daily.entries["zoe"] = DailyEntry{Name: "zoe", Score: 5}
	hub.daily.entries["amy"] = DailyEntry{Name: "amy", Score: 5}
	top := hub.dailyTopLocked()
	hub.mu.Unlock()

	if top[0].Name != "amy" || top[1].Name != "zoe" {
		t.Fatalf("tie not broken by name: %+v", top)
	}
}

func TestStepDailyClockBroadcastsCountdown(t *testing.T) {
	start := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	hub := newTestHub(clock)

	conn := &stubConn{}
	hub.Connect(conn)

	hub.stepDailyClock(clock.Now())

	ticks := conn.messagesOfType(t, "timeUpdate")
	if len(ticks) != 1 {
		t.Fatalf("expected one timeUpdate, got %d", len(ticks))
	}
	tick := decodeInto[timeUpdateMessage](t, ticks[0])
	if want := time.Hour.Milliseconds(); tick.RemainingMillis != want {
		t.Fatalf("remaining = %d ms, want %d", tick.RemainingMillis, want)
	}
	if got := len(conn.messagesOfType(t, "dailyLeaderboardReset")); got != 0 {
		t.Fatalf("clock tick before midnight triggered a reset")
	}
}

func TestStepDailyClockResetsAtMidnight(t *testing.T) {
	start := time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)
	clock := newManualClock(start)
	hub := newTestHub(clock)

	conn := &stubConn{}
	hub.Connect(conn)
	lockedDailyReport(hub, "gina", 9, clock.Now())

	clock.Advance(2 * time.Second)
	hub.stepDailyClock(clock.Now())

	resets := conn.messagesOfType(t, "dailyLeaderboardReset")
	if len(resets) != 1 {
		t.Fatalf("expected one dailyLeaderboardReset, got %d", len(resets))
	}
	reset := decodeInto[dailyLeaderboardResetMessage](t, resets[0])
	if reset.Day != "2025-03-11" {
		t.Fatalf("reset day = %q, want 2025-03-11", reset.Day)
	}

	hub.mu.Lock()
	entries := len(hub.daily.entries)
	day := hub.daily.currentDay
	hub.mu.Unlock()
	if entries != 0 {
		t.Fatalf("reset left %d entries", entries)
	}
	if day != "2025-03-11" {
		t.Fatalf("board day = %q, want 2025-03-11", day)
	}

	// The tick after a reset still carries the countdown.
	ticks := conn.messagesOfType(t, "timeUpdate")
	if len(ticks) != 1 {
		t.Fatalf("reset tick missing its timeUpdate")
	}
}

func TestAllTimeUpdateIfGreater(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub := newTestHub(clock)

	if msgs := lockedAllTimeReport(hub, "hank", 5, clock.Now()); len(msgs) == 0 {
		t.Fatalf("insert did not stage a broadcast")
	}
	if msgs := lockedAllTimeReport(hub, "hank", 3, clock.Now()); msgs != nil {
		t.Fatalf("lower score staged a broadcast")
	}
	if msgs := lockedAllTimeReport(hub, "hank", 8, clock.Now()); len(msgs) == 0 {
		t.Fatalf("higher score did not stage a broadcast")
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if len(hub.allTime) != 1 || hub.allTime[0].Score != 8 {
		t.Fatalf("unexpected all-time state %+v", hub.allTime)
	}
}

func TestAllTimeSortedAndCapped(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub := newTestHub(clock)

	lockedAllTimeReport(hub, "a", 2, clock.Now())
	lockedAllTimeReport(hub, "b", 9, clock.Now())
	lockedAllTimeReport(hub, "c", 5, clock.Now())
	lockedAllTimeReport(hub, "d", 7, clock.Now())

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if len(hub.allTime) != allTimeTopSize {
		t.Fatalf("all-time size = %d, want %d", len(hub.allTime), allTimeTopSize)
	}
	want := []string{"b", "d", "c"}
	for i, name := range want {
		if hub.allTime[i].Name != name {
			t.Fatalf("all-time order %+v, want %v", hub.allTime, want)
		}
	}
}

func TestLoadDailyBoardStaleDayResets(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir, log.Default())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	stale := time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	doc := store.DailyDocument{
		CurrentDay: stale.Format(dayFormat),
		LastReset:  stale,
		Entries: map[string]store.DailyEntry{
			"ivan": {Name: "ivan", Score: 3, UpdatedAt: stale},
		},
	}
	if err := s.SaveDaily(doc); err != nil {
		t.Fatalf("failed to seed daily document: %v", err)
	}

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	board := loadDailyBoard(s, now)

	if len(board.entries) != 0 {
		t.Fatalf("stale board kept %d entries", len(board.entries))
	}
	if board.currentDay != "2025-03-10" {
		t.Fatalf("board day = %q, want 2025-03-10", board.currentDay)
	}
	if !board.dirty {
		t.Fatalf("stale reset must mark the board dirty for persistence")
	}
	if !board.lastReset.Equal(now) {
		t.Fatalf("lastReset = %v, want %v", board.lastReset, now)
	}
}

func TestLoadDailyBoardSameDayKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir, log.Default())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	doc := store.DailyDocument{
		CurrentDay: now.Format(dayFormat),
		LastReset:  now.Add(-8 * time.Hour),
		Entries: map[string]store.DailyEntry{
			"judy": {Name: "judy", Score: 6, UpdatedAt: now.Add(-time.Hour)},
		},
	}
	if err := s.SaveDaily(doc); err != nil {
		t.Fatalf("failed to seed daily document: %v", err)
	}

	board := loadDailyBoard(s, now)
	if board.dirty {
		t.Fatalf("same-day load must not mark the board dirty")
	}
	entry, ok := board.entries["judy"]
	if !ok || entry.Score != 6 {
		t.Fatalf("same-day load lost the entry: %+v", board.entries)
	}
}
