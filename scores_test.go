package server

import (
	"log"
	"testing"
	"time"

	"pill-rush/server/internal/store"
)

func newPersistentHub(t *testing.T, clock Clock) (*Hub, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir(), log.Default())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	cfg := DefaultHubConfig()
	cfg.Clock = clock
	cfg.Store = s
	cfg.Seed = 1
	return NewHubWithConfig(cfg), s
}

func TestScoreLedgerPersistsOnUpsert(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub, s := newPersistentHub(t, clock)

	conn := &stubConn{}
	id := hub.Connect(conn)
	hub.SetUsername(id, "olga", "")

	records := s.LoadScores()
	key := scoreKey("olga", id)
	record, ok := records[key]
	if !ok {
		t.Fatalf("ledger missing key %q, have %v", key, records)
	}
	if record.Name != "olga" || record.Score != 0 {
		t.Fatalf("unexpected ledger record %+v", record)
	}
}

func TestScoreLedgerSupersedesPerConnection(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub, s := newPersistentHub(t, clock)

	conn := &stubConn{}
	id := hub.Connect(conn)
	hub.SetUsername(id, "pam", "")

	hub.mu.Lock()
	state := hub.players[id]
	state.Score = 5
	hub.upsertScoreLocked(state, clock.Now())
	state.Score = 9
	hub.upsertScoreLocked(state, clock.Now())
	hub.mu.Unlock()

	records := s.LoadScores()
	if got := records[scoreKey("pam", id)].Score; got != 9 {
		t.Fatalf("ledger score = %d, want the superseding 9", got)
	}
	if len(records) != 1 {
		t.Fatalf("expected one ledger entry for the connection, got %d", len(records))
	}
}

func TestFlushScoresSkipsEmptyLedger(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub, s := newPersistentHub(t, clock)

	hub.flushScores(clock.Now())

	// Nothing was ever scored, so nothing should have been written.
	if records := s.LoadScores(); len(records) != 0 {
		t.Fatalf("empty flush wrote records: %v", records)
	}
}

func TestFlushAllWritesEveryDocument(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub, s := newPersistentHub(t, clock)

	conn := &stubConn{}
	id := hub.Connect(conn)
	hub.SetUsername(id, "quinn", "")

	hub.mu.Lock()
	state := hub.players[id]
	state.Score = 3
	hub.upsertScoreLocked(state, clock.Now())
	hub.reportDailyLocked("quinn", 3, clock.Now())
	hub.reportAllTimeLocked("quinn", 3, clock.Now())
	hub.mu.Unlock()

	hub.FlushAll()

	if records := s.LoadScores(); len(records) == 0 {
		t.Fatalf("flush left the score ledger unwritten")
	}
	daily := s.LoadDaily()
	if daily.Entries["quinn"].Score != 3 {
		t.Fatalf("flush left the daily document stale: %+v", daily.Entries)
	}
	allTime := s.LoadAllTime()
	if len(allTime) != 1 || allTime[0].Score != 3 {
		t.Fatalf("flush left the all-time document stale: %+v", allTime)
	}
}

func TestHubRestoresPersistedStateOnStart(t *testing.T) {
	clock := newManualClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	hub, s := newPersistentHub(t, clock)

	hub.mu.Lock()
	hub.reportDailyLocked("rose", 6, clock.Now())
	hub.reportAllTimeLocked("rose", 6, clock.Now())
	hub.mu.Unlock()

	cfg := DefaultHubConfig()
	cfg.Clock = clock
	cfg.Store = s
	cfg.Seed = 2
	restarted := NewHubWithConfig(cfg)

	restarted.mu.Lock()
	defer restarted.mu.Unlock()
	if restarted.daily.entries["rose"].Score != 6 {
		t.Fatalf("restart lost the daily board: %+v", restarted.daily.entries)
	}
	if len(restarted.allTime) != 1 || restarted.allTime[0].Name != "rose" {
		t.Fatalf("restart lost the all-time board: %+v", restarted.allTime)
	}
}
