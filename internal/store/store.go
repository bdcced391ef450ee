// Package store persists the three arena documents: the player score
// ledger, the daily leaderboard snapshot, and the all-time leaderboard.
// Loaders tolerate missing files (cold start) and malformed content (log
// and fall back to empty state) so a damaged data directory never blocks
// startup.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"
)

const (
	scoresFile  = "scores.json"
	dailyFile   = "daily-leaderboard.json"
	allTimeFile = "alltime-leaderboard.json"
)

// ScoreRecord is one ledger entry, keyed by name plus connection id.
// Entries are superseded on every score change and never pruned.
type ScoreRecord struct {
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	LastSeen time.Time `json:"lastSeen"`
}

// DailyEntry is a daily leaderboard row, keyed by display name.
type DailyEntry struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DailyDocument is the persisted daily leaderboard state.
type DailyDocument struct {
	CurrentDay string                `json:"currentDay"`
	LastReset  time.Time             `json:"lastReset"`
	Entries    map[string]DailyEntry `json:"entries"`
}

// AllTimeEntry is one row of the capped all-time leaderboard.
type AllTimeEntry struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
}

// Store reads and writes the arena documents under a single directory.
type Store struct {
	dir    string
	logger *log.Logger
}

// Open prepares a document store rooted at dir, creating it if needed.
func Open(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if dir == "" {
		return nil, errors.New("store: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: failed to create data directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the data directory backing the store.
func (s *Store) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// LoadScores returns the persisted score ledger, or an empty ledger.
func (s *Store) LoadScores() map[string]ScoreRecord {
	records := make(map[string]ScoreRecord)
	if !s.load(scoresFile, &records) || records == nil {
		records = make(map[string]ScoreRecord)
	}
	return records
}

// SaveScores writes the full score ledger.
func (s *Store) SaveScores(records map[string]ScoreRecord) error {
	return s.save(scoresFile, records)
}

// LoadDaily returns the persisted daily leaderboard document, or an empty one.
func (s *Store) LoadDaily() DailyDocument {
	var doc DailyDocument
	if !s.load(dailyFile, &doc) {
		doc = DailyDocument{}
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]DailyEntry)
	}
	return doc
}

// SaveDaily writes the full daily leaderboard document.
func (s *Store) SaveDaily(doc DailyDocument) error {
	return s.save(dailyFile, doc)
}

// LoadAllTime returns the persisted all-time leaderboard, or an empty list.
func (s *Store) LoadAllTime() []AllTimeEntry {
	entries := make([]AllTimeEntry, 0)
	if !s.load(allTimeFile, &entries) || entries == nil {
		entries = make([]AllTimeEntry, 0)
	}
	return entries
}

// SaveAllTime writes the full all-time leaderboard.
func (s *Store) SaveAllTime(entries []AllTimeEntry) error {
	return s.save(allTimeFile, entries)
}

func (s *Store) load(name string, v any) bool {
	if s == nil {
		return false
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Printf("store: failed to read %s, starting empty: %v", name, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Printf("store: malformed %s, starting empty: %v", name, err)
		return false
	}
	return true
}

func (s *Store) save(name string, v any) error {
	if s == nil {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: failed to marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("store: failed to write %s: %w", name, err)
	}
	return nil
}
