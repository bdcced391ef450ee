package server

import "pill-rush/server/internal/store"

// The persisted document rows are defined next to their loader in
// internal/store; the gameplay code uses them under their domain names.
type (
	ScoreRecord  = store.ScoreRecord
	DailyEntry   = store.DailyEntry
	AllTimeEntry = store.AllTimeEntry
)
