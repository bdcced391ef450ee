package server

import (
	"strings"
	"time"
)

type Player struct {
	ID          string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Health      float64 `json:"health"`
	MaxHealth   float64 `json:"maxHealth"`
	Color       string  `json:"color"`
	Name        string  `json:"name"`
	Direction   float64 `json:"direction"`
	WeaponAngle float64 `json:"weaponAngle"`
	Kills       int     `json:"kills"`
	Score       int     `json:"score"`
}

type playerState struct {
	Player
	lastActivity time.Time
	lastMove     time.Time
}

func (s *playerState) snapshot() Player {
	return s.Player
}

func (s *playerState) alive() bool {
	return s.Health > 0
}

// sanitizeUsername trims surrounding whitespace and truncates to the
// maximum display length. An empty result means the request is a no-op.
func sanitizeUsername(raw string) string {
	name := strings.TrimSpace(raw)
	runes := []rune(name)
	if len(runes) > maxUsernameLength {
		name = string(runes[:maxUsernameLength])
	}
	return name
}
