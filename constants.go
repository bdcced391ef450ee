package server

import "time"

const (
	writeWait = 10 * time.Second

	worldWidth  = 1600.0
	worldHeight = 1200.0
	spawnMargin = 100.0

	playerHalf      = 14.0
	pillRadius      = 9.0
	playerMaxHealth = 100.0

	maxUsernameLength = 15

	pillPointValue = 1

	countdownInterval = time.Second
	sweepInterval     = time.Hour

	dailyTopSize   = 10
	allTimeTopSize = 3
	dayFormat      = "2006-01-02"
)

var playerPalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}
