package server

type dailyLeaderboardPayload struct {
	Top             []DailyEntry `json:"top"`
	Day             string       `json:"day"`
	RemainingMillis int64        `json:"remainingMillis"`
}

// gameStateMessage is the full snapshot unicast to a freshly connected
// client before any incremental updates reach it.
type gameStateMessage struct {
	Type               string                  `json:"type"`
	Players            map[string]Player       `json:"players"`
	PlayerCount        int                     `json:"playerCount"`
	Pills              map[string]Pill         `json:"pills"`
	DailyLeaderboard   dailyLeaderboardPayload `json:"dailyLeaderboard"`
	AllTimeLeaderboard []AllTimeEntry          `json:"allTimeLeaderboard"`
	ServerTime         int64                   `json:"serverTime"`
}

type playerUpdateMessage struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

type playerCountMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type playerLeftMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type playerRespawnedMessage struct {
	Type   string `json:"type"`
	Player Player `json:"player"`
}

type pillSpawnedMessage struct {
	Type    string `json:"type"`
	Pill    Pill   `json:"pill"`
	Animate bool   `json:"animate"`
}

type pillCollectedMessage struct {
	Type     string `json:"type"`
	PillID   string `json:"pillId"`
	PlayerID string `json:"playerId"`
	Points   int    `json:"points"`
	NewScore int    `json:"newScore"`
}

type dailyLeaderboardUpdateMessage struct {
	Type string       `json:"type"`
	Top  []DailyEntry `json:"top"`
	Day  string       `json:"day"`
}

type dailyLeaderboardResetMessage struct {
	Type            string `json:"type"`
	Day             string `json:"day"`
	RemainingMillis int64  `json:"remainingMillis"`
}

type allTimeLeaderboardUpdateMessage struct {
	Type string         `json:"type"`
	Top  []AllTimeEntry `json:"top"`
}

type timeUpdateMessage struct {
	Type            string `json:"type"`
	RemainingMillis int64  `json:"remainingMillis"`
}

type sessionTokenMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}
