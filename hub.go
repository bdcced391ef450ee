package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pill-rush/server/internal/metrics"
	"pill-rush/server/internal/store"
	"pill-rush/server/logging"
	"pill-rush/server/logging/lifecycle"
	"pill-rush/server/logging/network"
)

// Tunables are the gameplay knobs the hub runs with. The defaults are the
// authoritative rules; only values safe to change live are applied on hot
// reload.
type Tunables struct {
	PillCapacity  int
	SpawnRamp     time.Duration
	SpawnInterval time.Duration
	MoveInterval  time.Duration
	RespawnDelay  time.Duration
	TokenTTL      time.Duration
	FlushInterval time.Duration
}

func DefaultTunables() Tunables {
	return Tunables{
		PillCapacity:  30,
		SpawnRamp:     100 * time.Millisecond,
		SpawnInterval: 500 * time.Millisecond,
		MoveInterval:  16 * time.Millisecond,
		RespawnDelay:  3 * time.Second,
		TokenTTL:      24 * time.Hour,
		FlushInterval: 30 * time.Second,
	}
}

type HubConfig struct {
	Tunables  Tunables
	Clock     Clock
	Store     *store.Store
	Publisher logging.Publisher
	Metrics   *metrics.Set
	Logger    *log.Logger
	Seed      int64
}

func DefaultHubConfig() HubConfig {
	return HubConfig{Tunables: DefaultTunables()}
}

// clientConn is the slice of *websocket.Conn the hub needs. Tests register
// recording stubs through the same seam.
type clientConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type subscriber struct {
	conn clientConn
	mu   sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// outbound is a message staged while the hub lock is held and delivered
// after release. Fan-out is fire-and-forget: no acknowledgment, no
// backpressure; a failed write drops that subscriber only.
type outbound struct {
	payload any
	only    string
	exclude string
}

func broadcast(payload any) outbound {
	return outbound{payload: payload}
}

func broadcastExcept(payload any, exclude string) outbound {
	return outbound{payload: payload, exclude: exclude}
}

func unicast(payload any, target string) outbound {
	return outbound{payload: payload, only: target}
}

// Hub owns all live players, subscribers, the pill pool, the score ledger,
// the session token store, and both leaderboards. One mutex serializes every
// mutation, reproducing the run-to-completion semantics the protocol assumes.
type Hub struct {
	mu          sync.Mutex
	tunables    Tunables
	players     map[string]*playerState
	subscribers map[string]*subscriber
	pills       map[string]Pill
	scores      map[string]ScoreRecord
	tokens      map[string]SessionToken
	daily       dailyBoard
	allTime     []AllTimeEntry
	rng         *rand.Rand

	nextID     atomic.Uint64
	nextPillID atomic.Uint64

	clock     Clock
	store     *store.Store
	publisher logging.Publisher
	metrics   *metrics.Set
	logger    *log.Logger
}

func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

func NewHubWithConfig(cfg HubConfig) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Tunables == (Tunables{}) {
		cfg.Tunables = DefaultTunables()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = cfg.Clock.Now().UnixNano()
	}

	hub := &Hub{
		tunables:    cfg.Tunables,
		players:     make(map[string]*playerState),
		subscribers: make(map[string]*subscriber),
		pills:       make(map[string]Pill),
		tokens:      make(map[string]SessionToken),
		rng:         rand.New(rand.NewSource(seed)),
		clock:       cfg.Clock,
		store:       cfg.Store,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}

	now := hub.clock.Now()
	hub.scores = hub.store.LoadScores()
	hub.allTime = hub.store.LoadAllTime()
	hub.daily = loadDailyBoard(hub.store, now)
	if hub.daily.dirty {
		hub.persistDailyLocked(now)
		hub.daily.dirty = false
	}

	return hub
}

// Connect registers a new player for the given connection, unicasts the
// full state snapshot to it, and announces the player to everyone.
func (h *Hub) Connect(conn clientConn) string {
	now := h.clock.Now()
	seq := h.nextID.Add(1)
	playerID := fmt.Sprintf("player-%d", seq)

	h.mu.Lock()
	x, y := h.randomSpawnLocked()
	state := &playerState{
		Player: Player{
			ID:        playerID,
			X:         x,
			Y:         y,
			Health:    playerMaxHealth,
			MaxHealth: playerMaxHealth,
			Color:     playerPalette[h.rng.Intn(len(playerPalette))],
			Name:      fmt.Sprintf("Player %d", seq),
		},
		lastActivity: now,
	}
	h.players[playerID] = state
	h.subscribers[playerID] = &subscriber{conn: conn}
	name := state.Name

	msgs := []outbound{
		unicast(h.gameStateLocked(now), playerID),
		broadcast(playerUpdateMessage{Type: "playerUpdate", Player: state.snapshot()}),
		broadcast(playerCountMessage{Type: "playerCountUpdate", Count: len(h.players)}),
	}
	h.mu.Unlock()

	h.metrics.ConnectedPlayers.Inc()
	lifecycle.PlayerConnected(context.Background(), h.publisher, h.playerRef(playerID), lifecycle.PlayerConnectedPayload{
		Name:   name,
		SpawnX: x,
		SpawnY: y,
	})

	h.deliver(msgs)
	return playerID
}

// SetUsername applies a sanitized display name and resolves the starting
// score, restoring it from a session token when one matches. Token failures
// fall closed to zero with no signal to the client.
func (h *Hub) SetUsername(playerID, username, sessionToken string) {
	name := sanitizeUsername(username)
	if name == "" {
		return
	}
	now := h.clock.Now()

	h.mu.Lock()
	state, ok := h.players[playerID]
	if !ok {
		h.mu.Unlock()
		return
	}

	score := 0
	restored := false
	if sessionToken != "" {
		if restoredScore, ok := h.redeemTokenLocked(sessionToken, name, now, playerID); ok {
			score = restoredScore
			restored = true
		}
	}

	state.Name = name
	state.Score = score
	state.lastActivity = now
	h.upsertScoreLocked(state, now)

	msgs := []outbound{
		broadcast(playerUpdateMessage{Type: "playerUpdate", Player: state.snapshot()}),
	}
	h.mu.Unlock()

	lifecycle.UsernameSet(context.Background(), h.publisher, h.playerRef(playerID), lifecycle.UsernameSetPayload{
		Name:          name,
		ScoreRestored: restored,
	})

	h.deliver(msgs)
}

// Move applies a position update if the player is alive and the
// per-connection rate limit allows it, runs pill collection against the new
// position, and relays the update to every other connection. The sender
// renders its own input; echoing back would cause visible correction jitter.
func (h *Hub) Move(playerID string, x, y float64, direction, weaponAngle *float64) {
	now := h.clock.Now()

	h.mu.Lock()
	state, ok := h.players[playerID]
	if !ok || !state.alive() {
		h.mu.Unlock()
		return
	}
	if !state.lastMove.IsZero() && now.Sub(state.lastMove) < h.tunables.MoveInterval {
		h.mu.Unlock()
		return
	}

	state.X = x
	state.Y = y
	if direction != nil {
		state.Direction = *direction
	}
	if weaponAngle != nil {
		state.WeaponAngle = *weaponAngle
	}
	state.lastActivity = now
	state.lastMove = now

	collected := h.collectPillLocked(state, now)
	msgs := []outbound{
		broadcastExcept(playerUpdateMessage{Type: "playerUpdate", Player: state.snapshot()}, playerID),
	}
	msgs = append(msgs, collected...)
	h.mu.Unlock()

	h.deliver(msgs)
}

// Respawn schedules a position reset and full heal after the configured
// delay. The timer is not cancellable; liveness is checked when it fires.
func (h *Hub) Respawn(playerID string) {
	h.mu.Lock()
	delay := h.tunables.RespawnDelay
	_, ok := h.players[playerID]
	h.mu.Unlock()
	if !ok {
		return
	}
	time.AfterFunc(delay, func() {
		h.completeRespawn(playerID)
	})
}

func (h *Hub) completeRespawn(playerID string) {
	h.mu.Lock()
	state, ok := h.players[playerID]
	if !ok {
		h.mu.Unlock()
		return
	}
	x, y := h.randomSpawnLocked()
	state.X = x
	state.Y = y
	state.Health = state.MaxHealth

	msgs := []outbound{
		broadcast(playerRespawnedMessage{Type: "playerRespawned", Player: state.snapshot()}),
	}
	h.mu.Unlock()

	lifecycle.PlayerRespawned(context.Background(), h.publisher, h.playerRef(playerID), lifecycle.PlayerRespawnedPayload{X: x, Y: y})
	h.deliver(msgs)
}

// Disconnect removes a player. A nonzero score is pushed into the daily
// leaderboard first, and a fresh session token is minted and written to the
// closing connection on a best-effort basis; it may never arrive.
func (h *Hub) Disconnect(playerID string) {
	now := h.clock.Now()

	h.mu.Lock()
	state, ok := h.players[playerID]
	if !ok {
		if sub, subOK := h.subscribers[playerID]; subOK {
			delete(h.subscribers, playerID)
			h.mu.Unlock()
			sub.conn.Close()
			return
		}
		h.mu.Unlock()
		return
	}

	sub := h.subscribers[playerID]
	delete(h.subscribers, playerID)

	name := state.Name
	finalScore := state.Score

	var msgs []outbound
	var tokenMsg *sessionTokenMessage
	if finalScore > 0 {
		msgs = append(msgs, h.reportDailyLocked(name, finalScore, now)...)
		token := h.mintTokenLocked(name, finalScore, now)
		tokenMsg = &sessionTokenMessage{Type: "sessionToken", Token: token.Token, Name: token.Name, Score: token.Score}
	}

	delete(h.players, playerID)
	msgs = append(msgs,
		broadcast(playerLeftMessage{Type: "playerLeft", ID: playerID}),
		broadcast(playerCountMessage{Type: "playerCountUpdate", Count: len(h.players)}),
	)
	h.mu.Unlock()

	if tokenMsg != nil && sub != nil {
		if data, err := json.Marshal(tokenMsg); err == nil {
			// Best effort: the transport is usually already closing.
			_ = sub.write(data)
		}
	}
	if sub != nil {
		sub.conn.Close()
	}

	h.metrics.ConnectedPlayers.Dec()
	lifecycle.PlayerDisconnected(context.Background(), h.publisher, h.playerRef(playerID), lifecycle.PlayerDisconnectedPayload{
		Name:       name,
		FinalScore: finalScore,
	})

	h.deliver(msgs)
}

// ApplyTunables swaps in refreshed gameplay knobs from a config reload.
func (h *Hub) ApplyTunables(t Tunables) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tunables = t
}

func (h *Hub) currentTunables() Tunables {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tunables
}

// PlayerCount returns the number of connected players.
func (h *Hub) PlayerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.players)
}

type diagnosticsPlayer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	LastActivity int64  `json:"lastActivity"`
}

// DiagnosticsSnapshot exposes per-player activity data for operator logging.
func (h *Hub) DiagnosticsSnapshot() []diagnosticsPlayer {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := make([]diagnosticsPlayer, 0, len(h.players))
	for _, state := range h.players {
		players = append(players, diagnosticsPlayer{
			ID:           state.ID,
			Name:         state.Name,
			Score:        state.Score,
			LastActivity: state.lastActivity.UnixMilli(),
		})
	}
	return players
}

// Shutdown closes every subscriber connection and persists all documents.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs = append(subs, sub)
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.conn.Close()
	}
	h.FlushAll()
}

// FlushAll synchronously persists all three documents. Called on graceful
// shutdown; the process must not exit before it returns.
func (h *Hub) FlushAll() {
	now := h.clock.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.persistScoresLocked(now)
	h.persistDailyLocked(now)
	h.persistAllTimeLocked(now)
}

func (h *Hub) gameStateLocked(now time.Time) gameStateMessage {
	players := make(map[string]Player, len(h.players))
	for id, state := range h.players {
		players[id] = state.snapshot()
	}
	pills := make(map[string]Pill, len(h.pills))
	for id, pill := range h.pills {
		pills[id] = pill
	}
	allTime := make([]AllTimeEntry, len(h.allTime))
	copy(allTime, h.allTime)

	return gameStateMessage{
		Type:        "gameState",
		Players:     players,
		PlayerCount: len(h.players),
		Pills:       pills,
		DailyLeaderboard: dailyLeaderboardPayload{
			Top:             h.dailyTopLocked(),
			Day:             h.daily.currentDay,
			RemainingMillis: h.daily.remainingMillis(now),
		},
		AllTimeLeaderboard: allTime,
		ServerTime:         now.UnixMilli(),
	}
}

func (h *Hub) randomSpawnLocked() (float64, float64) {
	x := spawnMargin + h.rng.Float64()*(worldWidth-2*spawnMargin)
	y := spawnMargin + h.rng.Float64()*(worldHeight-2*spawnMargin)
	return x, y
}

func (h *Hub) playerRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindPlayer}
}

// deliver fans staged messages out to the current subscribers. A failed
// write drops that subscriber; a slow connection never stalls the others
// beyond the write deadline.
func (h *Hub) deliver(msgs []outbound) {
	for _, msg := range msgs {
		data, err := json.Marshal(msg.payload)
		if err != nil {
			h.logger.Printf("failed to marshal outbound message: %v", err)
			continue
		}

		h.mu.Lock()
		targets := make(map[string]*subscriber, len(h.subscribers))
		if msg.only != "" {
			if sub, ok := h.subscribers[msg.only]; ok {
				targets[msg.only] = sub
			}
		} else {
			for id, sub := range h.subscribers {
				if id == msg.exclude {
					continue
				}
				targets[id] = sub
			}
		}
		h.mu.Unlock()

		for id, sub := range targets {
			if err := sub.write(data); err != nil {
				h.metrics.BroadcastFailures.Inc()
				network.BroadcastFailed(context.Background(), h.publisher, h.playerRef(id), network.BroadcastFailedPayload{Error: err.Error()})
				go h.Disconnect(id)
				continue
			}
			h.metrics.BroadcastsTotal.Inc()
		}
	}
}
