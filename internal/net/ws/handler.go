// Package ws upgrades connections and runs the per-session read loop.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	server "pill-rush/server"
	"pill-rush/server/logging"
	"pill-rush/server/logging/network"
)

// clientMessage is the single envelope for every client-to-server message.
// Coordinates are pointers so a payload missing them is distinguishable
// from a move to the origin and can be silently dropped.
type clientMessage struct {
	Type         string   `json:"type"`
	Username     string   `json:"username"`
	SessionToken string   `json:"sessionToken,omitempty"`
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Direction    *float64 `json:"direction,omitempty"`
	WeaponAngle  *float64 `json:"weaponAngle,omitempty"`
}

type HandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
}

type Handler struct {
	hub       *server.Hub
	logger    *log.Logger
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher{}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:       hub,
		logger:    logger,
		publisher: publisher,
		upgrader:  upgrader,
	}
}

// Handle upgrades the request and serves the session until the transport
// closes. Malformed payloads are discarded without any error response.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	playerID := h.hub.Connect(conn)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(playerID)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			network.MalformedClientPayload(context.Background(), h.publisher,
				logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
				network.MalformedPayload{Error: err.Error()})
			continue
		}

		switch msg.Type {
		case "setUsername":
			h.hub.SetUsername(playerID, msg.Username, msg.SessionToken)
		case "move":
			if msg.X == nil || msg.Y == nil {
				continue
			}
			h.hub.Move(playerID, *msg.X, *msg.Y, msg.Direction, msg.WeaponAngle)
		case "respawn":
			h.hub.Respawn(playerID)
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, playerID)
		}
	}
}
