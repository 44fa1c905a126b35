package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"classwire/internal/registry"
	"classwire/pkg/types"
)

// Config carries the transport tunables.
type Config struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

// Handler upgrades HTTP requests at the push endpoint and runs each
// connection's read loop. Identity is established in-band: the client sends a
// register message after the handshake, and until it does the connection is
// tracked but receives nothing.
type Handler struct {
	registry *registry.Registry
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(reg *registry.Registry, cfg Config, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		registry: reg,
		cfg:      cfg,
		log:      log,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// The browser clients are served from a different origin than
			// the API host.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := NewConnection(ws, h.cfg.SendBuffer, h.cfg.WriteTimeout)
	if err := h.registry.Add(conn.ID(), conn); err != nil {
		h.log.Error("tracking connection failed", "conn_id", conn.ID(), "error", err)
		_ = conn.Close()
		return
	}

	h.log.Info("connection established", "conn_id", conn.ID(), "remote", ws.RemoteAddr().String())
	go h.readLoop(conn, ws)
}

func (h *Handler) readLoop(conn *Connection, ws *websocket.Conn) {
	defer func() {
		h.registry.Remove(conn.ID())
		_ = conn.Close()
		h.log.Info("connection closed", "conn_id", conn.ID())
	}()

	if err := ws.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	go h.pingLoop(conn, ws)

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("read failed", "conn_id", conn.ID(), "error", err)
			}
			return
		}
		if messageType == websocket.TextMessage {
			h.handleMessage(conn, data)
		}
	}
}

func (h *Handler) pingLoop(conn *Connection, ws *websocket.Conn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}

// handleMessage processes one client frame. Malformed or unauthorized frames
// leave the connection open: an unregistered connection is harmless, it just
// never receives anything.
func (h *Handler) handleMessage(conn *Connection, data []byte) {
	var msg types.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Warn("malformed client message", "conn_id", conn.ID(), "error", err)
		return
	}

	switch msg.Type {
	case types.MessageRegister:
		var reg types.Registration
		if err := json.Unmarshal(msg.Data, &reg); err != nil {
			h.log.Warn("malformed registration", "conn_id", conn.ID(), "error", err)
			return
		}
		if err := h.registry.Register(conn.ID(), reg.UserID, reg.Role); err != nil {
			h.log.Warn("registration rejected",
				"conn_id", conn.ID(), "user_id", reg.UserID, "role", reg.Role, "error", err)
		}

	case types.MessageJoinInstructorRoom:
		var userID string
		if err := json.Unmarshal(msg.Data, &userID); err != nil {
			h.log.Warn("malformed room join", "conn_id", conn.ID(), "error", err)
			return
		}
		h.joinInstructorRoom(conn, userID)

	default:
		h.log.Warn("unknown client message type", "conn_id", conn.ID(), "type", msg.Type)
	}
}

func (h *Handler) joinInstructorRoom(conn *Connection, userID string) {
	registeredID, role, ok := h.registry.Identity(conn.ID())
	if !ok || role != types.RoleInstructor || registeredID != userID {
		// Joining somebody else's identity room would leak their students'
		// submissions.
		h.log.Warn("room join rejected", "conn_id", conn.ID(), "user_id", userID)
		return
	}
	if err := h.registry.JoinRoom(conn.ID(), types.InstructorRoom(userID)); err != nil {
		h.log.Warn("room join failed", "conn_id", conn.ID(), "error", err)
	}
}
