package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/models"
)

const pingInterval = 30 * time.Second

// hub tracks the connected sync sockets and fans frames out to them.
type hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub(log *logger.Logger) *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:   log,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Err(err).Str("func", "hub.handleWS").Msg("upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.log.Info().Str("func", "hub.handleWS").Str("remote", conn.RemoteAddr().String()).Msg("sync socket connected")

	go h.pingLoop(conn)
	h.readLoop(conn)
}

// readLoop answers client pings and drops everything else; the sync socket
// is a server-to-client surface.
func (h *hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == models.FramePing {
			h.send(conn, models.Frame{Type: models.FramePong, Timestamp: now()})
		}
	}
}

func (h *hub) pingLoop(conn *websocket.Conn) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()

	for range t.C {
		if !h.connected(conn) {
			return
		}
		h.send(conn, models.Frame{Type: models.FramePing, Timestamp: now()})
	}
}

// broadcastAck tells every client that a write was applied server-side.
func (h *hub) broadcastAck() {
	h.broadcast(models.Frame{Type: models.FrameAck, Timestamp: now()})
}

func (h *hub) broadcast(frame models.Frame) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.send(conn, frame)
	}
}

func (h *hub) send(conn *websocket.Conn, frame models.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	if err := conn.WriteJSON(frame); err != nil {
		delete(h.conns, conn)
		_ = conn.Close()
	}
}

func (h *hub) connected(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[conn]
	return ok
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
