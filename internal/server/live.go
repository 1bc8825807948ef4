package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// LiveHandler pushes every snapshot published to a [graph.Store] over a websocket.
//
// A new connection first receives the current snapshot, if any. Each connection has a single
// writer goroutine.
type LiveHandler struct {
	store  *graph.Store
	logger *log.Logger
}

// NewLiveHandler creates a [LiveHandler] for store.
func NewLiveHandler(store *graph.Store, logger *log.Logger) *LiveHandler {
	return &LiveHandler{store: store, logger: logger}
}

func (h *LiveHandler) Routes() []string {
	return []string{"/api/graph/live"}
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	updates, cancel := h.store.Subscribe()
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap, _ := h.store.Current(); snap != nil {
		if err := h.write(conn, snap); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap := <-updates:
			if err := h.write(conn, snap); err != nil {
				h.logger.Debug("live client dropped", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) write(conn *websocket.Conn, snap *graph.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
