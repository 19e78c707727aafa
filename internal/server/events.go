package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	eventWriteWait  = 10 * time.Second
	eventPongWait   = 60 * time.Second
	eventPingPeriod = (eventPongWait * 9) / 10
)

// handleEvents streams queue events over a websocket at GET /queue/events.
// Each message is one JSON-encoded queue.Event.
func (h *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Subscribe before the handshake completes so no event published after
	// the client sees the upgrade is missed.
	events, unsubscribe := h.deps.Queue.Subscribe(h.deps.EventBuffer)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	h.logger.Debug("Queue event subscriber connected", slog.String("remote_addr", r.RemoteAddr))

	// Reader: handles pongs and detects client close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(eventPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("Queue event write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}

		case <-closed:
			h.logger.Debug("Queue event subscriber disconnected", slog.String("remote_addr", r.RemoteAddr))
			return

		case <-h.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(eventWriteWait))
			return
		}
	}
}
