package server

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// wsUpgrader handles WebSocket upgrades for the timer feed. The engine
// serves a single local reviewer UI, so cross-origin requests are allowed.
var wsUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WatchTimer streams countdown ticks for the live session of an exam type.
// The final message carries expired=true when the countdown reached zero and
// the session auto-submitted.
func (h *Handlers) WatchTimer(w http.ResponseWriter, r *http.Request) {
	t, ok := h.examType(w, r)
	if !ok {
		return
	}

	events, cancel, err := h.sessions.Watch(t)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer cancel()

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain the read side so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
		if ev.Expired {
			return
		}
	}
}
