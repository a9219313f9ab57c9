package live

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"citysafe/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins were already vetted by the CORS/auth gateway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait = 10 * time.Second
	wsPing      = 25 * time.Second
)

// ServeWS upgrades the request and streams hub events for topic over a
// websocket until the peer closes or a write fails.
func ServeWS(h *Hub, topic string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "topic", topic, "error", err)
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(topic)
	defer cancel()
	logger.Debug("ws_subscribed", "topic", topic, "remote", r.RemoteAddr)

	// reader goroutine: we never expect frames from the client, but the
	// read loop is what detects the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPing)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
