package live

import (
	"fmt"
	"net/http"
	"time"

	"citysafe/pkg/logger"
	"citysafe/pkg/utils"
)

// keepalive interval for SSE comments so idle proxies don't cut the
// connection.
const ssePing = 25 * time.Second

// ServeSSE streams hub events for topic to the client as Server-Sent
// Events until the client disconnects.
func ServeSSE(h *Hub, topic string, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.JSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.Subscribe(topic)
	defer cancel()
	logger.Debug("sse_subscribed", "topic", topic, "remote", r.RemoteAddr)

	ping := time.NewTicker(ssePing)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
