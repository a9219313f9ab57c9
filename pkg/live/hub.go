package live

import (
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"citysafe/pkg/logger"
)

// Event is a single fanout record delivered to live subscribers.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// subscriber buffer size. Publish never blocks: events are dropped for a
// subscriber whose buffer is full (clients recover by refetching the
// listing, same as after a reconnect).
const subBuffer = 64

var subscribersGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "citysafe_live_subscribers",
	Help: "Connected live subscribers per topic.",
}, []string{"topic"})

// TopicSOS is the dashboard feed for emergency alerts.
const TopicSOS = "sos"

// ChatTopic returns the fanout topic for a city channel.
func ChatTopic(city string) string { return "chat:" + city }

// Hub fans out events to per-topic subscribers. Chat channels use topic
// "chat:<city>"; the SOS dashboard feed uses topic "sos".
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a new subscriber for topic. The returned cancel
// func must be called when the consumer goes away.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, subBuffer)
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan Event]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()
	subscribersGauge.WithLabelValues(topic).Inc()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[topic]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(h.subs, topic)
				}
				subscribersGauge.WithLabelValues(topic).Dec()
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of topic. Slow
// subscribers are skipped rather than blocked on.
func (h *Hub) Publish(topic string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- ev:
		default:
			logger.Debug("live_event_dropped", "topic", topic, "type", ev.Type)
		}
	}
}

// PublishJSON marshals v and publishes it under the given event type.
func (h *Hub) PublishJSON(topic, typ string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Warn("live_marshal_failed", "topic", topic, "error", err)
		return
	}
	h.Publish(topic, Event{Type: typ, Data: b})
}

// Subscribers returns the current subscriber count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
