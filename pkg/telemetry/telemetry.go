package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"citysafe/pkg/logger"
)

// Low-overhead request telemetry. By default only slow requests are
// written to the trace sink; full span traces are recorded for a very
// small sample of requests. Aggregate counters go to prometheus.

type ctxKeyType struct{}

var (
	writerOnce    sync.Once
	writerCh      chan []byte
	requestCtr    uint64
	spanCtr       uint64
	sampleEvery   = uint64(1000) // 1 in N requests gets a full trace
	slowThreshold = 200 * time.Millisecond
	traceDir      = "./logs"

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citysafe_http_requests_total",
		Help: "HTTP requests by method and status class.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "citysafe_http_request_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	})
)

// SetTraceDir overrides where sampled traces and slow-request records are
// appended. Call before the first request.
func SetTraceDir(dir string) {
	if dir != "" {
		traceDir = dir
	}
}

// Span is a simple span relative to request start (milliseconds).
type Span struct {
	ID       uint64 `json:"id"`
	Op       string `json:"op"`
	StartMs  int64  `json:"start_ms"`
	Duration int64  `json:"duration_ms"`
}

// Telemetry holds the per-request trace and metadata.
type Telemetry struct {
	RequestID uint64 `json:"request_id"`
	Op        string `json:"op"`
	Duration  int64  `json:"duration_ms"`
	Status    int    `json:"status"`
	Spans     []Span `json:"spans,omitempty"`

	startTime time.Time
	mu        sync.Mutex
}

// initWriter lazily starts a background writer appending JSON lines to
// <traceDir>/telemetry.jsonl. Records are dropped when the channel is
// full; tracing must never block a request.
func initWriter() {
	writerCh = make(chan []byte, 1024)
	go func() {
		_ = os.MkdirAll(traceDir, 0o755)
		f, err := os.OpenFile(filepath.Join(traceDir, "telemetry.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("telemetry_sink_unavailable", "dir", traceDir, "error", err)
			for range writerCh {
			}
			return
		}
		defer f.Close()
		for b := range writerCh {
			_, _ = f.Write(append(b, '\n'))
		}
	}()
}

func enqueue(b []byte) {
	writerOnce.Do(initWriter)
	select {
	case writerCh <- b:
	default:
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE endpoints keep working
// behind the middleware.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Middleware records prometheus counters for every request, and writes
// sampled span traces plus slow-request records to the trace sink.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		n := atomic.AddUint64(&requestCtr, 1)
		sampled := sampleEvery > 0 && n%sampleEvery == 0

		var tel *Telemetry
		if sampled {
			tel = &Telemetry{RequestID: n, Op: r.Method + " " + r.URL.Path, startTime: start}
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyType{}, tel))
		}

		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		requestsTotal.WithLabelValues(r.Method, statusClass(srw.status)).Inc()
		requestDuration.Observe(dur.Seconds())

		if tel != nil {
			tel.mu.Lock()
			tel.Status = srw.status
			tel.Duration = dur.Milliseconds()
			b, _ := json.Marshal(tel)
			tel.mu.Unlock()
			enqueue(b)
			return
		}

		if dur > slowThreshold {
			rec := map[string]interface{}{
				"request_id":  n,
				"op":          r.Method + " " + r.URL.Path,
				"duration_ms": dur.Milliseconds(),
				"status":      srw.status,
			}
			b, _ := json.Marshal(rec)
			enqueue(b)
		}
	})
}

// StartSpan returns an end function. If tracing isn't enabled for the
// request, StartSpan returns a no-op end function.
func StartSpan(ctx context.Context, name string) func() {
	v := ctx.Value(ctxKeyType{})
	if v == nil {
		return func() {}
	}
	tel, ok := v.(*Telemetry)
	if !ok {
		return func() {}
	}
	startRel := time.Since(tel.startTime).Milliseconds()
	id := atomic.AddUint64(&spanCtr, 1)

	tel.mu.Lock()
	tel.Spans = append(tel.Spans, Span{ID: id, Op: name, StartMs: startRel})
	idx := len(tel.Spans) - 1
	tel.mu.Unlock()

	return func() {
		endRel := time.Since(tel.startTime).Milliseconds()
		tel.mu.Lock()
		if idx < len(tel.Spans) {
			tel.Spans[idx].Duration = endRel - tel.Spans[idx].StartMs
		}
		tel.mu.Unlock()
	}
}
