package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ChatTurns          prometheus.Counter
	FallbackReplies    prometheus.Counter
	CompletionRequests *prometheus.CounterVec
	CompletionLatency  prometheus.Histogram
	AuthEvents         *prometheus.CounterVec
	ActiveChatStreams  prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ChatTurns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Completed chat exchanges (user message plus reply).",
		}),
		FallbackReplies: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_replies_total",
			Help:      "Replies substituted with the fixed fallback text after a completion failure.",
		}),
		CompletionRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Completion provider calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		CompletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_ms",
			Help:      "Completion provider round-trip latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}),
		AuthEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Authentication events by type.",
		}, []string{"event"}),
		ActiveChatStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_chat_streams",
			Help:      "Number of open WebSocket chat streams.",
		}),
	}
}

// ObserveCompletion records one provider call.
func (m *Metrics) ObserveCompletion(stage string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CompletionRequests.WithLabelValues(stage, outcome).Inc()
	m.CompletionLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
