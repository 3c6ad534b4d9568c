// Package metrics exposes Prometheus collectors for the matching core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	Likes    prometheus.Counter
	Matches  prometheus.Counter
	Messages prometheus.Counter
	Repairs  *prometheus.CounterVec
	Retries  *prometheus.CounterVec
	Requests *prometheus.CounterVec
}

// New builds the collectors on a private registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Likes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muzz_likes_created_total",
			Help: "Likes inserted (repeated likes of the same pair are not counted).",
		}),
		Matches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muzz_matches_created_total",
			Help: "Conversations created for newly matched pairs.",
		}),
		Messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "muzz_messages_sent_total",
			Help: "Messages appended to conversations.",
		}),
		Repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "muzz_repairs_total",
			Help: "Records healed by repair-on-read or the sweeper, by kind.",
		}, []string{"kind"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "muzz_store_retries_total",
			Help: "Store operations retried after a transient failure, by operation.",
		}, []string{"op"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "muzz_grpc_requests_total",
			Help: "gRPC requests handled, by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Likes, m.Matches, m.Messages, m.Repairs, m.Retries, m.Requests,
	)
	return m
}

// Handler returns an http.Handler for Prometheus scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) LikeCreated() {
	if m != nil {
		m.Likes.Inc()
	}
}

func (m *Metrics) MatchCreated() {
	if m != nil {
		m.Matches.Inc()
	}
}

func (m *Metrics) MessageSent() {
	if m != nil {
		m.Messages.Inc()
	}
}

func (m *Metrics) Repaired(kind string) {
	if m != nil {
		m.Repairs.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Retried(op string) {
	if m != nil {
		m.Retries.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) Request(method, code string) {
	if m != nil {
		m.Requests.WithLabelValues(method, code).Inc()
	}
}
