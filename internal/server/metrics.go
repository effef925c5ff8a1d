package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyrowin/roomrelay/internal/presence"
)

// Inbound event outcomes recorded by Metrics.
const (
	outcomeApplied = "applied"
	outcomeIgnored = "ignored"
	outcomeInvalid = "invalid"
	outcomeLimited = "rate_limited"
)

// Metrics owns a private Prometheus registry so several servers (tests) can
// coexist in one process.
type Metrics struct {
	registry    *prometheus.Registry
	inbound     *prometheus.CounterVec
	delivered   prometheus.Counter
	dropped     prometheus.Counter
	connections prometheus.Gauge
}

// NewMetrics registers the relay collectors. Room and session gauges are
// read from stats on every scrape.
func NewMetrics(stats func() presence.Stats) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomrelay",
			Name:      "inbound_events_total",
			Help:      "Inbound WebSocket events by type and outcome.",
		}, []string{"type", "outcome"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomrelay",
			Name:      "outbound_frames_delivered_total",
			Help:      "Outbound frames queued to a client send buffer.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomrelay",
			Name:      "outbound_frames_dropped_total",
			Help:      "Outbound frames dropped because the client was gone or its buffer full.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomrelay",
			Name:      "websocket_connections",
			Help:      "Open WebSocket connections.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inbound, m.delivered, m.dropped, m.connections,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "roomrelay",
			Name:      "connected_users",
			Help:      "Connections with a session.",
		}, func() float64 { return float64(stats().ConnectedUsers) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "roomrelay",
			Name:      "active_rooms",
			Help:      "Live rooms with at least one member.",
		}, func() float64 { return float64(stats().ActiveRooms) }),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeInbound(eventType, outcome string) {
	if _, known := inboundHandlers[eventType]; !known {
		eventType = "unknown"
	}
	m.inbound.WithLabelValues(eventType, outcome).Inc()
}
