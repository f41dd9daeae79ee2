package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics defines counters for the wallpaper state machine and download queue.
type Metrics interface {
	ObserveTransition(from, to string)
	IncResolution(outcome string)
	IncDownload(status string)
	SetResolving(n int)
}

// GatewayMetrics captures request metrics for the HTTP API.
type GatewayMetrics interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// Noop implements Metrics and GatewayMetrics without emitting anything.
type Noop struct{}

func (Noop) ObserveTransition(string, string)               {}
func (Noop) IncResolution(string)                           {}
func (Noop) IncDownload(string)                             {}
func (Noop) SetResolving(int)                               {}
func (Noop) ObserveRequest(string, string, string, float64) {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	transitions *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	downloads   *prometheus.CounterVec
	resolving   prometheus.Gauge
}

// NewProm registers collectors on the default registry.
func NewProm(namespace string) *Prom {
	return NewPromWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewPromWithRegisterer registers collectors on reg.
func NewPromWithRegisterer(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_transitions_total",
			Help:      "Wallpaper item state transitions",
		}, []string{"from", "to"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Asset resolutions by outcome",
		}, []string{"outcome"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download jobs by final status",
		}, []string{"status"}),
		resolving: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resolutions_in_flight",
			Help:      "Items currently being resolved",
		}),
	}
	reg.MustRegister(p.transitions, p.resolutions, p.downloads, p.resolving)
	return p
}

func (p *Prom) ObserveTransition(from, to string) {
	p.transitions.WithLabelValues(from, to).Inc()
}

func (p *Prom) IncResolution(outcome string) {
	p.resolutions.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncDownload(status string) {
	p.downloads.WithLabelValues(status).Inc()
}

func (p *Prom) SetResolving(n int) {
	p.resolving.Set(float64(n))
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the collectors of a single registry.
func HandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// --- Gateway metrics ---

type gatewayProm struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewGatewayProm constructs a GatewayMetrics with counters/histograms.
func NewGatewayProm(namespace string, reg prometheus.Registerer) GatewayMetrics {
	g := &gatewayProm{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(g.requests, g.latency)
	return g
}

func (g *gatewayProm) ObserveRequest(method, route, status string, durationSeconds float64) {
	g.requests.WithLabelValues(method, route, status).Inc()
	g.latency.WithLabelValues(method, route).Observe(durationSeconds)
}
