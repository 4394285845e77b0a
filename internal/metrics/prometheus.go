package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "users_cache"

// Command outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Prometheus holds the service collectors and the registry they live in
type Prometheus struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	RateLimited     prometheus.Counter
	buildInfo       *prometheus.GaugeVec
	registry        *prometheus.Registry
}

// NewPrometheus registers every collector on a fresh registry
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "RPC commands handled, by pattern and outcome",
			}, []string{"command", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "RPC command latency",
				Buckets:   prometheus.DefBuckets,
			}, []string{"command"}),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hits_total",
				Help:      "getUserCache calls that found a live entry",
			}),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "misses_total",
				Help:      "getUserCache calls that found nothing",
			}),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Commands rejected by the rate limiter",
			}),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Build info for the users cache service",
			}, []string{"version"}),
		registry: prometheus.NewRegistry(),
	}

	p.registry.MustRegister(
		p.CommandsTotal,
		p.CommandDuration,
		p.CacheHits,
		p.CacheMisses,
		p.RateLimited,
		p.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

// BuildInfo publishes the running version
func (p *Prometheus) BuildInfo(version string) {
	if len(strings.TrimSpace(version)) > 0 {
		p.buildInfo.WithLabelValues(version).Set(1)
	}
}

// ObserveCommand records one finished command
func (p *Prometheus) ObserveCommand(command, outcome string, seconds float64) {
	p.CommandsTotal.WithLabelValues(command, outcome).Inc()
	p.CommandDuration.WithLabelValues(command).Observe(seconds)
}

// Registry exposes the underlying registry
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
