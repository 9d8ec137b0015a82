package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK     = "ok"
	ResultError  = "error"
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Recorder exposes the monitor's Prometheus collectors. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	polls         *prometheus.CounterVec
	lookups       *prometheus.CounterVec
	lookupLatency prometheus.Histogram
	alerts        *prometheus.CounterVec
	suppressed    *prometheus.CounterVec
	windSpeed     prometheus.Gauge
	windowSamples prometheus.Gauge
}

// New builds a recorder on its own registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.polls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "windwatch_polls_total",
		Help: "Scheduled poll cycles by result.",
	}, []string{"result"})

	r.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "windwatch_station_lookups_total",
		Help: "Station lookups (cache hits included) by result.",
	}, []string{"result"})

	r.lookupLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "windwatch_station_lookup_seconds",
		Help:    "Latency of station lookups, cache hits included.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	r.alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "windwatch_alerts_total",
		Help: "Alerts that fired, by delivery result.",
	}, []string{"result"})

	r.suppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "windwatch_alerts_suppressed_total",
		Help: "Alert evaluations that did not fire, by reason.",
	}, []string{"reason"})

	r.windSpeed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "windwatch_wind_speed_knots",
		Help: "Most recent wind speed observed.",
	})

	r.windowSamples = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "windwatch_window_samples",
		Help: "Samples currently retained in the rolling window.",
	})

	r.registry.MustRegister(
		r.polls, r.lookups, r.lookupLatency, r.alerts, r.suppressed, r.windSpeed, r.windowSamples,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Poll counts one scheduled poll cycle.
func (r *Recorder) Poll(result string) {
	if r == nil {
		return
	}
	r.polls.WithLabelValues(result).Inc()
}

// Lookup counts one station lookup through the cache and records its latency.
func (r *Recorder) Lookup(result string, took time.Duration) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(result).Inc()
	r.lookupLatency.Observe(took.Seconds())
}

// Alert counts a fired alert by delivery result.
func (r *Recorder) Alert(result string) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(result).Inc()
}

// Suppressed counts an evaluation that did not fire, by reason.
func (r *Recorder) Suppressed(reason string) {
	if r == nil {
		return
	}
	r.suppressed.WithLabelValues(reason).Inc()
}

// Observe sets the latest wind speed and the window size.
func (r *Recorder) Observe(windKt float64, windowLen int) {
	if r == nil {
		return
	}
	r.windSpeed.Set(windKt)
	r.windowSamples.Set(float64(windowLen))
}
