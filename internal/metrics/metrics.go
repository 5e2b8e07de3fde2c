// Package metrics provides the Prometheus metrics of the service.
//
// Metrics live on a private registry rather than the global default, so
// several instances can exist side by side in tests. Handler serves the
// registry in the Prometheus exposition format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graylogic_hass"

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	UnavailableTotal    *prometheus.CounterVec

	// Home Assistant metrics
	StateChangesTotal *prometheus.CounterVec
	Instances         *prometheus.GaugeVec
	TagRefreshesTotal *prometheus.CounterVec

	// Discovery metrics
	DiscoveriesTotal  *prometheus.CounterVec
	DiscoveredServers prometheus.Gauge

	startTime time.Time
}

// New creates and registers all metrics, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg, startTime: time.Now()}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route pattern and status code",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.UnavailableTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unavailable_total",
			Help:      "Requests answered 503 because the server had no usable connection",
		},
		[]string{"server"},
	)

	m.StateChangesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "Entity state changes received from Home Assistant",
		},
		[]string{"server"},
	)

	m.Instances = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instances",
			Help:      "Configured Home Assistant servers by connection state",
		},
		[]string{"state"},
	)

	m.TagRefreshesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_refreshes_total",
			Help:      "Tag cache reloads requested through the tags route",
		},
		[]string{"server", "status"},
	)

	m.DiscoveriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discoveries_total",
			Help:      "mDNS discovery runs",
		},
		[]string{"status"},
	)

	m.DiscoveredServers = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "discovered_servers",
			Help:      "Servers found by the most recent discovery run",
		},
	)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordUnavailable counts a 503 for a server id ("" when no id was given).
func (m *Metrics) RecordUnavailable(serverID string) {
	m.UnavailableTotal.WithLabelValues(serverID).Inc()
}

// RecordStateChange counts one entity update from a server.
func (m *Metrics) RecordStateChange(serverID string) {
	m.StateChangesTotal.WithLabelValues(serverID).Inc()
}

// RecordTagRefresh counts a tag reload and whether it failed.
func (m *Metrics) RecordTagRefresh(serverID string, err error) {
	m.TagRefreshesTotal.WithLabelValues(serverID, status(err)).Inc()
}

// RecordDiscovery counts a discovery run and its result size.
func (m *Metrics) RecordDiscovery(found int, err error) {
	m.DiscoveriesTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.DiscoveredServers.Set(float64(found))
	}
}

// SetInstanceStates replaces the per-state instance counts. States absent
// from counts are reset to zero.
func (m *Metrics) SetInstanceStates(counts map[string]int) {
	m.Instances.Reset()
	for state, n := range counts {
		m.Instances.WithLabelValues(state).Set(float64(n))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
