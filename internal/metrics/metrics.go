package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/addon"
	"github.com/keithlinneman/linnemanlabs-uihost/internal/version"
)

// ServerMetrics owns a private registry so tests and multiple instances
// never collide on the global one.
type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight    prometheus.Gauge
	reqTotal    *prometheus.CounterVec
	reqDur      *prometheus.HistogramVec
	respBytes   *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	panicTotal  prometheus.Counter

	ratelimitDenied   prometheus.Counter
	ratelimitCapacity prometheus.Counter

	buildInfo       *prometheus.GaugeVec
	addonInfo       *prometheus.GaugeVec
	uiBuildPresent  prometheus.Gauge
	profilingActive prometheus.Gauge
}

// New registers the Go and process collectors plus the host metrics.
// HTTP labels are method, route pattern and status only.
func New() *ServerMetrics {
	m := &ServerMetrics{
		reg: prometheus.NewRegistry(),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 9),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route",
		}, []string{"method", "route"}),
		panicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered handler panics",
		}),
		ratelimitDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		ratelimitCapacity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total times the rate limiter client table was full",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		addonInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "addon_info",
			Help: "Registered addons (1 when installed, 0 when registered but not installed)",
		}, []string{"name", "developing"}),
		uiBuildPresent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ui_build_present",
			Help: "Whether a UI build is being served (1) or the maintenance page (0)",
		}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.panicTotal,
		m.ratelimitDenied,
		m.ratelimitCapacity,
		m.buildInfo,
		m.addonInfo,
		m.uiBuildPresent,
		m.profilingActive,
	)
	m.handler = promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return m
}

// Handler serves the registry for the ops listener.
func (m *ServerMetrics) Handler() http.Handler { return m.handler }

func (m *ServerMetrics) IncHTTPPanic()             { m.panicTotal.Inc() }
func (m *ServerMetrics) IncRateLimitDenied()       { m.ratelimitDenied.Inc() }
func (m *ServerMetrics) IncRateLimitCapacity()     { m.ratelimitCapacity.Inc() }
func (m *ServerMetrics) SetUIBuildPresent(b bool)  { m.uiBuildPresent.Set(boolGauge(b)) }
func (m *ServerMetrics) SetProfilingActive(b bool) { m.profilingActive.Set(boolGauge(b)) }

// SetBuildInfo is called once at startup.
func (m *ServerMetrics) SetBuildInfo(component string, vi version.Info) {
	m.buildInfo.With(prometheus.Labels{
		"app":         vi.AppName,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"vcs_dirty":   vi.Dirty(),
		"go_version":  vi.GoVersion,
	}).Set(1)
}

// SetAddons replaces the addon_info series with infos.
func (m *ServerMetrics) SetAddons(infos []addon.Info) {
	m.addonInfo.Reset()
	for _, in := range infos {
		m.addonInfo.WithLabelValues(in.Name, strconv.FormatBool(in.Developing)).Set(boolGauge(in.Installed))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
