// Package prom implements the observability hooks on Prometheus collectors.
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/macroviewer/pkg/observability"
)

const namespace = "macroviewer"

// Hooks records engine, pipeline, cache and HTTP events. It implements
// every hook interface of the observability package.
type Hooks struct {
	registry *prometheus.Registry

	ActionsTotal    *prometheus.CounterVec
	ActionDuration  *prometheus.HistogramVec
	LayoutRebuilds  prometheus.Counter
	VisibleLinks    prometheus.Gauge
	LoadsTotal      *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	LayoutTicks     prometheus.Histogram
	RendersTotal    *prometheus.CounterVec
	RenderDuration  prometheus.Histogram
	CacheEvents     *prometheus.CounterVec
	CacheBytes      prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	HTTPErrorsTotal *prometheus.CounterVec
	ServerRequests  *prometheus.CounterVec
	ServerDuration  *prometheus.HistogramVec
	ActiveViewers   prometheus.Gauge
}

var (
	_ observability.EngineHooks   = (*Hooks)(nil)
	_ observability.PipelineHooks = (*Hooks)(nil)
	_ observability.CacheHooks    = (*Hooks)(nil)
	_ observability.HTTPHooks     = (*Hooks)(nil)
)

// New registers every collector on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Hooks {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Hooks{
		registry: reg,
		ActionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched viewer actions by kind, effect and outcome",
		}, []string{"kind", "effect", "outcome"}),
		ActionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Time to apply one action including the render pass",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"effect"}),
		LayoutRebuilds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_rebuilds_total",
			Help:      "Layout rebuilds after filter changes",
		}),
		VisibleLinks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_links",
			Help:      "Visible links after the most recent rebuild",
		}),
		LoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset loads by outcome",
		}, []string{"outcome"}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Dataset read, decode and normalize latency",
			Buckets:   prometheus.DefBuckets,
		}),
		LayoutTicks: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_settle_ticks",
			Help:      "Ticks taken by a headless layout to settle",
			Buckets:   []float64{50, 100, 200, 300, 400, 450, 500},
		}),
		RendersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render pipeline runs by outcome",
		}, []string{"outcome"}),
		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Render pipeline latency",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and writes by key type",
		}, []string{"key_type", "event"}),
		CacheBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Outgoing dataset fetches by host and status",
		}, []string{"host", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Outgoing dataset fetch latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		HTTPErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Outgoing dataset fetches that failed before a response",
		}, []string{"host"}),
		ServerRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests",
		}, []string{"method", "route", "status"}),
		ServerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Served HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ActiveViewers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_viewers",
			Help:      "Open websocket viewers",
		}),
	}
}

// Register installs h as the global engine, pipeline, cache and HTTP hooks.
func (h *Hooks) Register() {
	observability.SetEngineHooks(h)
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

// Registry returns the underlying registry.
func (h *Hooks) Registry() *prometheus.Registry { return h.registry }

// Handler serves the registry in the Prometheus text format.
func (h *Hooks) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{Registry: h.registry})
}

// ObserveRequest records one served HTTP request.
func (h *Hooks) ObserveRequest(method, route string, status int, d time.Duration) {
	h.ServerRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.ServerDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *Hooks) OnDispatch(_ context.Context, kind, effect string, d time.Duration, err error) {
	h.ActionsTotal.WithLabelValues(kind, effect, outcome(err)).Inc()
	if err == nil {
		h.ActionDuration.WithLabelValues(effect).Observe(d.Seconds())
	}
}

func (h *Hooks) OnRebuild(_ context.Context, _ uint64, _ int, links int) {
	h.LayoutRebuilds.Inc()
	h.VisibleLinks.Set(float64(links))
}

func (h *Hooks) OnLoadStart(context.Context, string) {}

func (h *Hooks) OnLoadComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	h.LoadsTotal.WithLabelValues(outcome(err)).Inc()
	h.LoadDuration.Observe(d.Seconds())
}

func (h *Hooks) OnLayoutStart(context.Context, int) {}

func (h *Hooks) OnLayoutComplete(_ context.Context, ticks int, _ time.Duration, err error) {
	if err == nil {
		h.LayoutTicks.Observe(float64(ticks))
	}
}

func (h *Hooks) OnRenderStart(context.Context, []string) {}

func (h *Hooks) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	h.RendersTotal.WithLabelValues(outcome(err)).Inc()
	h.RenderDuration.Observe(d.Seconds())
}

func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.CacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.CacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.CacheEvents.WithLabelValues(keyType, "set").Inc()
	h.CacheBytes.Add(float64(size))
}

func (h *Hooks) OnRequest(context.Context, string, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	h.HTTPRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	h.HTTPDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, _, host, _ string, _ error) {
	h.HTTPErrorsTotal.WithLabelValues(host).Inc()
}
