package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for feed fetching and account lookups.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cacheLookups  *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	lookups       *prometheus.CounterVec
	renders       *prometheus.CounterVec
}

// New registers the collectors with reg. Passing nil registers them with
// the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mastofeed_cache_lookups_total",
			Help: "Feed cache lookups by result",
		}, []string{"result"}),
		fetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mastofeed_fetch_errors_total",
			Help: "Failed status fetches by error kind",
		}, []string{"kind"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mastofeed_fetch_duration_seconds",
			Help:    "Duration of successful status fetches from Mastodon instances",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms up to ~25s
		}),
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mastofeed_account_lookups_total",
			Help: "Account lookups by outcome code",
		}, []string{"code"}),
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mastofeed_renders_total",
			Help: "Rendered feeds by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) FetchError(kind string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

// Lookup counts an account lookup; successful lookups use code "ok".
func (m *Metrics) Lookup(code string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(code).Inc()
}

// Render counts a rendered feed; outcome is "posts", "empty" or "error".
func (m *Metrics) Render(outcome string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(outcome).Inc()
}
