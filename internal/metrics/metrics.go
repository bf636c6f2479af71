package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for resolves.
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeFetched     = "fetched"
	OutcomeUnsupported = "unsupported"
	OutcomeInProgress  = "in_progress"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
	OutcomeAbandoned   = "abandoned"
)

// Metrics holds the process collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	cacheLookups  *prometheus.CounterVec
	resolves      *prometheus.CounterVec
	itemResolves  *prometheus.CounterVec
	evictions     prometheus.Counter
	fetchDuration *prometheus.HistogramVec
}

// New registers collectors on a fresh registry. cacheEntries and tasksInFlight
// are sampled on scrape; either may be nil.
func New(cacheEntries, tasksInFlight func() int) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediadl",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result (hit, miss).",
		}, []string{"result"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediadl",
			Name:      "resolves_total",
			Help:      "Resolve calls by outcome.",
		}, []string{"outcome"}),
		itemResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediadl",
			Name:      "item_resolves_total",
			Help:      "ResolveItem calls by outcome.",
		}, []string{"outcome"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediadl",
			Name:      "cache_evictions_total",
			Help:      "Entries removed by the expiry sweep.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediadl",
			Name:      "fetch_duration_seconds",
			Help:      "Fetcher call duration by provider.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"provider"}),
	}
	m.reg.MustRegister(m.cacheLookups, m.resolves, m.itemResolves, m.evictions, m.fetchDuration)
	if cacheEntries != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "mediadl",
			Name:      "cache_entries",
			Help:      "Entries physically present in the result cache.",
		}, func() float64 { return float64(cacheEntries()) }))
	}
	if tasksInFlight != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "mediadl",
			Name:      "tasks_in_flight",
			Help:      "Tasks claimed and not yet completed or failed.",
		}, func() float64 { return float64(tasksInFlight()) }))
	}
	return m
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) Resolve(outcome string) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ResolveItem(outcome string) {
	if m == nil {
		return
	}
	m.itemResolves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(float64(n))
}

func (m *Metrics) FetchDuration(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(provider).Observe(d.Seconds())
}
