package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for gateway activity.
type Metrics struct {
	requests       *prometheus.CounterVec
	engineDuration *prometheus.HistogramVec
	locatorHits    *prometheus.CounterVec
	inflight       prometheus.Gauge
}

var (
	defaultOnce   sync.Once
	sharedMetrics *Metrics
)

// Default returns the instance registered with the global Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew registers the collectors with reg, reusing collectors that are already
// registered under the same names. Any other registration error panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibevideo",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Media requests by route, operation and outcome.",
		}, []string{"route", "operation", "outcome"}),
		engineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vibevideo",
			Subsystem: "engine",
			Name:      "invoke_duration_seconds",
			Help:      "Time spent inside processing and merge engine calls.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"operation", "status"}),
		locatorHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibevideo",
			Subsystem: "locator",
			Name:      "strategy_hits_total",
			Help:      "Artifacts found per output search strategy.",
		}, []string{"strategy"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vibevideo",
			Subsystem: "gateway",
			Name:      "requests_inflight",
			Help:      "Media requests currently being handled.",
		}),
	}

	if err := reg.Register(m.requests); err != nil {
		m.requests = existing(err).(*prometheus.CounterVec)
	}
	if err := reg.Register(m.engineDuration); err != nil {
		m.engineDuration = existing(err).(*prometheus.HistogramVec)
	}
	if err := reg.Register(m.locatorHits); err != nil {
		m.locatorHits = existing(err).(*prometheus.CounterVec)
	}
	if err := reg.Register(m.inflight); err != nil {
		m.inflight = existing(err).(prometheus.Gauge)
	}
	return m
}

func existing(err error) prometheus.Collector {
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return already.ExistingCollector
	}
	panic(err)
}

// IncRequest counts one finished request.
func (m *Metrics) IncRequest(route, operation, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, operation, outcome).Inc()
}

// ObserveEngine records an engine call duration.
func (m *Metrics) ObserveEngine(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.engineDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// IncLocator counts a located artifact by strategy.
func (m *Metrics) IncLocator(strategy string) {
	if m == nil {
		return
	}
	m.locatorHits.WithLabelValues(strategy).Inc()
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) RequestFinished() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}
