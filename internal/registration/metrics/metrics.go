package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for submission counters.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeConflict   = "conflict"
	OutcomeFailed     = "failed"
	OutcomeDeclined   = "declined"
	OutcomeInvalid    = "invalid_state"
	PhasePrimary      = "primary"
	PhaseSupplemental = "supplemental"
)

// Metrics holds the registration pipeline and mirror collectors.
// All methods are safe on a nil receiver.
type Metrics struct {
	Submissions      *prometheus.CounterVec
	StoreLatency     *prometheus.HistogramVec
	MirrorEnqueued   prometheus.Counter
	MirrorDelivered  prometheus.Counter
	MirrorFailed     prometheus.Counter
	MirrorDropped    *prometheus.CounterVec
	MirrorQueueDepth prometheus.Gauge
	MirrorBreaker    prometheus.Gauge
}

// New creates the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_registration_submissions_total",
			Help: "Registration submissions by phase and outcome",
		}, []string{"phase", "outcome"}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signup_registration_store_duration_seconds",
			Help:    "Authoritative store write latency by phase",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		MirrorEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signup_mirror_enqueued_total",
			Help: "Mirror events accepted into the dispatch queue",
		}),
		MirrorDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signup_mirror_delivered_total",
			Help: "Mirror events sent without transport error",
		}),
		MirrorFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signup_mirror_failed_total",
			Help: "Mirror sends that failed",
		}),
		MirrorDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_mirror_dropped_total",
			Help: "Mirror events dropped before sending, by reason",
		}, []string{"reason"}),
		MirrorQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signup_mirror_queue_depth",
			Help: "Mirror events waiting for the worker",
		}),
		MirrorBreaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signup_mirror_circuit_open",
			Help: "1 while the mirror circuit breaker is open",
		}),
	}
	reg.MustRegister(
		m.Submissions, m.StoreLatency,
		m.MirrorEnqueued, m.MirrorDelivered, m.MirrorFailed,
		m.MirrorDropped, m.MirrorQueueDepth, m.MirrorBreaker,
	)
	return m
}

func (m *Metrics) IncrementSubmission(phase, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(phase, outcome).Inc()
}

func (m *Metrics) ObserveStoreLatency(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.StoreLatency.WithLabelValues(phase).Observe(seconds)
}

func (m *Metrics) IncrementMirrorEnqueued() {
	if m == nil {
		return
	}
	m.MirrorEnqueued.Inc()
}

func (m *Metrics) IncrementMirrorDelivered() {
	if m == nil {
		return
	}
	m.MirrorDelivered.Inc()
}

func (m *Metrics) IncrementMirrorFailed() {
	if m == nil {
		return
	}
	m.MirrorFailed.Inc()
}

func (m *Metrics) IncrementMirrorDropped(reason string) {
	if m == nil {
		return
	}
	m.MirrorDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetMirrorQueueDepth(n int) {
	if m == nil {
		return
	}
	m.MirrorQueueDepth.Set(float64(n))
}

func (m *Metrics) SetMirrorBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.MirrorBreaker.Set(1)
		return
	}
	m.MirrorBreaker.Set(0)
}
