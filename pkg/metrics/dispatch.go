package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records per-channel delivery attempts.
type DispatchMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dispatch_attempts",
		Help: "Delivery attempts by channel and outcome.",
	}, []string{"channel", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_dispatch_duration_seconds",
		Help:    "Duration of provider sends in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_retries_scheduled",
		Help: "Retries scheduled after failed dispatch attempts.",
	}, []string{"channel"})
	reg.MustRegister(attempts, duration, retries)
	return &DispatchMetrics{
		attempts: attempts,
		duration: duration,
		retries:  retries,
	}
}

// ObserveAttempt records a single provider send and its outcome.
func (d *DispatchMetrics) ObserveAttempt(channel string, success bool, duration time.Duration) {
	if d == nil || d.attempts == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	d.attempts.WithLabelValues(normalizeLabel(channel), outcome).Inc()
	d.duration.WithLabelValues(normalizeLabel(channel)).Observe(duration.Seconds())
}

// IncRetryScheduled increments the scheduled-retry counter for the channel.
func (d *DispatchMetrics) IncRetryScheduled(channel string) {
	if d == nil || d.retries == nil {
		return
	}
	d.retries.WithLabelValues(normalizeLabel(channel)).Inc()
}
