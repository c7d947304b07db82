package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	InvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderalert_invocations_total",
			Help: "Handler invocations by outcome and trigger source",
		},
		[]string{"outcome", "source"}, // notified|skipped|... , kafka|http
	)

	InvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderalert_invocation_duration_seconds",
			Help:    "Wall time of one handler invocation, including the provider call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	AuditFlushErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderalert_audit_flush_errors_total",
			Help: "Failed batch writes of alert audit rows",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		InvocationsTotal,
		InvocationDuration,
		AuditFlushErrors,
	)
}
