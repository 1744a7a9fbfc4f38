package admission

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// admissionMetrics holds the Prometheus instruments for the gate.
type admissionMetrics struct {
	accepted prometheus.Counter
	rejected *prometheus.CounterVec
	inFlight prometheus.Gauge
	lag      prometheus.Gauge
	heap     prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     admissionMetrics
)

func metricsFor() *admissionMetrics {
	metricsOnce.Do(func() {
		metrics.accepted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "othala_admission_accepted_total",
			Help: "Admission checks that accepted the request",
		})
		metrics.rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "othala_admission_rejected_total",
			Help: "Admission checks that shed the request, by reason",
		}, []string{"reason"})
		metrics.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "othala_admission_in_flight",
			Help: "Requests currently inside the gate",
		})
		metrics.lag = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "othala_admission_scheduler_lag_seconds",
			Help: "Most recent sampled scheduler lag",
		})
		metrics.heap = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "othala_admission_heap_bytes",
			Help: "Most recent sampled heap in use",
		})
		prometheus.MustRegister(
			metrics.accepted, metrics.rejected,
			metrics.inFlight, metrics.lag, metrics.heap,
		)
	})
	return &metrics
}
