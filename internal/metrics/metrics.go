package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the appointment lifecycle.
type BookingMetrics struct {
	operationsTotal  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	ratingRecomputes *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthcare",
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Appointment lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthcare",
			Subsystem: "booking",
			Name:      "operation_duration_seconds",
			Help:      "Latency of appointment lifecycle operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ratingRecomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthcare",
			Subsystem: "booking",
			Name:      "rating_recomputes_total",
			Help:      "Doctor rating recomputations by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.ratingRecomputes)
	return m
}

// ObserveOperation records one lifecycle call. outcome is "ok" or an error kind.
func (m *BookingMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveRatingRecompute(result string) {
	if m == nil {
		return
	}
	m.ratingRecomputes.WithLabelValues(result).Inc()
}
