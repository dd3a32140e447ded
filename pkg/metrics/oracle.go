package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OracleMetrics records oracle confirmation outcomes.
type OracleMetrics struct {
	confirmations *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	rateLimited   prometheus.Counter
}

// NewOracleMetrics registers oracle confirmation metrics on the provided registerer.
func NewOracleMetrics(reg prometheus.Registerer) *OracleMetrics {
	if reg == nil {
		return &OracleMetrics{}
	}
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_confirmations_total",
		Help: "Accepted oracle confirmations by event type.",
	}, []string{"event_type"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_rejections_total",
		Help: "Rejected oracle confirmations by reason.",
	}, []string{"reason"})
	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_rate_limited_total",
		Help: "Confirmations dropped by the per-oracle rate limit.",
	})
	reg.MustRegister(confirmations, rejections, rateLimited)
	return &OracleMetrics{
		confirmations: confirmations,
		rejections:    rejections,
		rateLimited:   rateLimited,
	}
}

// IncConfirmation increments the accepted confirmation counter.
func (o *OracleMetrics) IncConfirmation(eventType string) {
	if o == nil || o.confirmations == nil {
		return
	}
	o.confirmations.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncRejection increments the rejection counter with the given reason.
func (o *OracleMetrics) IncRejection(reason string) {
	if o == nil || o.rejections == nil {
		return
	}
	o.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncRateLimited increments the rate limit drop counter.
func (o *OracleMetrics) IncRateLimited() {
	if o == nil || o.rateLimited == nil {
		return
	}
	o.rateLimited.Inc()
}
