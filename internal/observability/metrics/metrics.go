package metrics

import "github.com/prometheus/client_golang/prometheus"

// PlatformMetrics exposes counters/histograms for the conversational and
// analytics flows.
type PlatformMetrics struct {
	chatTurnsTotal  *prometheus.CounterVec
	workflowTotal   *prometheus.CounterVec
	analysisTotal   *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
	bookingAttempts *prometheus.CounterVec
}

func NewPlatformMetrics(reg prometheus.Registerer) *PlatformMetrics {
	m := &PlatformMetrics{
		chatTurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total processed chat turns",
		}, []string{"intent", "status"}),
		workflowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Total scheduling workflow runs",
		}, []string{"outcome", "failed_step"}),
		analysisTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Total analysis requests",
		}, []string{"mode"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "practice",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Latency of chat turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		bookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "slots",
			Name:      "booking_attempts_total",
			Help:      "Total slot booking attempts",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTurnsTotal, m.workflowTotal, m.analysisTotal, m.turnLatency, m.bookingAttempts)
	return m
}

func (m *PlatformMetrics) ObserveChatTurn(intent, status string, seconds float64) {
	if m == nil {
		return
	}
	m.chatTurnsTotal.WithLabelValues(intent, status).Inc()
	m.turnLatency.WithLabelValues(intent).Observe(seconds)
}

func (m *PlatformMetrics) ObserveWorkflowRun(outcome, failedStep string) {
	if m == nil {
		return
	}
	m.workflowTotal.WithLabelValues(outcome, failedStep).Inc()
}

func (m *PlatformMetrics) ObserveAnalysis(fallback bool) {
	if m == nil {
		return
	}
	mode := "generated"
	if fallback {
		mode = "fallback"
	}
	m.analysisTotal.WithLabelValues(mode).Inc()
}

func (m *PlatformMetrics) ObserveBookingAttempt(result string) {
	if m == nil {
		return
	}
	m.bookingAttempts.WithLabelValues(result).Inc()
}
