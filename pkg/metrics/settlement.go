package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics counts sweep outcomes so fairness and throughput are
// observable per tick.
type SettlementMetrics struct {
	settled  prometheus.Counter
	notReady prometheus.Counter
	failed   prometheus.Counter
}

// NewSettlementMetrics registers sweep counters on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	settled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_sweep_settled_total",
		Help: "Payments promoted to settled by the sweeper.",
	})
	notReady := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_sweep_not_ready_total",
		Help: "Payments evaluated but not yet due for settlement.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_sweep_failed_total",
		Help: "Payments whose settlement attempt failed and will retry.",
	})
	reg.MustRegister(settled, notReady, failed)
	return &SettlementMetrics{settled: settled, notReady: notReady, failed: failed}
}

// AddSettled records promoted payments.
func (m *SettlementMetrics) AddSettled(n int) {
	if m == nil || m.settled == nil {
		return
	}
	m.settled.Add(float64(n))
}

// AddNotReady records payments left unsettled.
func (m *SettlementMetrics) AddNotReady(n int) {
	if m == nil || m.notReady == nil {
		return
	}
	m.notReady.Add(float64(n))
}

// AddFailed records per-record sweep failures.
func (m *SettlementMetrics) AddFailed(n int) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.Add(float64(n))
}
