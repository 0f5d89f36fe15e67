package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SamplingCycles counts sampling cycles by result (ok, failed, baseline)
	SamplingCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portguard",
			Name:      "sampling_cycles_total",
			Help:      "Total number of port sampling cycles",
		},
		[]string{"result"},
	)

	// ObservedEndpoints is the size of the latest snapshot
	ObservedEndpoints = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portguard",
			Name:      "observed_endpoints",
			Help:      "Number of endpoints in the latest snapshot",
		},
	)

	// PortEvents counts emitted port events
	PortEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portguard",
			Name:      "port_events_total",
			Help:      "Total number of port events",
		},
		[]string{"type", "risk"},
	)

	// PolicyDecisions counts automatic policy decisions
	PolicyDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portguard",
			Name:      "policy_decisions_total",
			Help:      "Total number of automatic policy decisions",
		},
		[]string{"decision"},
	)

	// OperatorActions counts operator responses
	OperatorActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portguard",
			Name:      "operator_actions_total",
			Help:      "Total number of operator actions",
		},
		[]string{"action", "result"},
	)

	// FirewallOperations counts firewall rule mutations
	FirewallOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portguard",
			Name:      "firewall_operations_total",
			Help:      "Total number of firewall rule operations",
		},
		[]string{"operation", "result"},
	)

	// EventsPurged counts events removed by retention
	EventsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portguard",
			Name:      "events_purged_total",
			Help:      "Total number of port events removed by retention",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// It is safe to call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(SamplingCycles)
		prometheus.DefaultRegisterer.Register(ObservedEndpoints)
		prometheus.DefaultRegisterer.Register(PortEvents)
		prometheus.DefaultRegisterer.Register(PolicyDecisions)
		prometheus.DefaultRegisterer.Register(OperatorActions)
		prometheus.DefaultRegisterer.Register(FirewallOperations)
		prometheus.DefaultRegisterer.Register(EventsPurged)
	})
}

// Result maps an error to a metric label
func Result(err error) string {
	if err != nil {
		return "failed"
	}

	return "ok"
}
