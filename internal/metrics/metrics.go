package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks finished bridge runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_runs_total",
			Help: "Total number of finished bridge runs",
		},
		[]string{"outcome"},
	)

	// RunInProgress is 1 while a run owns the orchestrator
	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_run_in_progress",
			Help: "Whether a bridge run is currently executing",
		},
	)

	// StepDuration tracks submit-to-confirmation time per step
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_step_duration_seconds",
			Help:    "Time from submission to confirmation per step",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"step"},
	)

	// StepFailures tracks failed steps by error kind
	StepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_step_failures_total",
			Help: "Total number of failed bridge steps",
		},
		[]string{"step", "kind"},
	)

	// RPCCallsTotal tracks RPC calls per chain and provider
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"chain", "provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per chain and provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"chain", "provider", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain", "method"},
	)

	// DBConnectionPoolUsage tracks database connection pool usage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_db_connection_pool_usage_percent",
			Help: "Percentage of database connection pool in use",
		},
	)

	// JournalErrorsTotal counts run snapshots that could not be persisted
	JournalErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_journal_errors_total",
			Help: "Total number of failed run journal writes",
		},
	)

	// ProviderAvailable is 1 while an RPC provider accepts requests
	ProviderAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_rpc_provider_available",
			Help: "Whether an RPC provider is available (1) or not (0)",
		},
		[]string{"chain", "provider"},
	)

	// JournalPrunedTotal counts finished runs removed by retention
	JournalPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_journal_pruned_total",
			Help: "Total number of journaled runs removed by retention",
		},
	)
)
