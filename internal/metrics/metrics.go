package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LedgerOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Completed ledger operations",
		},
		[]string{"op"}, // deposit|withdraw|transfer|register|delete_account
	)
	LedgerOpsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_failed_total",
			Help: "Failed ledger operations",
		},
		[]string{"op"},
	)
	BackupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "store_backups_total",
			Help: "Completed store backups",
		},
	)
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(LedgerOpsTotal)
	prometheus.MustRegister(LedgerOpsFailed)
	prometheus.MustRegister(BackupsTotal)
	prometheus.MustRegister(WorkerQueueDepth)
}
