package docengine

import "github.com/prometheus/client_golang/prometheus"

// Metrics are package-level vars registered once in init, following
// cuemby-warren's pkg/metrics idiom (plain prometheus.New*/MustRegister
// at package scope rather than a per-instance registry).
var (
	walAppendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docengine_wal_append_total",
			Help: "Total WAL records appended, by entry type.",
		},
		[]string{"entry_type"},
	)

	walAppendSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "docengine_wal_append_seconds",
			Help: "Latency of WAL append calls, by entry type.",
		},
		[]string{"entry_type"},
	)

	dispatchInflightSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docengine_dispatch_inflight_sessions",
			Help: "Number of sessions currently registered in the dispatcher's in-flight table.",
		},
	)

	checkpointFlushTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docengine_checkpoint_flush_total",
			Help: "Total successful disk checkpoint flushes.",
		},
	)
)

func init() {
	prometheus.MustRegister(walAppendTotal)
	prometheus.MustRegister(walAppendSeconds)
	prometheus.MustRegister(dispatchInflightSessions)
	prometheus.MustRegister(checkpointFlushTotal)
}
