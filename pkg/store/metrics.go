package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cipherrelay_store_messages_saved_total",
		Help: "Messages durably appended to the log.",
	})
	metricSaveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cipherrelay_store_save_errors_total",
		Help: "Failed message writes.",
	})
	metricListCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cipherrelay_store_history_reads_total",
		Help: "History (ListRecent) reads served by the store.",
	})

	// Gauges sampled by the monitor rather than updated inline; sampling
	// keeps Count scans off the submit path.
	MetricMessages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cipherrelay_store_messages",
		Help: "Persisted message count as of the last monitor sample.",
	})
	MetricDiskBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cipherrelay_store_disk_bytes",
		Help: "On-disk DB size in bytes as of the last monitor sample.",
	})
)
