package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scangate_scan_outcomes_total",
		Help: "Processed scan outcomes by status.",
	}, []string{"status"})

	debounceDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scangate_debounce_dropped_total",
		Help: "Scan events dropped by the debounce filter.",
	})

	insertConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scangate_insert_conflicts_total",
		Help: "Attendance inserts rejected by the student-day unique index.",
	})
)
