package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "api_requests_total",
		Help:      "Calls made to the transport API, by operation and outcome.",
	}, []string{"op", "outcome"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rollcall",
		Name:      "api_request_duration_seconds",
		Help:      "Latency of calls made to the transport API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	journalEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "journal_entries_total",
		Help:      "Journal entries handled, by type and result.",
	}, []string{"type", "result"})

	workspaces = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rollcall",
		Name:      "workspaces",
		Help:      "Live session workspaces.",
	})
)

// ObserveAPI records one API call. outcome is "ok" or an error kind.
func ObserveAPI(op, outcome string, took time.Duration) {
	apiRequests.WithLabelValues(op, outcome).Inc()
	apiLatency.WithLabelValues(op).Observe(took.Seconds())
}

// JournalEntry counts a journal entry by type and result ("published",
// "stored", "failed").
func JournalEntry(typ, result string) {
	journalEntries.WithLabelValues(typ, result).Inc()
}

// SetWorkspaces reports the number of live workspaces.
func SetWorkspaces(n int) {
	workspaces.Set(float64(n))
}
