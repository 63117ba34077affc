package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// AnalyzeTotal counts completed analyze calls by outcome.
	AnalyzeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "farmpulse",
		Subsystem: "diagnosis",
		Name:      "analyze_total",
		Help:      "Total number of analyze calls, labeled by outcome.",
	}, []string{"outcome"})

	// AnalyzeDurationSeconds is end-to-end time per analyze call, including
	// the inference round trip.
	AnalyzeDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "farmpulse",
		Subsystem: "diagnosis",
		Name:      "analyze_duration_seconds",
		Help:      "End-to-end time to handle one analyze call.",
		// Inference dominates; keep buckets coarse on the long tail.
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
	}, []string{"outcome"})

	// HistoryWriteErrorTotal counts durable-store write failures. These are
	// swallowed by the pipeline, so the counter is the only loss signal.
	HistoryWriteErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "farmpulse",
		Subsystem: "diagnosis",
		Name:      "history_write_error_total",
		Help:      "Total number of swallowed durable history write failures.",
	})

	// MirrorFallbackTotal counts history reads served from the in-memory
	// mirror because the durable store was unreachable.
	MirrorFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "farmpulse",
		Subsystem: "diagnosis",
		Name:      "history_mirror_fallback_total",
		Help:      "Total number of history listings served from the in-memory mirror.",
	})

	// TelemetryRequestTotal counts telemetry store calls by operation and result.
	TelemetryRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "farmpulse",
		Subsystem: "telemetry",
		Name:      "request_total",
		Help:      "Total number of telemetry store calls, labeled by operation and result.",
	}, []string{"op", "result"})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AnalyzeTotal,
			AnalyzeDurationSeconds,
			HistoryWriteErrorTotal,
			MirrorFallbackTotal,
			TelemetryRequestTotal,
		)
	})
}
