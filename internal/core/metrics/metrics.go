package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderAttempts counts every provider call by outcome
	// (ok, not_found, transient, fatal).
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wbot",
			Subsystem: "provider",
			Name:      "attempts_total",
			Help:      "Provider calls by operation, provider and outcome",
		},
		[]string{"op", "provider", "outcome"},
	)

	// ProviderFallbacks counts switches from one provider to the next
	ProviderFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wbot",
			Subsystem: "provider",
			Name:      "fallbacks_total",
			Help:      "Fallbacks from an exhausted provider",
		},
		[]string{"op", "from"},
	)

	// PipelineRuns counts finished pipelines by result
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wbot",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Finished media pipelines by result",
		},
		[]string{"result"},
	)

	// PipelineDuration observes end-to-end pipeline latency
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wbot",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end pipeline duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Deliveries counts sent artifacts by mode (audio, video, document)
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wbot",
			Subsystem: "delivery",
			Name:      "sent_total",
			Help:      "Delivered artifacts by mode",
		},
		[]string{"mode"},
	)

	// DeliveredBytes sums the size of delivered artifacts
	DeliveredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wbot",
			Subsystem: "delivery",
			Name:      "bytes_total",
			Help:      "Bytes delivered to conversations",
		},
	)

	// Confirmations counts confirmation contexts by terminal state
	Confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wbot",
			Subsystem: "confirm",
			Name:      "contexts_total",
			Help:      "Confirmation contexts by terminal state",
		},
		[]string{"state"},
	)

	// Commands counts classified inbound commands
	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wbot",
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Inbound commands by kind",
		},
		[]string{"command"},
	)
)
