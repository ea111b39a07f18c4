package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venture_pulse_turns_total",
		Help: "Conversation turns by outcome",
	}, []string{"outcome"})

	modelInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venture_pulse_model_invocations_total",
		Help: "Model invocations by result",
	}, []string{"result"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venture_pulse_tool_calls_total",
		Help: "Tool calls requested by the model",
	}, []string{"tool", "result"})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "venture_pulse_turn_duration_seconds",
		Help:    "Wall time of a conversation turn",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)
