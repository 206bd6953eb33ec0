package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "florence",
		Name:      "llm_calls_total",
		Help:      "Model completion calls by provider and outcome",
	}, []string{"provider", "status"})

	llmCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "florence",
		Name:      "llm_call_duration_seconds",
		Help:      "Model completion latency",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "florence",
		Name:      "tool_calls_total",
		Help:      "Tool executions by tool name",
	}, []string{"tool"})

	toolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "florence",
		Name:      "tool_call_duration_seconds",
		Help:      "Tool execution latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})

	toolRoundsPerChat = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "florence",
		Name:      "tool_rounds_per_chat",
		Help:      "Tool rounds used per chat request",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	})

	fallbackParsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "florence",
		Name:      "inline_tool_call_parses_total",
		Help:      "Replies whose tool calls were recovered from inline markers",
	})

	historyLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "florence",
		Name:      "history_load_failures_total",
		Help:      "Conversation history reads that failed and degraded to empty",
	})
)
