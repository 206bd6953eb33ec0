package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"healthworks/api_assistant/pkg/llm"
	"healthworks/api_assistant/pkg/logging"
)

const (
	defaultMaxToolRounds   = 5
	maxConcurrentToolCalls = 3

	// fallbackResponse is returned when the model produced no usable text,
	// including when the round cap is hit mid tool-use.
	fallbackResponse = "I could not generate a response. Please try again."
)

// Gateway is the model surface the orchestrator drives.
type Gateway interface {
	Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (AssistantTurn, error)
}

// ToolRunner executes a single tool call and always returns a payload.
type ToolRunner interface {
	Execute(ctx context.Context, name string, ownerID int64) string
}

// Orchestrator drives the model/tool conversation loop for one request.
type Orchestrator struct {
	gateway   Gateway
	executor  ToolRunner
	logger    logging.Logger
	tools     []llm.Tool
	maxRounds int
}

// NewOrchestrator creates an orchestrator. maxRounds <= 0 selects the
// default cap.
func NewOrchestrator(gateway Gateway, executor ToolRunner, logger logging.Logger, maxRounds int) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}
	return &Orchestrator{
		gateway:   gateway,
		executor:  executor,
		logger:    logger,
		tools:     ToolSchemas(),
		maxRounds: maxRounds,
	}
}

// Run drives the loop to a final text answer. Tool failures surface to the
// model as payloads and never abort the loop; model transport failures do.
func (o *Orchestrator) Run(ctx context.Context, ownerID int64, messages []llm.Message) (string, error) {
	if o.gateway == nil {
		return "", errors.New("model gateway is required")
	}

	turn, err := o.gateway.Complete(ctx, messages, o.tools)
	if err != nil {
		return "", err
	}

	rounds := 0
	for len(turn.ToolCalls) > 0 && rounds < o.maxRounds {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rounds++
		o.logger.WithFields(map[string]interface{}{
			"round":      rounds,
			"tool_calls": len(turn.ToolCalls),
		}).Debug("Executing tool round")

		messages = withAssistantTurn(messages, turn)
		results := o.runToolCalls(ctx, ownerID, turn.ToolCalls)
		messages = withToolResults(messages, turn.ToolCalls, results)

		turn, err = o.gateway.Complete(ctx, messages, o.tools)
		if err != nil {
			return "", err
		}
	}
	toolRoundsPerChat.Observe(float64(rounds))

	if len(turn.ToolCalls) > 0 {
		o.logger.WithField("rounds", rounds).Warn("Tool round cap reached with calls still pending")
	}

	text := strings.TrimSpace(turn.Text)
	if text == "" {
		return fallbackResponse, nil
	}
	return text, nil
}

// runToolCalls fans the calls out with bounded concurrency and returns the
// payloads indexed to match the request order.
func (o *Orchestrator) runToolCalls(ctx context.Context, ownerID int64, calls []llm.ToolCall) []string {
	results := make([]string, len(calls))
	sem := make(chan struct{}, maxConcurrentToolCalls)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, call llm.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			results[idx] = o.executor.Execute(ctx, call.Name, ownerID)
			toolCallDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
			toolCallsTotal.WithLabelValues(call.Name).Inc()
		}(i, call)
	}
	wg.Wait()
	return results
}

// withAssistantTurn returns a new message slice with the assistant turn
// appended. The input slice is never mutated.
func withAssistantTurn(messages []llm.Message, turn AssistantTurn) []llm.Message {
	next := make([]llm.Message, len(messages), len(messages)+1)
	copy(next, messages)
	return append(next, llm.Message{
		Role:      "assistant",
		Content:   turn.Text,
		ToolCalls: turn.ToolCalls,
	})
}

// withToolResults returns a new message slice with one tool turn per call,
// in the order the model requested them.
func withToolResults(messages []llm.Message, calls []llm.ToolCall, results []string) []llm.Message {
	next := make([]llm.Message, len(messages), len(messages)+len(calls))
	copy(next, messages)
	for i, call := range calls {
		next = append(next, llm.Message{
			Role:       "tool",
			Content:    results[i],
			Name:       call.Name,
			ToolCallID: call.ID,
		})
	}
	return next
}
