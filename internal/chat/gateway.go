package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"healthworks/api_assistant/pkg/llm"
)

// Some models emit tool requests inline in the text instead of the
// structured tool_calls field. The markers look like
// <function=get_prescriptions></function>.
var inlineToolCallPattern = regexp.MustCompile(`<function=(\w+)></function>`)

// AssistantTurn is one normalized model reply.
type AssistantTurn struct {
	Text      string
	ToolCalls []llm.ToolCall
}

// ModelGateway wraps the LLM provider and normalizes its replies: structured
// tool calls pass through verbatim, and inline function markers are parsed
// into synthetic tool calls only when no structured ones were returned.
type ModelGateway struct {
	provider llm.Provider
	callSeq  atomic.Int64
}

// NewModelGateway creates a gateway over the provider.
func NewModelGateway(provider llm.Provider) *ModelGateway {
	return &ModelGateway{provider: provider}
}

// Complete sends the conversation and returns the normalized reply.
// Transport errors propagate to the caller.
func (g *ModelGateway) Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (AssistantTurn, error) {
	start := time.Now()
	completion, err := g.provider.Complete(ctx, messages, tools)
	llmCallDuration.WithLabelValues(g.provider.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		llmCallsTotal.WithLabelValues(g.provider.Name(), "error").Inc()
		return AssistantTurn{}, fmt.Errorf("model call failed: %w", err)
	}
	llmCallsTotal.WithLabelValues(g.provider.Name(), "success").Inc()

	turn := AssistantTurn{
		Text:      completion.Content,
		ToolCalls: completion.ToolCalls,
	}
	if len(turn.ToolCalls) == 0 && turn.Text != "" {
		turn = g.parseInlineToolCalls(turn)
	}
	return turn, nil
}

func (g *ModelGateway) parseInlineToolCalls(turn AssistantTurn) AssistantTurn {
	matches := inlineToolCallPattern.FindAllStringSubmatch(turn.Text, -1)
	if len(matches) == 0 {
		return turn
	}

	calls := make([]llm.ToolCall, 0, len(matches))
	for _, match := range matches {
		calls = append(calls, llm.ToolCall{
			ID:        g.nextCallID(),
			Name:      match[1],
			Arguments: "{}",
		})
	}
	fallbackParsesTotal.Inc()

	turn.ToolCalls = calls
	turn.Text = strings.TrimSpace(inlineToolCallPattern.ReplaceAllString(turn.Text, ""))
	return turn
}

// nextCallID synthesizes a process-unique id for calls the model did not
// label itself.
func (g *ModelGateway) nextCallID() string {
	return fmt.Sprintf("call_%d_%d", time.Now().UnixMilli(), g.callSeq.Add(1))
}
