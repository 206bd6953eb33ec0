package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"healthworks/api_assistant/pkg/llm"
	"healthworks/api_assistant/pkg/logging"
)

// scriptedGateway returns its turns in order, recording the messages it was
// given on each call.
type scriptedGateway struct {
	turns []AssistantTurn
	err   error

	mu       sync.Mutex
	calls    int
	received [][]llm.Message
}

func (g *scriptedGateway) Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (AssistantTurn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.received = append(g.received, messages)
	if g.err != nil {
		return AssistantTurn{}, g.err
	}
	turn := g.turns[g.calls]
	if g.calls < len(g.turns)-1 {
		g.calls++
	}
	return turn, nil
}

// recordingExecutor returns a canned payload per tool, optionally delaying
// some tools to exercise out-of-order completion.
type recordingExecutor struct {
	delays map[string]time.Duration

	mu    sync.Mutex
	names []string
}

func (e *recordingExecutor) Execute(ctx context.Context, name string, ownerID int64) string {
	if d, ok := e.delays[name]; ok {
		time.Sleep(d)
	}
	e.mu.Lock()
	e.names = append(e.names, name)
	e.mu.Unlock()
	return fmt.Sprintf(`{"message":"result of %s"}`, name)
}

func testLogger() logging.Logger {
	logger := logging.NewLogger()
	logger.SetOutput(nopWriter{})
	return logger
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func userOnly(text string) []llm.Message {
	return []llm.Message{{Role: "user", Content: text}}
}

func TestRunReturnsDirectAnswerWithoutTools(t *testing.T) {
	gateway := &scriptedGateway{turns: []AssistantTurn{{Text: "Hello! How can I help?"}}}
	o := NewOrchestrator(gateway, &recordingExecutor{}, testLogger(), 0)

	answer, err := o.Run(context.Background(), 7, userOnly("hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Hello! How can I help?" {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(gateway.received) != 1 {
		t.Errorf("expected a single model call, got %d", len(gateway.received))
	}
}

func TestRunExecutesOneToolRoundThenAnswers(t *testing.T) {
	gateway := &scriptedGateway{turns: []AssistantTurn{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_prescriptions", Arguments: "{}"}}},
		{Text: "You have 2 active prescriptions."},
	}}
	executor := &recordingExecutor{}
	o := NewOrchestrator(gateway, executor, testLogger(), 0)

	answer, err := o.Run(context.Background(), 7, userOnly("what are my medications?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "You have 2 active prescriptions." {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(executor.names) != 1 || executor.names[0] != "get_prescriptions" {
		t.Errorf("expected one executed tool, got %v", executor.names)
	}

	// Second model call must carry the assistant turn plus the tool result.
	second := gateway.received[1]
	if len(second) != 3 {
		t.Fatalf("expected 3 messages on second call, got %d", len(second))
	}
	assistant := second[1]
	if assistant.Role != "assistant" || len(assistant.ToolCalls) != 1 {
		t.Errorf("assistant turn not appended correctly: %+v", assistant)
	}
	toolMsg := second[2]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call_1" || toolMsg.Name != "get_prescriptions" {
		t.Errorf("tool turn not appended correctly: %+v", toolMsg)
	}
}

func TestRunAppendsToolResultsInRequestOrder(t *testing.T) {
	calls := []llm.ToolCall{
		{ID: "call_1", Name: "get_prescriptions", Arguments: "{}"},
		{ID: "call_2", Name: "get_reminders", Arguments: "{}"},
		{ID: "call_3", Name: "get_doctors", Arguments: "{}"},
		{ID: "call_4", Name: "get_health_records", Arguments: "{}"},
	}
	gateway := &scriptedGateway{turns: []AssistantTurn{
		{ToolCalls: calls},
		{Text: "done"},
	}}
	// The first requested tool finishes last.
	executor := &recordingExecutor{delays: map[string]time.Duration{
		"get_prescriptions": 50 * time.Millisecond,
		"get_reminders":     20 * time.Millisecond,
	}}
	o := NewOrchestrator(gateway, executor, testLogger(), 0)

	if _, err := o.Run(context.Background(), 7, userOnly("everything please")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := gateway.received[1]
	toolTurns := second[len(second)-len(calls):]
	for i, call := range calls {
		if toolTurns[i].ToolCallID != call.ID {
			t.Errorf("tool turn %d has id %q, want %q", i, toolTurns[i].ToolCallID, call.ID)
		}
		want := fmt.Sprintf(`{"message":"result of %s"}`, call.Name)
		if toolTurns[i].Content != want {
			t.Errorf("tool turn %d content = %q, want %q", i, toolTurns[i].Content, want)
		}
	}
}

func TestRunStopsAtRoundCapWithFallback(t *testing.T) {
	// The model keeps requesting tools forever.
	gateway := &scriptedGateway{turns: []AssistantTurn{
		{ToolCalls: []llm.ToolCall{{ID: "call_x", Name: "get_reminders", Arguments: "{}"}}},
	}}
	executor := &recordingExecutor{}
	o := NewOrchestrator(gateway, executor, testLogger(), 5)

	answer, err := o.Run(context.Background(), 7, userOnly("loop forever"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != fallbackResponse {
		t.Errorf("expected fallback answer at round cap, got %q", answer)
	}
	if got := len(executor.names); got != 5 {
		t.Errorf("expected exactly 5 tool rounds, got %d", got)
	}
	// Initial call plus one per round.
	if got := len(gateway.received); got != 6 {
		t.Errorf("expected 6 model calls, got %d", got)
	}
}

func TestRunUsesRoundCapTextWhenPresent(t *testing.T) {
	gateway := &scriptedGateway{turns: []AssistantTurn{
		{Text: "still digging", ToolCalls: []llm.ToolCall{{ID: "call_x", Name: "get_reminders", Arguments: "{}"}}},
	}}
	o := NewOrchestrator(gateway, &recordingExecutor{}, testLogger(), 2)

	answer, err := o.Run(context.Background(), 7, userOnly("loop"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "still digging" {
		t.Errorf("expected last turn text at round cap, got %q", answer)
	}
}

func TestRunReturnsFallbackForEmptyAnswer(t *testing.T) {
	gateway := &scriptedGateway{turns: []AssistantTurn{{Text: "   "}}}
	o := NewOrchestrator(gateway, &recordingExecutor{}, testLogger(), 0)

	answer, err := o.Run(context.Background(), 7, userOnly("hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != fallbackResponse {
		t.Errorf("expected fallback for empty text, got %q", answer)
	}
}

func TestRunPropagatesModelErrors(t *testing.T) {
	gateway := &scriptedGateway{err: errors.New("model unavailable")}
	o := NewOrchestrator(gateway, &recordingExecutor{}, testLogger(), 0)

	if _, err := o.Run(context.Background(), 7, userOnly("hi")); err == nil {
		t.Fatal("expected model error to propagate")
	}
}

func TestRunDoesNotMutateInputMessages(t *testing.T) {
	gateway := &scriptedGateway{turns: []AssistantTurn{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_reminders", Arguments: "{}"}}},
		{Text: "ok"},
	}}
	o := NewOrchestrator(gateway, &recordingExecutor{}, testLogger(), 0)

	input := make([]llm.Message, 1, 8)
	input[0] = llm.Message{Role: "user", Content: "hi"}

	if _, err := o.Run(context.Background(), 7, input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(input) != 1 || input[0].Content != "hi" {
		t.Errorf("input slice was mutated: %+v", input)
	}
	// Spare capacity in the caller's slice must not have been written into.
	extended := input[:2]
	if extended[1].Role == "assistant" {
		t.Error("orchestrator appended into the caller's backing array")
	}
}
