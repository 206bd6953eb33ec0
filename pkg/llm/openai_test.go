package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewProvider(Config{
		Provider: "groq",
		Model:    "llama-3.3-70b-versatile",
		APIKey:   "test-key",
		APIURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("failed to build provider: %v", err)
	}
	return provider
}

func TestCompleteDecodesTextAnswer(t *testing.T) {
	var captured completionRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"Hello there"},"finish_reason":"stop"}]}`))
	})

	completion, err := provider.Complete(context.Background(),
		[]Message{{Role: "user", Content: "hi"}},
		[]Tool{{Name: "get_reminders", Description: "reminders", Parameters: map[string]any{"type": "object"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion.Content != "Hello there" {
		t.Errorf("unexpected content: %q", completion.Content)
	}
	if len(completion.ToolCalls) != 0 {
		t.Errorf("unexpected tool calls: %+v", completion.ToolCalls)
	}

	if captured.Stream {
		t.Error("requests must not ask for streaming")
	}
	if captured.ToolChoice != "auto" {
		t.Errorf("tool_choice should be auto when tools are sent, got %q", captured.ToolChoice)
	}
	if captured.Temperature != defaultTemperature || captured.MaxTokens != defaultMaxTokens || captured.TopP != defaultTopP {
		t.Errorf("generation defaults not applied: %+v", captured)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "get_reminders" {
		t.Errorf("tools not encoded: %+v", captured.Tools)
	}
}

func TestCompleteDecodesToolCalls(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"","tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"get_prescriptions","arguments":"{}"}}
		]},"finish_reason":"tool_calls"}]}`))
	})

	completion, err := provider.Complete(context.Background(), []Message{{Role: "user", Content: "meds?"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(completion.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(completion.ToolCalls))
	}
	call := completion.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "get_prescriptions" || call.Arguments != "{}" {
		t.Errorf("unexpected tool call: %+v", call)
	}
}

func TestCompleteEncodesToolTurns(t *testing.T) {
	var captured struct {
		Messages []map[string]any `json:"messages"`
	}
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	messages := []Message{
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_1", Name: "get_reminders", Arguments: "{}"}}},
		{Role: "tool", Content: `{"message":"none"}`, Name: "get_reminders", ToolCallID: "call_1"},
	}
	if _, err := provider.Complete(context.Background(), messages, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected 2 wire messages, got %d", len(captured.Messages))
	}
	assistant := captured.Messages[0]
	calls, ok := assistant["tool_calls"].([]any)
	if !ok || len(calls) != 1 {
		t.Fatalf("assistant tool_calls not encoded: %v", assistant)
	}
	first := calls[0].(map[string]any)
	if first["type"] != "function" {
		t.Errorf("tool call type should be function, got %v", first["type"])
	}
	toolTurn := captured.Messages[1]
	if toolTurn["tool_call_id"] != "call_1" || toolTurn["role"] != "tool" {
		t.Errorf("tool turn not encoded: %v", toolTurn)
	}
}

func TestCompleteSurfacesAPIErrors(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit reached","type":"tokens"}}`))
	})

	_, err := provider.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewProviderValidation(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "groq", Model: "m"}); err == nil {
		t.Error("groq without an API key should fail")
	}
	if _, err := NewProvider(Config{Provider: "groq", APIKey: "k"}); err == nil {
		t.Error("missing model should fail")
	}
	if _, err := NewProvider(Config{Provider: "ollama", Model: "llama3"}); err != nil {
		t.Errorf("ollama should not require an API key: %v", err)
	}
	if _, err := NewProvider(Config{Provider: "bedrock", Model: "m"}); err == nil {
		t.Error("unknown provider should fail")
	}
}
