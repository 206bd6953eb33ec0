package llm

import "context"

// Message is one turn in a chat-completion conversation.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Tool describes a function the model may request.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a model request to invoke a tool. Arguments is the raw JSON
// string exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Completion is the model's reply to one request.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Provider is a chat-completion backend.
type Provider interface {
	// Complete sends the conversation and returns the model's next turn.
	Complete(ctx context.Context, messages []Message, tools []Tool) (Completion, error)
	// Name identifies the backend for logging and metrics.
	Name() string
}
