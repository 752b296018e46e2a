package surveyports

import (
	"context"
)

// Message roles understood by providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// PromptMessage represents a single chat message in a survey conversation.
type PromptMessage struct {
	Role    string
	Content string
	// ToolCalls is set on assistant messages that invoked a tool.
	ToolCalls []ToolCall
	// ToolCallID links a tool-result message to the call it answers.
	ToolCallID string
}

// HasToolCalls reports whether the message carries at least one tool invocation.
func (m PromptMessage) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// PromptInput aggregates everything the provider needs to produce a completion.
type PromptInput struct {
	System   string            // system instructions for this turn
	Messages []PromptMessage   // ordered chat history
	Tools    []ToolSpec        // tool declarations available to the model
	Meta     map[string]string // run metadata for tracing
}

// Options controls sampling and limits for a single provider call.
type Options struct {
	Model        string
	MaxNewTokens int
	Temperature  float32
	// ToolChoice: "auto" | "none" | "required"
	ToolChoice string
	// TimeoutMs applies to the provider call only
	TimeoutMs int
}

// Usage captures token accounting for telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the provider's response to one prompt.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
	Raw       any
	Usage     *Usage
}

// Provider is the abstraction for the language model backend.
type Provider interface {
	Complete(ctx context.Context, in PromptInput, opts Options) (Completion, error)
}
