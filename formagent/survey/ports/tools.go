package surveyports

import (
	"context"
	"encoding/json"
)

// ToolSpec describes a callable tool exposed to the model.
type ToolSpec struct {
	Name        string
	Description string
	JSONSchema  []byte
}

// ToolCall represents a model-invoked function with JSON arguments.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// Tool defines the runtime that handles a tool call.
type Tool interface {
	Name() string
	Schema() []byte
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}
