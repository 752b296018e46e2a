package surveyports

import (
	"context"
	"time"
)

// Turn is one persisted transcript entry.
type Turn struct {
	RunID      string     `json:"run_id"`
	UserID     string     `json:"user_id"`
	Seq        int        `json:"seq"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TranscriptStore records conversation messages for auditing. The agent never
// reads answers back from it.
type TranscriptStore interface {
	SaveTurn(ctx context.Context, turn Turn) error
	LoadTranscript(ctx context.Context, runID string) ([]Turn, error)
}
