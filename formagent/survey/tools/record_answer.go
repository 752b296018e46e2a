package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// RecordAnswerName is the function name the model calls to accept an answer.
const RecordAnswerName = "record_answer"

// RecordAnswerSchema defines the JSON schema for record_answer arguments.
const RecordAnswerSchema = `{
  "type": "object",
  "properties": {
    "name": {
      "type": "string",
      "description": "Short label for the answered question, for example \"name\" or \"age\""
    },
    "value": {
      "type": "string",
      "minLength": 1,
      "description": "The answer extracted from the user's reply, normalized to plain text"
    }
  },
  "required": ["name", "value"],
  "additionalProperties": false
}`

const recordAnswerDescription = "Record the user's answer to the current survey question. " +
	"Call this only when the user has answered the current question clearly."

// RecordAnswerArgs are the decoded arguments of a record_answer call.
type RecordAnswerArgs struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RecordAnswerResult is the payload returned to the model after a call.
type RecordAnswerResult struct {
	Recorded bool   `json:"recorded"`
	Name     string `json:"name"`
}

// RecordAnswerTool exposes answer acceptance to the model.
type RecordAnswerTool struct{}

// NewRecordAnswerTool creates the record_answer tool.
func NewRecordAnswerTool() *RecordAnswerTool {
	return &RecordAnswerTool{}
}

func (t *RecordAnswerTool) Name() string { return RecordAnswerName }

func (t *RecordAnswerTool) Description() string { return recordAnswerDescription }

func (t *RecordAnswerTool) Schema() []byte { return []byte(RecordAnswerSchema) }

// Spec returns the declaration sent to the provider.
func (t *RecordAnswerTool) Spec() ports.ToolSpec {
	return ports.ToolSpec{
		Name:        t.Name(),
		Description: t.Description(),
		JSONSchema:  t.Schema(),
	}
}

// Invoke decodes the call arguments and acknowledges them. Persisting the value
// is left to the caller so nothing is written before the call is fully validated.
func (t *RecordAnswerTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	parsed, err := ParseRecordAnswerArgs(args)
	if err != nil {
		return nil, err
	}
	return RecordAnswerResult{Recorded: true, Name: parsed.Name}, nil
}

// ParseRecordAnswerArgs decodes record_answer arguments. The value is trimmed
// and must not be blank.
func ParseRecordAnswerArgs(args json.RawMessage) (RecordAnswerArgs, error) {
	var parsed RecordAnswerArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return RecordAnswerArgs{}, fmt.Errorf("invalid %s arguments: %w", RecordAnswerName, err)
	}
	parsed.Name = strings.TrimSpace(parsed.Name)
	parsed.Value = strings.TrimSpace(parsed.Value)
	if parsed.Value == "" {
		return RecordAnswerArgs{}, fmt.Errorf("%s value cannot be empty", RecordAnswerName)
	}
	return parsed, nil
}

var _ ports.Tool = (*RecordAnswerTool)(nil)
