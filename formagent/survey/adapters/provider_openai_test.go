package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// chatRequest captures the fields of a chat completion request the tests inspect.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role       string `json:"role"`
		Content    any    `json:"content"`
		ToolCallID string `json:"tool_call_id"`
		ToolCalls  []struct {
			ID       string `json:"id"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"messages"`
	Tools []struct {
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	} `json:"tools"`
	ToolChoice any `json:"tool_choice"`
}

func newChatServer(t *testing.T, status int, body string, captured *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_abc",
        "type": "function",
        "function": {"name": "record_answer", "arguments": "{\"name\":\"name\",\"value\":\"Ada\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

const textResponse = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "Could you tell me your name?"}
  }],
  "usage": {"prompt_tokens": 8, "completion_tokens": 7, "total_tokens": 15}
}`

func testInput() ports.PromptInput {
	return ports.PromptInput{
		System: "You are a friendly assistant conducting a survey.",
		Messages: []ports.PromptMessage{
			{Role: ports.RoleSystem, Content: "Let's begin the survey"},
			{Role: ports.RoleAssistant, Content: "What is your name?"},
			{Role: ports.RoleUser, Content: "Ada"},
		},
		Tools: []ports.ToolSpec{{
			Name:        "record_answer",
			Description: "Record an answer",
			JSONSchema:  []byte(`{"type":"object","properties":{"name":{"type":"string"},"value":{"type":"string"}},"required":["name","value"]}`),
		}},
	}
}

func TestOpenAIProvider_ToolCall(t *testing.T) {
	var req chatRequest
	srv := newChatServer(t, http.StatusOK, toolCallResponse, &req)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4"})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), testInput(), ports.Options{ToolChoice: "auto"})
	require.NoError(t, err)

	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_abc", out.ToolCalls[0].ID)
	assert.Equal(t, "record_answer", out.ToolCalls[0].Name)
	assert.JSONEq(t, `{"name":"name","value":"Ada"}`, string(out.ToolCalls[0].Args))
	require.NotNil(t, out.Usage)
	assert.Equal(t, 17, out.Usage.TotalTokens)

	assert.Equal(t, "gpt-4", req.Model)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[3].Role)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "record_answer", req.Tools[0].Function.Name)
	assert.Equal(t, "object", req.Tools[0].Function.Parameters["type"])
	assert.Equal(t, "auto", req.ToolChoice)
}

func TestOpenAIProvider_TextReply(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, textResponse, nil)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4"})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), testInput(), ports.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Could you tell me your name?", out.Text)
	assert.Empty(t, out.ToolCalls)
}

func TestOpenAIProvider_SendsToolHistory(t *testing.T) {
	var req chatRequest
	srv := newChatServer(t, http.StatusOK, textResponse, &req)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	in := testInput()
	in.Messages = append(in.Messages,
		ports.PromptMessage{
			Role:      ports.RoleAssistant,
			ToolCalls: []ports.ToolCall{{ID: "call_1", Name: "record_answer", Args: json.RawMessage(`{"name":"name","value":"Ada"}`)}},
		},
		ports.PromptMessage{Role: ports.RoleTool, Content: `{"recorded":true}`, ToolCallID: "call_1"},
	)

	_, err = p.Complete(context.Background(), in, ports.Options{Model: "gpt-4o-mini"})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 6)
	assistant := req.Messages[4]
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "call_1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "record_answer", assistant.ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", req.Messages[5].Role)
	assert.Equal(t, "call_1", req.Messages[5].ToolCallID)
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	srv := newChatServer(t, http.StatusBadRequest, `{"error":{"message":"bad request","type":"invalid_request_error"}}`, nil)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4"})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), testInput(), ports.Options{})
	assert.Error(t, err)
}

func TestOpenAIProvider_RequiresAPIKeyAndModel(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{})
	assert.Error(t, err)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), testInput(), ports.Options{})
	assert.ErrorContains(t, err, "no model configured")
}

func TestConvMessage_UnknownRole(t *testing.T) {
	_, err := convMessage(ports.PromptMessage{Role: "developer"})
	assert.Error(t, err)
}
