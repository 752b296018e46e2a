package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// ErrRefused is returned when the model refuses to answer.
var ErrRefused = errors.New("model refused the request")

// OpenAIConfig configures the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty uses the public API
	Model      string // default model when Options.Model is empty
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIProvider implements the Provider port with chat completions and
// function tools.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider. The client never retries on its own.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider: missing api key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	return &OpenAIProvider{client: &client, model: cfg.Model}, nil
}

// Complete sends one chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	if opts.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	params, err := p.chatCompletion(in, opts)
	if err != nil {
		return ports.Completion{}, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.Completion{}, fmt.Errorf("openai chat: no choices")
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return ports.Completion{}, fmt.Errorf("%w: %s", ErrRefused, msg.Refusal)
	}

	out := ports.Completion{
		Text: msg.Content,
		Raw:  resp,
		Usage: &ports.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ports.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func (p *OpenAIProvider) chatCompletion(in ports.PromptInput, opts ports.Options) (openai.ChatCompletionNewParams, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}
	if model == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("openai chat: no model configured")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages)+1)
	if in.System != "" {
		messages = append(messages, openai.SystemMessage(in.System))
	}
	for _, m := range in.Messages {
		mp, err := convMessage(m)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, mp)
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if opts.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(opts.Temperature))
	}
	if opts.MaxNewTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(opts.MaxNewTokens))
	}

	for _, t := range in.Tools {
		fn := openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: param.NewOpt(t.Description),
		}
		if len(t.JSONSchema) > 0 {
			var schema map[string]any
			if err := json.Unmarshal(t.JSONSchema, &schema); err != nil {
				return openai.ChatCompletionNewParams{}, fmt.Errorf("tool %s: invalid schema: %w", t.Name, err)
			}
			fn.Parameters = openai.FunctionParameters(schema)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{Function: fn})
	}
	if len(params.Tools) > 0 && opts.ToolChoice != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt(opts.ToolChoice),
		}
	}
	return params, nil
}

func convMessage(m ports.PromptMessage) (openai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case ports.RoleSystem:
		return openai.SystemMessage(m.Content), nil
	case ports.RoleUser:
		return openai.UserMessage(m.Content), nil
	case ports.RoleTool:
		return openai.ToolMessage(m.Content, m.ToolCallID), nil
	case ports.RoleAssistant:
		if !m.HasToolCalls() {
			return openai.AssistantMessage(m.Content), nil
		}
		mp := openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{},
		}
		for _, tc := range m.ToolCalls {
			mp.OfAssistant.ToolCalls = append(mp.OfAssistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(tc.Args),
				},
			})
		}
		if m.Content != "" {
			mp.OfAssistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: param.NewOpt(m.Content),
			}
		}
		return mp, nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported message role: %q", m.Role)
	}
}

var _ ports.Provider = (*OpenAIProvider)(nil)
