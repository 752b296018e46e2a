package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
	"github.com/ZanzyTHEbar/form-agent/formagent/survey/tools"
)

var (
	ErrEmptyCompletion   = errors.New("model returned neither text nor a tool call")
	ErrMultipleToolCalls = errors.New("model returned more than one tool call")
)

// Validator asks the model whether the latest reply answers the current question.
type Validator struct {
	provider   ports.Provider
	tool       *tools.RecordAnswerTool
	guardrails *Guardrails
	builder    *PromptBuilder
	parser     *OutputParser
	limiter    ports.RateLimiter
	tracer     ports.Tracer
	opts       ports.Options
	now        func() time.Time
	logger     zerolog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithRateLimiter throttles provider calls.
func WithRateLimiter(l ports.RateLimiter) ValidatorOption {
	return func(v *Validator) { v.limiter = l }
}

// WithValidatorTracer traces every provider call.
func WithValidatorTracer(t ports.Tracer) ValidatorOption {
	return func(v *Validator) { v.tracer = t }
}

// WithProviderOptions sets the sampling options sent to the provider.
func WithProviderOptions(o ports.Options) ValidatorOption {
	return func(v *Validator) { v.opts = o }
}

// WithClock overrides the timestamp source used in the system prompt.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// WithValidatorLogger sets the logger.
func WithValidatorLogger(l zerolog.Logger) ValidatorOption {
	return func(v *Validator) { v.logger = l }
}

// NewValidator creates a validator backed by provider.
func NewValidator(provider ports.Provider, opts ...ValidatorOption) *Validator {
	tool := tools.NewRecordAnswerTool()
	v := &Validator{
		provider:   provider,
		tool:       tool,
		guardrails: NewGuardrails(tool),
		builder:    NewPromptBuilder(),
		parser:     NewOutputParser(),
		limiter:    &noOpRateLimiter{},
		tracer:     &noOpTracer{},
		opts:       ports.Options{ToolChoice: "auto"},
		now:        time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate sends the history to the model with the record_answer tool and
// interprets the reply. On acceptance the answer is stored under the current
// question text. The question index is never changed here. On error the state
// is left exactly as it was.
func (v *Validator) Validate(ctx context.Context, s *State, f Form) (Turn, error) {
	if err := s.checkIndex("validate", f); err != nil {
		return Turn{}, err
	}
	idx := s.CurrentQuestionIndex
	question := f.Questions[idx]

	fail := func(err error) (Turn, error) {
		return Turn{}, &ValidatorFailure{QuestionIndex: idx, Cause: err}
	}

	opts := v.opts
	if ref, err := ParseModelID(f.ModelID); err == nil && opts.Model == "" {
		opts.Model = ref.Model
	}

	input := v.builder.Build(
		RenderSystemPrompt(f, s, v.now()),
		s.Messages,
		[]ports.ToolSpec{v.tool.Spec()},
		map[string]string{
			"user_id":        f.UserID,
			"question_index": strconv.Itoa(idx),
		},
	)

	release, err := v.limiter.Acquire(ctx, "validate")
	if err != nil {
		return fail(fmt.Errorf("rate limiter: %w", err))
	}

	spanCtx, finish := v.tracer.StartSpan(ctx, "validate_answer", map[string]any{
		"question_index": idx,
		"history_len":    len(s.Messages),
	})
	completion, err := v.provider.Complete(spanCtx, input, opts)
	release()
	finish(err)
	if err != nil {
		return fail(fmt.Errorf("provider call: %w", err))
	}
	// A reply that arrives after cancellation is discarded.
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	turn, result, err := v.interpret(ctx, question, completion)
	if err != nil {
		return fail(err)
	}

	s.Append(turn.Message)
	if accepted, ok := turn.Accepted(); ok {
		s.Append(result)
		s.AnsweredQuestions[question] = accepted.Value
	}

	v.logger.Debug().
		Int("question_index", idx).
		Str("verdict", verdictName(turn.Verdict)).
		Msg("Validated answer")

	return turn, nil
}

// interpret turns a completion into a Turn without touching state. For accepted
// answers it also returns the tool-result message answering the call.
func (v *Validator) interpret(ctx context.Context, question string, c ports.Completion) (Turn, ports.PromptMessage, error) {
	text := strings.TrimSpace(c.Text)

	calls := c.ToolCalls
	if len(calls) == 0 && text != "" {
		// Models without native function calling write the call inline.
		if inline := v.parser.ParseToolCalls(text, tools.RecordAnswerName); len(inline) > 0 {
			calls, text = inline, ""
		}
	}

	switch len(calls) {
	case 0:
		if text == "" {
			return Turn{}, ports.PromptMessage{}, ErrEmptyCompletion
		}
		msg := ports.PromptMessage{Role: ports.RoleAssistant, Content: text}
		return Turn{Message: msg, Verdict: Rejected{Clarification: text}}, ports.PromptMessage{}, nil
	case 1:
	default:
		return Turn{}, ports.PromptMessage{}, ErrMultipleToolCalls
	}

	call := calls[0]
	if err := v.guardrails.ValidateToolCall(call); err != nil {
		return Turn{}, ports.PromptMessage{}, err
	}
	args, err := tools.ParseRecordAnswerArgs(call.Args)
	if err != nil {
		return Turn{}, ports.PromptMessage{}, err
	}
	if call.ID == "" {
		call.ID = "call_" + uuid.NewString()
	}

	out, err := v.tool.Invoke(ctx, call.Args)
	if err != nil {
		return Turn{}, ports.PromptMessage{}, fmt.Errorf("tool %s: %w", call.Name, err)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return Turn{}, ports.PromptMessage{}, fmt.Errorf("failed to marshal tool result: %w", err)
	}

	msg := ports.PromptMessage{
		Role:      ports.RoleAssistant,
		Content:   text,
		ToolCalls: []ports.ToolCall{call},
	}
	result := ports.PromptMessage{
		Role:       ports.RoleTool,
		Content:    string(payload),
		ToolCallID: call.ID,
	}
	verdict := Accepted{Question: question, Name: args.Name, Value: args.Value}
	return Turn{Message: msg, Verdict: verdict}, result, nil
}

func verdictName(v Verdict) string {
	switch v.(type) {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}
