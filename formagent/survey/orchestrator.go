package survey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/ZanzyTHEbar/form-agent/formagent"
	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// Phase is the orchestrator's position in the survey state machine.
type Phase int

const (
	PhaseAwaitingAnswer Phase = iota
	PhaseAdvancing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseAdvancing:
		return "advancing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Status is the terminal status of a Run call.
type Status int

const (
	// StatusDone means every question was answered.
	StatusDone Status = iota
	// StatusFailed means the run stopped on an error. The state is still usable.
	StatusFailed
	// StatusAwaitingInput means the run is suspended until the user replies.
	StatusAwaitingInput
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusAwaitingInput:
		return "awaiting_input"
	default:
		return "unknown"
	}
}

// ErrNoReply can be returned by a Respondent to suspend the run.
var ErrNoReply = errors.New("no reply available")

// Respondent supplies the user's reply to the latest assistant prompt.
type Respondent interface {
	Reply(ctx context.Context, prompt ports.PromptMessage) (string, error)
}

// RespondentFunc adapts a function to Respondent.
type RespondentFunc func(ctx context.Context, prompt ports.PromptMessage) (string, error)

func (f RespondentFunc) Reply(ctx context.Context, prompt ports.PromptMessage) (string, error) {
	return f(ctx, prompt)
}

// RunRequest configures one survey run.
type RunRequest struct {
	// ID identifies the run in logs and transcripts. Generated when empty.
	ID   string
	Form Form
	// Messages are appended to the history before the run starts.
	Messages []ports.PromptMessage
	// State resumes a previous run. Nil starts a fresh one.
	State *State
	// Respondent answers prompts. Without one the run suspends whenever it
	// needs a user reply.
	Respondent Respondent
	// OnMessage is called for every assistant message appended during the run.
	OnMessage func(ports.PromptMessage)
}

// RunResult is the outcome of Run. It is never nil.
type RunResult struct {
	ID     string
	Status Status
	Phase  Phase
	State  *State
	// Validations counts validator calls made by this Run call.
	Validations int
	Err         error
}

// Policy bounds a run.
type Policy struct {
	// MaxTurns caps validator calls per Run call.
	MaxTurns int
}

// DefaultPolicy returns the default run policy.
func DefaultPolicy() *Policy {
	return &Policy{MaxTurns: formagent.DefaultMaxTurns}
}

// Orchestrator drives the validate, route and advance loop. It holds no
// per-run state and may be shared between concurrent runs.
type Orchestrator struct {
	validator *Validator
	store     ports.TranscriptStore
	tracer    ports.Tracer
	policy    *Policy
	logger    zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTranscriptStore records every message of every run.
func WithTranscriptStore(s ports.TranscriptStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithTracer traces runs.
func WithTracer(t ports.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithPolicy sets the run policy.
func WithPolicy(p *Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator around validator.
func NewOrchestrator(validator *Validator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		validator: validator,
		store:     &noOpStore{},
		tracer:    &noOpTracer{},
		policy:    DefaultPolicy(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.policy == nil || o.policy.MaxTurns <= 0 {
		o.policy = DefaultPolicy()
	}
	return o
}

// run carries the per-call bookkeeping of Run.
type run struct {
	o         *Orchestrator
	req       *RunRequest
	res       *RunResult
	form      Form
	state     *State
	persisted int
	logger    zerolog.Logger
}

// Run drives one conversation until every question is answered, the run needs
// user input it cannot get, or an error occurs. The returned error mirrors
// RunResult.Err.
func (o *Orchestrator) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	res := &RunResult{ID: id, Status: StatusFailed, Phase: PhaseAwaitingAnswer}

	ctx, finish := o.tracer.StartSpan(ctx, "survey_run", map[string]any{
		"run_id":  id,
		"user_id": req.Form.UserID,
	})

	r := &run{
		o:      o,
		req:    req,
		res:    res,
		form:   req.Form.clone(),
		logger: o.logger.With().Str("run_id", id).Str("user_id", req.Form.UserID).Logger(),
	}
	err := r.execute(ctx)
	r.flush(ctx)

	res.Err = err
	finish(err)

	event := r.logger.Info()
	if err != nil {
		event = r.logger.Error().Err(err)
	}
	event.
		Str("status", res.Status.String()).
		Int("validations", res.Validations).
		Msg("Survey run finished")

	return res, err
}

func (r *run) execute(ctx context.Context) error {
	if err := r.form.Validate(); err != nil {
		return err
	}

	if r.req.State != nil {
		r.state = r.req.State
		if r.state.AnsweredQuestions == nil {
			r.state.AnsweredQuestions = make(map[string]string)
		}
		r.persisted = len(r.state.Messages)
	} else {
		r.state = NewState()
		if len(r.req.Messages) == 0 && r.form.OpeningMessage != "" {
			r.state.Append(ports.PromptMessage{Role: ports.RoleSystem, Content: r.form.OpeningMessage})
		}
	}
	r.res.State = r.state
	r.state.Append(r.req.Messages...)

	if len(r.form.Questions) == 0 {
		r.res.Status, r.res.Phase = StatusDone, PhaseDone
		return nil
	}
	switch {
	case r.state.CurrentQuestionIndex == len(r.form.Questions):
		r.res.Status, r.res.Phase = StatusDone, PhaseDone
		return nil
	case r.state.CurrentQuestionIndex < 0 || r.state.CurrentQuestionIndex > len(r.form.Questions):
		return invariantErr("run", "question index %d outside [0, %d]", r.state.CurrentQuestionIndex, len(r.form.Questions))
	}

	if !hasAssistantPrompt(r.state.Messages) {
		r.emit(ports.PromptMessage{Role: ports.RoleAssistant, Content: r.form.Questions[r.state.CurrentQuestionIndex]})
	}

	for {
		r.res.Phase = PhaseAwaitingAnswer
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := r.awaitReply(ctx)
		if err != nil {
			return err
		}
		if !ok {
			r.res.Status = StatusAwaitingInput
			r.logger.Debug().Int("question_index", r.state.CurrentQuestionIndex).Msg("Waiting for user reply")
			return nil
		}

		if r.res.Validations >= r.o.policy.MaxTurns {
			return fmt.Errorf("%w: %d validations", ErrTurnLimit, r.o.policy.MaxTurns)
		}
		r.res.Validations++

		turn, err := r.o.validator.Validate(ctx, r.state, r.form)
		if err != nil {
			return err
		}
		r.notify(turn.Message)

		edge := Route(turn)
		r.logger.Debug().
			Int("question_index", r.state.CurrentQuestionIndex).
			Str("edge", edge.String()).
			Msg("Routed turn")
		r.o.tracer.Event(ctx, "route", map[string]any{"edge": edge.String(), "question_index": r.state.CurrentQuestionIndex})

		if edge == EdgeRetry {
			r.flush(ctx)
			continue
		}

		r.res.Phase = PhaseAdvancing
		step, err := Advance(r.state, r.form, turn)
		if err != nil {
			return err
		}
		if step.Terminal {
			r.res.Status, r.res.Phase = StatusDone, PhaseDone
			return nil
		}
		r.notify(step.Message)
		r.flush(ctx)
	}
}

// awaitReply makes sure the last message is a user reply. It reports false
// when the run has to suspend.
func (r *run) awaitReply(ctx context.Context) (bool, error) {
	last, _ := r.state.Last()
	if last.Role == ports.RoleUser {
		return true, nil
	}
	if r.req.Respondent == nil {
		return false, nil
	}

	reply, err := r.req.Respondent.Reply(ctx, lastAssistant(r.state.Messages))
	if errors.Is(err, ErrNoReply) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("respondent: %w", err)
	}
	r.state.Append(ports.PromptMessage{Role: ports.RoleUser, Content: reply})
	return true, nil
}

func (r *run) emit(msg ports.PromptMessage) {
	r.state.Append(msg)
	r.notify(msg)
}

func (r *run) notify(msg ports.PromptMessage) {
	if r.req.OnMessage != nil && msg.Role == ports.RoleAssistant {
		r.req.OnMessage(msg)
	}
}

// flush writes messages appended since the last flush to the transcript store.
// Store failures are logged and do not fail the run.
func (r *run) flush(ctx context.Context) {
	if r.state == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for ; r.persisted < len(r.state.Messages); r.persisted++ {
		msg := r.state.Messages[r.persisted]
		err := r.o.store.SaveTurn(ctx, ports.Turn{
			RunID:      r.res.ID,
			UserID:     r.form.UserID,
			Seq:        r.persisted,
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCalls:  msg.ToolCalls,
			ToolCallID: msg.ToolCallID,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			r.logger.Warn().Err(err).Int("seq", r.persisted).Msg("Failed to save transcript turn")
			r.o.tracer.Event(ctx, "store_error", map[string]any{"error": err.Error()})
		}
	}
}

// RunBatch runs independent surveys concurrently with at most concurrency runs
// in flight. Results keep the order of reqs. A failing run does not affect the
// others.
func (o *Orchestrator) RunBatch(ctx context.Context, reqs []*RunRequest, concurrency int) []*RunResult {
	if concurrency <= 0 {
		concurrency = formagent.DefaultBatchConcurrency
	}
	results := make([]*RunResult, len(reqs))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(concurrency)
	for i, req := range reqs {
		p.Go(func(ctx context.Context) error {
			results[i], _ = o.Run(ctx, req)
			return nil
		})
	}
	_ = p.Wait()

	return results
}

func hasAssistantPrompt(msgs []ports.PromptMessage) bool {
	for _, m := range msgs {
		if m.Role == ports.RoleAssistant {
			return true
		}
	}
	return false
}

func lastAssistant(msgs []ports.PromptMessage) ports.PromptMessage {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == ports.RoleAssistant {
			return msgs[i]
		}
	}
	return ports.PromptMessage{}
}
