package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// StubProvider replays scripted completions and records every prompt it saw.
type StubProvider struct {
	mu             sync.Mutex
	completionFunc func(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error)
	script         []stubReply
	calls          []ports.PromptInput
}

type stubReply struct {
	completion ports.Completion
	err        error
}

func (p *StubProvider) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	p.mu.Lock()
	p.calls = append(p.calls, in)
	call := len(p.calls)
	fn := p.completionFunc
	var reply *stubReply
	if fn == nil {
		if call > len(p.script) {
			p.mu.Unlock()
			return ports.Completion{}, fmt.Errorf("stub provider: unexpected call %d", call)
		}
		reply = &p.script[call-1]
	}
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, in, opts)
	}
	return reply.completion, reply.err
}

func (p *StubProvider) Calls() []ports.PromptInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.PromptInput(nil), p.calls...)
}

func scripted(replies ...stubReply) *StubProvider {
	return &StubProvider{script: replies}
}

func accept(name, value string) stubReply {
	args, _ := json.Marshal(map[string]string{"name": name, "value": value})
	return stubReply{completion: ports.Completion{
		ToolCalls: []ports.ToolCall{{ID: "call_" + name, Name: "record_answer", Args: args}},
	}}
}

func clarify(text string) stubReply {
	return stubReply{completion: ports.Completion{Text: text}}
}

func failWith(err error) stubReply {
	return stubReply{err: err}
}

// replies answers prompts from a fixed list and suspends once it runs out.
func replies(answers ...string) Respondent {
	var mu sync.Mutex
	return RespondentFunc(func(ctx context.Context, prompt ports.PromptMessage) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(answers) == 0 {
			return "", ErrNoReply
		}
		next := answers[0]
		answers = answers[1:]
		return next, nil
	})
}

// stubTranscriptStore keeps turns in memory.
type stubTranscriptStore struct {
	mu    sync.Mutex
	turns map[string][]ports.Turn
	err   error
}

func (s *stubTranscriptStore) SaveTurn(ctx context.Context, turn ports.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.turns == nil {
		s.turns = make(map[string][]ports.Turn)
	}
	s.turns[turn.RunID] = append(s.turns[turn.RunID], turn)
	return nil
}

func (s *stubTranscriptStore) LoadTranscript(ctx context.Context, runID string) ([]ports.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Turn(nil), s.turns[runID]...), nil
}

var _ ports.TranscriptStore = (*stubTranscriptStore)(nil)

func testForm(questions ...string) Form {
	return Form{
		UserID:         "user123",
		ModelID:        "openai/gpt-4",
		Questions:      questions,
		Tone:           "friendly and empathetic",
		OpeningMessage: "Let's begin the survey",
	}
}
