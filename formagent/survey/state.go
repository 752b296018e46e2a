package survey

import (
	"maps"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// State is the mutable conversation state owned by exactly one run.
type State struct {
	Messages             []ports.PromptMessage
	CurrentQuestionIndex int
	AnsweredQuestions    map[string]string
}

// NewState creates a fresh state seeded with the given messages.
func NewState(seed ...ports.PromptMessage) *State {
	return &State{
		Messages:          append([]ports.PromptMessage(nil), seed...),
		AnsweredQuestions: make(map[string]string),
	}
}

// Append adds messages to the end of the history.
func (s *State) Append(msgs ...ports.PromptMessage) {
	s.Messages = append(s.Messages, msgs...)
}

// Last returns the most recent message.
func (s *State) Last() (ports.PromptMessage, bool) {
	if len(s.Messages) == 0 {
		return ports.PromptMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Done reports whether every question of the form has been answered.
func (s *State) Done(f Form) bool {
	return s.CurrentQuestionIndex >= len(f.Questions)
}

// Answers returns a copy of the answered questions.
func (s *State) Answers() map[string]string {
	return maps.Clone(s.AnsweredQuestions)
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := &State{
		Messages:             make([]ports.PromptMessage, len(s.Messages)),
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		AnsweredQuestions:    maps.Clone(s.AnsweredQuestions),
	}
	copy(out.Messages, s.Messages)
	if out.AnsweredQuestions == nil {
		out.AnsweredQuestions = make(map[string]string)
	}
	return out
}

func (s *State) checkIndex(op string, f Form) error {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(f.Questions) {
		return invariantErr(op, "question index %d outside [0, %d)", s.CurrentQuestionIndex, len(f.Questions))
	}
	return nil
}
