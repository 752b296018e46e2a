package survey

import (
	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// NextStep is the outcome of advancing past an accepted answer.
type NextStep struct {
	// Terminal is set when the form has no questions left.
	Terminal bool
	// Question is the next question text when not terminal.
	Question string
	// Message is the assistant message appended for the next question.
	Message ports.PromptMessage
}

// Advance moves past the current question after an accepted turn. The index
// grows by exactly one. When questions remain, the next one is appended as an
// assistant message. Advancing without acceptance or past the end is an
// invariant violation and leaves the state untouched.
func Advance(s *State, f Form, t Turn) (NextStep, error) {
	if _, ok := t.Accepted(); !ok {
		return NextStep{}, invariantErr("advance", "turn was not accepted")
	}
	if err := s.checkIndex("advance", f); err != nil {
		return NextStep{}, err
	}

	s.CurrentQuestionIndex++
	if s.CurrentQuestionIndex == len(f.Questions) {
		return NextStep{Terminal: true}, nil
	}

	question := f.Questions[s.CurrentQuestionIndex]
	msg := ports.PromptMessage{Role: ports.RoleAssistant, Content: question}
	s.Append(msg)
	return NextStep{Question: question, Message: msg}, nil
}
