package survey

import (
	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// Verdict is the validator's judgement of the latest user reply. It is either
// Accepted or Rejected.
type Verdict interface {
	isVerdict()
}

// Accepted means the model recorded an answer for the current question.
type Accepted struct {
	Question string
	Name     string
	Value    string
}

// Rejected means the model asked for clarification instead.
type Rejected struct {
	Clarification string
}

func (Accepted) isVerdict() {}
func (Rejected) isVerdict() {}

// Turn is the outcome of one validator call.
type Turn struct {
	// Message is the assistant message returned by the model.
	Message ports.PromptMessage
	Verdict Verdict
}

// Accepted returns the accepted verdict, if any.
func (t Turn) Accepted() (Accepted, bool) {
	a, ok := t.Verdict.(Accepted)
	return a, ok
}
