package survey

import (
	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// Edge is the control-flow edge chosen after a validation.
type Edge int

const (
	// EdgeRetry re-asks the current question.
	EdgeRetry Edge = iota
	// EdgeAdvance moves on to the next question.
	EdgeAdvance
)

func (e Edge) String() string {
	switch e {
	case EdgeRetry:
		return "retry"
	case EdgeAdvance:
		return "advance"
	default:
		return "unknown"
	}
}

// Route picks the next edge from a validator turn.
func Route(t Turn) Edge {
	if _, ok := t.Verdict.(Accepted); ok {
		return EdgeAdvance
	}
	return EdgeRetry
}

// RouteMessage classifies a raw assistant message: a tool invocation means the
// answer was accepted.
func RouteMessage(m ports.PromptMessage) Edge {
	if m.HasToolCalls() {
		return EdgeAdvance
	}
	return EdgeRetry
}
