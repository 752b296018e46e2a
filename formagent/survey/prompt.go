package survey

import (
	"fmt"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// DefaultSystemPrompt is the instruction template sent with every validation.
const DefaultSystemPrompt = `You are a {tone} assistant conducting a survey.
Current question: {current_question}
Previous answers: {user_info}
Current time: {time}

Your task:
1. If the user has answered the current question clearly, save it by calling record_answer
2. If the user hasn't answered clearly, ask for clarification
3. Once a question is answered, move to the next question

Remember to maintain a {tone} tone throughout the conversation.`

// PromptBuilder assembles provider input from the system text, history and tools.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder { return &PromptBuilder{} }

// Build normalizes the system text and a copy of the history into a PromptInput.
// The caller's messages are not modified.
func (b *PromptBuilder) Build(system string, messages []ports.PromptMessage, toolSpecs []ports.ToolSpec, meta map[string]string) ports.PromptInput {
	history := make([]ports.PromptMessage, len(messages))
	for i, m := range messages {
		m.Content = normalize(m.Content)
		history[i] = m
	}

	return ports.PromptInput{
		System:   normalize(system),
		Messages: history,
		Tools:    toolSpecs,
		Meta:     meta,
	}
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

// RenderSystemPrompt fills the form's template for the question at the state's
// current index.
func RenderSystemPrompt(f Form, s *State, now time.Time) string {
	tmpl := f.SystemPrompt
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultSystemPrompt
	}
	question, _ := f.Question(s.CurrentQuestionIndex)

	r := strings.NewReplacer(
		"{tone}", f.Tone,
		"{current_question}", question,
		"{user_info}", renderAnswers(f, s.AnsweredQuestions),
		"{time}", now.Format(time.RFC3339),
	)
	return r.Replace(tmpl)
}

// renderAnswers lists answers in question order.
func renderAnswers(f Form, answers map[string]string) string {
	if len(answers) == 0 {
		return "none yet"
	}
	var sb strings.Builder
	for _, q := range f.Questions {
		v, ok := answers[q]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\n- %s %s", q, v)
	}
	return sb.String()
}
