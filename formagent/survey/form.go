package survey

import (
	"strings"

	"github.com/ZanzyTHEbar/form-agent/formagent"
)

// Form is the immutable configuration of one survey run.
type Form struct {
	UserID    string
	ModelID   string
	Questions []string
	Tone      string
	// SystemPrompt overrides the default validator instruction template.
	// Placeholders: {tone}, {current_question}, {user_info}, {time}.
	SystemPrompt string
	// OpeningMessage seeds an empty history as a system message.
	OpeningMessage string
}

// DefaultForm returns the built-in survey.
func DefaultForm() Form {
	return Form{
		UserID:         formagent.DefaultUserID,
		ModelID:        formagent.DefaultModel,
		Questions:      append([]string(nil), formagent.DefaultQuestions...),
		Tone:           formagent.DefaultTone,
		SystemPrompt:   DefaultSystemPrompt,
		OpeningMessage: formagent.DefaultOpeningMessage,
	}
}

// Validate checks the form before a run starts. An empty question list is valid.
func (f Form) Validate() error {
	if _, err := ParseModelID(f.ModelID); err != nil {
		return err
	}
	seen := make(map[string]int, len(f.Questions))
	for i, q := range f.Questions {
		if strings.TrimSpace(q) == "" {
			return configErr("questions", "question %d is blank", i)
		}
		if j, ok := seen[q]; ok {
			return configErr("questions", "question %d duplicates question %d: %q", i, j, q)
		}
		seen[q] = i
	}
	return nil
}

// Question returns the question text at index i.
func (f Form) Question(i int) (string, bool) {
	if i < 0 || i >= len(f.Questions) {
		return "", false
	}
	return f.Questions[i], true
}

func (f Form) clone() Form {
	f.Questions = append([]string(nil), f.Questions...)
	return f
}

// ModelRef is a parsed "provider/model" identifier.
type ModelRef struct {
	Provider string
	Model    string
}

func (m ModelRef) String() string { return m.Provider + "/" + m.Model }

// ParseModelID splits a "provider/model" identifier. The model part may itself
// contain slashes.
func ParseModelID(id string) (ModelRef, error) {
	provider, model, ok := strings.Cut(strings.TrimSpace(id), "/")
	if !ok {
		return ModelRef{}, configErr("model", "%q is not in provider/model form", id)
	}
	provider = strings.TrimSpace(provider)
	model = strings.TrimSpace(model)
	if provider == "" || model == "" {
		return ModelRef{}, configErr("model", "%q is missing a provider or model name", id)
	}
	return ModelRef{Provider: strings.ToLower(provider), Model: model}, nil
}
