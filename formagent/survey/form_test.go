package survey

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/form-agent/formagent"
	"github.com/ZanzyTHEbar/form-agent/formagent/config"
	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		id      string
		want    ModelRef
		wantErr bool
	}{
		{id: "openai/gpt-4", want: ModelRef{Provider: "openai", Model: "gpt-4"}},
		{id: " OpenAI/gpt-4o-mini ", want: ModelRef{Provider: "openai", Model: "gpt-4o-mini"}},
		{id: "openrouter/meta-llama/llama-3-70b", want: ModelRef{Provider: "openrouter", Model: "meta-llama/llama-3-70b"}},
		{id: "gpt-4", wantErr: true},
		{id: "/gpt-4", wantErr: true},
		{id: "openai/", wantErr: true},
		{id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseModelID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Provider+"/"+tt.want.Model, got.String())
		})
	}
}

func TestForm_Validate(t *testing.T) {
	assert.NoError(t, DefaultForm().Validate())
	assert.NoError(t, testForm().Validate(), "an empty form is valid")

	err := testForm("Q1", "Q1").Validate()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "questions", cfgErr.Field)

	assert.ErrorIs(t, testForm("Q1", "  ").Validate(), ErrConfiguration)

	bad := testForm("Q1")
	bad.ModelID = "gpt-4"
	assert.ErrorIs(t, bad.Validate(), ErrConfiguration)
}

func TestDefaultForm(t *testing.T) {
	f := DefaultForm()
	assert.Equal(t, formagent.DefaultQuestions, f.Questions)
	assert.Equal(t, "default", f.UserID)
	assert.Equal(t, "openai/gpt-4", f.ModelID)
	assert.Equal(t, "friendly and conversational", f.Tone)

	f.Questions[0] = "changed"
	assert.Equal(t, "What is your name?", formagent.DefaultQuestions[0])
}

func TestFormFromConfig(t *testing.T) {
	f, err := FormFromConfig(config.AgentConfig{
		UserID:    "u1",
		Model:     "openai/gpt-4",
		Tone:      "formal",
		Questions: []string{"Q1", "Q2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, f.Questions)
	assert.Equal(t, "formal", f.Tone)

	_, err = FormFromConfig(config.AgentConfig{Model: "nope", Questions: []string{"Q1"}})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestState_Clone(t *testing.T) {
	s := NewState(ports.PromptMessage{Role: ports.RoleSystem, Content: "seed"})
	s.AnsweredQuestions["Q1"] = "a"

	c := s.Clone()
	c.Append(ports.PromptMessage{Role: ports.RoleUser, Content: "more"})
	c.AnsweredQuestions["Q2"] = "b"
	c.CurrentQuestionIndex = 1

	assert.Len(t, s.Messages, 1)
	assert.Equal(t, map[string]string{"Q1": "a"}, s.AnsweredQuestions)
	assert.Equal(t, 0, s.CurrentQuestionIndex)
	assert.Equal(t, map[string]string{"Q1": "a"}, s.Answers())
}

func TestRenderSystemPrompt(t *testing.T) {
	form := testForm("What is your name?", "What is your age?")
	s := NewState()

	got := RenderSystemPrompt(form, s, fixedNow)
	assert.True(t, strings.HasPrefix(got, "You are a friendly and empathetic assistant conducting a survey."))
	assert.Contains(t, got, "Current question: What is your name?")
	assert.Contains(t, got, "Previous answers: none yet")
	assert.Contains(t, got, "Remember to maintain a friendly and empathetic tone")

	form.SystemPrompt = "[{tone}] ask {current_question} at {time}; known: {user_info}"
	s.CurrentQuestionIndex = 1
	s.AnsweredQuestions["What is your name?"] = "Ada"
	got = RenderSystemPrompt(form, s, fixedNow.Add(time.Hour))
	assert.Equal(t, "[friendly and empathetic] ask What is your age? at 2026-10-01T10:30:00Z; known: \n- What is your name? Ada", got)
}

func TestPromptBuilder_BuildDoesNotMutateHistory(t *testing.T) {
	history := []ports.PromptMessage{{Role: ports.RoleUser, Content: "  hello\r\nthere  "}}

	in := NewPromptBuilder().Build("  system  ", history, nil, map[string]string{"k": "v"})

	assert.Equal(t, "system", in.System)
	assert.Equal(t, "hello\nthere", in.Messages[0].Content)
	assert.Equal(t, "  hello\r\nthere  ", history[0].Content)
	assert.Equal(t, "v", in.Meta["k"])
}
