// Package formagent holds application-wide defaults shared by the config loader,
// the survey runtime and the CLI.
package formagent

const (
	DefaultAppName    = "formagent"
	DefaultConfigName = "formagent"
	DefaultConfigPath = "/etc/formagent"

	DefaultUserID = "default"
	DefaultModel  = "openai/gpt-4"
	DefaultTone   = "friendly and conversational"

	// DefaultOpeningMessage seeds a fresh conversation before the first question is asked.
	DefaultOpeningMessage = "Let's begin the survey"

	DefaultMaxTurns         = 50
	DefaultBatchConcurrency = 4
)

// DefaultQuestions is the form used when no questions are configured.
var DefaultQuestions = []string{
	"What is your name?",
	"What is your age?",
	"What are your hobbies?",
}
