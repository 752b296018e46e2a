package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/form-agent/formagent/config"
	"github.com/ZanzyTHEbar/form-agent/formagent/logging"
)

var (
	// Global flags
	configPath string
	overrides  []string
	logLevel   string
	prettyLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "formagent",
	Short: "Conversational form-filling agent",
	Long: `formagent - asks a fixed list of questions and lets a language model decide
when each one has been answered.

Configuration is read from formagent.yaml (current directory, etc/formagent or
/etc/formagent), FORMAGENT_* environment variables and --set overrides, in
increasing order of precedence. The bare variables USER_ID, MODEL, QUESTIONS
(separated by "|") and TONE are honoured as well.

Examples:
  # Run the default survey
  OPENAI_API_KEY=... formagent run

  # Override the questions for one run
  formagent run --set 'agent.questions=What is your name?|Where do you live?'`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringArrayVar(&overrides, "set", nil, "override a config key (key=value, repeatable)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides log.level)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "human-readable logs")
}

// loadConfig loads configuration with the --set overrides applied.
func loadConfig() (*config.Config, error) {
	values, err := parseOverrides(overrides)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configPath, values)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, error) {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level, prettyLogs || cfg.Log.Pretty, cmd.ErrOrStderr())
}

// parseOverrides turns key=value pairs into a config override map.
func parseOverrides(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q, want key=value", pair)
		}
		out[strings.ToLower(key)] = value
	}
	return out, nil
}
