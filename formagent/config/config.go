package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ZanzyTHEbar/form-agent/formagent"
)

// EnvPrefix prefixes every environment variable read by LoadConfig,
// e.g. agent.tone becomes FORMAGENT_AGENT_TONE.
const EnvPrefix = "FORMAGENT"

// QuestionSeparator splits a question list given as a single string.
const QuestionSeparator = "|"

// Config stores all configuration of the application.
// The values are read by viper from a config file, environment variables or
// caller overrides.
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Harness HarnessConfig `mapstructure:"harness"`
	Log     LogConfig     `mapstructure:"log"`
}

// AgentConfig describes the survey itself.
type AgentConfig struct {
	UserID         string   `mapstructure:"user_id"`
	Model          string   `mapstructure:"model"` // provider/model
	Tone           string   `mapstructure:"tone"`
	Questions      []string `mapstructure:"questions"`
	SystemPrompt   string   `mapstructure:"system_prompt"`   // empty uses the built-in prompt
	OpeningMessage string   `mapstructure:"opening_message"` // seeded as a system message
}

// LLMConfig stores model backend settings.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"` // per provider call
}

// HarnessConfig stores run orchestration settings.
type HarnessConfig struct {
	MaxTurns      int  `mapstructure:"max_turns"` // validator calls per run
	EnableTracing bool `mapstructure:"enable_tracing"`

	// Rate limiting of provider calls
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"`

	// TranscriptDSN enables the libsql transcript store when set.
	TranscriptDSN string `mapstructure:"transcript_dsn"`

	BatchConcurrency int `mapstructure:"batch_concurrency"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// legacyEnv maps keys to the bare environment names the agent has always honoured.
var legacyEnv = map[string][]string{
	"agent.user_id":   {"USER_ID"},
	"agent.model":     {"MODEL"},
	"agent.questions": {"QUESTIONS"},
	"agent.tone":      {"TONE"},
	"llm.api_key":     {"OPENAI_API_KEY"},
	"llm.base_url":    {"OPENAI_BASE_URL"},
}

// LoadConfig reads configuration with the precedence
// overrides > environment > config file > defaults.
// An empty configPath searches the default locations and tolerates a missing
// file. An explicit path must exist.
func LoadConfig(configPath string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", formagent.DefaultAppName))
		v.AddConfigPath(formagent.DefaultConfigPath)
		v.SetConfigName(formagent.DefaultConfigName)
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, val := range overrides {
		v.Set(key, val)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(QuestionSeparator),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	cfg.Agent.Questions = cleanQuestions(cfg.Agent.Questions)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.user_id", formagent.DefaultUserID)
	v.SetDefault("agent.model", formagent.DefaultModel)
	v.SetDefault("agent.tone", formagent.DefaultTone)
	v.SetDefault("agent.questions", formagent.DefaultQuestions)
	v.SetDefault("agent.system_prompt", "")
	v.SetDefault("agent.opening_message", formagent.DefaultOpeningMessage)

	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("harness.max_turns", formagent.DefaultMaxTurns)
	v.SetDefault("harness.enable_tracing", false)
	v.SetDefault("harness.rate_limit_enabled", false)
	v.SetDefault("harness.rate_limit_capacity", 10)
	v.SetDefault("harness.rate_limit_refill_rate", "1s")
	v.SetDefault("harness.transcript_dsn", "")
	v.SetDefault("harness.batch_concurrency", formagent.DefaultBatchConcurrency)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// cleanQuestions trims entries and drops blank ones.
func cleanQuestions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
