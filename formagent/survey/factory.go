package survey

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/form-agent/formagent/config"
	"github.com/ZanzyTHEbar/form-agent/formagent/survey/adapters"
	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

// FormFromConfig builds and validates a Form from the agent section.
func FormFromConfig(cfg config.AgentConfig) (Form, error) {
	f := Form{
		UserID:         cfg.UserID,
		ModelID:        cfg.Model,
		Questions:      append([]string(nil), cfg.Questions...),
		Tone:           cfg.Tone,
		SystemPrompt:   cfg.SystemPrompt,
		OpeningMessage: cfg.OpeningMessage,
	}
	if err := f.Validate(); err != nil {
		return Form{}, err
	}
	return f, nil
}

// Factory creates and wires survey components from configuration.
type Factory struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *adapters.LibSQLTranscriptStore
}

// NewFactory creates a new survey factory.
func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// Form returns the configured form.
func (f *Factory) Form() (Form, error) {
	return FormFromConfig(f.cfg.Agent)
}

// CreateProvider builds the provider named by the model id.
func (f *Factory) CreateProvider() (ports.Provider, error) {
	ref, err := ParseModelID(f.cfg.Agent.Model)
	if err != nil {
		return nil, err
	}

	switch ref.Provider {
	case "openai":
		p, err := adapters.NewOpenAIProvider(adapters.OpenAIConfig{
			APIKey:  f.cfg.LLM.APIKey,
			BaseURL: f.cfg.LLM.BaseURL,
			Model:   ref.Model,
			Timeout: f.cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, &ConfigurationError{Field: "llm.api_key", Reason: err.Error()}
		}
		return p, nil
	default:
		return nil, configErr("model", "no provider adapter for %q", ref.Provider)
	}
}

// CreateOrchestrator wires an orchestrator around provider. A nil provider is
// built from configuration. Close releases resources opened here.
func (f *Factory) CreateOrchestrator(ctx context.Context, provider ports.Provider) (*Orchestrator, error) {
	if provider == nil {
		var err error
		if provider, err = f.CreateProvider(); err != nil {
			return nil, err
		}
	}

	tracer := f.createTracer()
	validator := NewValidator(provider,
		WithRateLimiter(f.createRateLimiter()),
		WithValidatorTracer(tracer),
		WithValidatorLogger(f.logger),
		WithProviderOptions(ports.Options{
			MaxNewTokens: f.cfg.LLM.MaxTokens,
			Temperature:  f.cfg.LLM.Temperature,
			ToolChoice:   "auto",
		}),
	)

	store, err := f.createStore(ctx)
	if err != nil {
		return nil, err
	}

	return NewOrchestrator(validator,
		WithTranscriptStore(store),
		WithTracer(tracer),
		WithPolicy(f.CreatePolicy()),
		WithLogger(f.logger),
	), nil
}

// CreatePolicy creates a policy from config, clamping invalid values.
func (f *Factory) CreatePolicy() *Policy {
	policy := DefaultPolicy()
	if f.cfg.Harness.MaxTurns > 0 {
		policy.MaxTurns = f.cfg.Harness.MaxTurns
	} else {
		f.logger.Warn().Int("max_turns", f.cfg.Harness.MaxTurns).Msg("MaxTurns must be positive, using default")
	}
	return policy
}

// Close releases the transcript store, if one was opened.
func (f *Factory) Close() error {
	if f.store == nil {
		return nil
	}
	err := f.store.Close()
	f.store = nil
	return err
}

func (f *Factory) createRateLimiter() ports.RateLimiter {
	if !f.cfg.Harness.RateLimitEnabled {
		return &noOpRateLimiter{}
	}
	return adapters.NewTokenBucket(f.cfg.Harness.RateLimitCapacity, f.cfg.Harness.RateLimitRefillRate)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Harness.EnableTracing {
		return &noOpTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}

func (f *Factory) createStore(ctx context.Context) (ports.TranscriptStore, error) {
	if f.cfg.Harness.TranscriptDSN == "" {
		return &noOpStore{}, nil
	}
	if f.store == nil {
		store, err := adapters.OpenLibSQLTranscriptStore(ctx, f.cfg.Harness.TranscriptDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open transcript store: %w", err)
		}
		f.store = store
	}
	return f.store, nil
}

// noOpRateLimiter implements RateLimiter with no limit.
type noOpRateLimiter struct{}

func (r *noOpRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	return func() {}, nil
}

// noOpTracer implements Tracer with no output.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// noOpStore discards transcripts.
type noOpStore struct{}

func (s *noOpStore) SaveTurn(ctx context.Context, turn ports.Turn) error { return nil }

func (s *noOpStore) LoadTranscript(ctx context.Context, runID string) ([]ports.Turn, error) {
	return nil, nil
}

var (
	_ ports.RateLimiter     = (*noOpRateLimiter)(nil)
	_ ports.Tracer          = (*noOpTracer)(nil)
	_ ports.TranscriptStore = (*noOpStore)(nil)
)
