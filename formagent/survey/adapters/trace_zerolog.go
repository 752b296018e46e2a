package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

type spanKey struct{}

// span is the tracing state carried in a context. attrs holds the
// accumulated attributes of the span and its parents.
type span struct {
	name  string
	attrs zerolog.Logger
}

func (s span) logger() zerolog.Logger {
	return s.attrs.With().Str("span", s.name).Logger()
}

// ZerologTracer implements the Tracer port by logging span boundaries.
type ZerologTracer struct {
	logger zerolog.Logger
}

// NewZerologTracer creates a new zerolog tracer.
func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

// StartSpan logs span_start and returns a finish func that logs span_end with
// the span duration. Nested spans inherit the attributes of their parent.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	lc := t.current(ctx).attrs.With()
	for k, v := range attrs {
		lc = lc.Interface(k, v)
	}
	sp := span{name: name, attrs: lc.Logger()}
	ctx = context.WithValue(ctx, spanKey{}, sp)

	spanLogger := sp.logger()
	start := time.Now()
	spanLogger.Debug().Str("event", "span_start").Msg("Starting span")

	finish := func(err error) {
		event := spanLogger.Debug()
		if err != nil {
			event = spanLogger.Warn().Err(err)
		}
		event.
			Str("event", "span_end").
			Dur("duration", time.Since(start)).
			Msg("Ending span")
	}
	return ctx, finish
}

// Event logs a named event on the current span, or on the root logger when
// ctx carries no span.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger := t.logger
	if sp, ok := ctx.Value(spanKey{}).(span); ok {
		logger = sp.logger()
	}
	event := logger.Debug()
	for k, v := range attrs {
		event = event.Interface(k, v)
	}
	event.Str("event", name).Msg("Tracing event")
}

func (t *ZerologTracer) current(ctx context.Context) span {
	if sp, ok := ctx.Value(spanKey{}).(span); ok {
		return sp
	}
	return span{attrs: t.logger}
}

var _ ports.Tracer = (*ZerologTracer)(nil)
