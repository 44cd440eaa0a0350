package errors

import (
	"context"

	"github.com/rs/zerolog"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/formrpc/internal/platform/requestctx"
)

// Reporter records failures caught at a procedure boundary. Unknown failures
// are logged at error level and marked on the active span; recognized ones
// are logged at debug level only.
type Reporter struct {
	logger zerolog.Logger
}

// NewReporter returns a reporter writing to logger.
func NewReporter(logger zerolog.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Report logs c for the named procedure or action. A nil reporter writes to
// the logger attached to ctx.
func (r *Reporter) Report(ctx context.Context, source string, c Classification) {
	if c.Err == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	if r != nil {
		logger = &r.logger
	}

	event := func(e *zerolog.Event) *zerolog.Event {
		e = e.Err(c.Err).Str("source", source)
		if requestID := requestctx.RequestIDFromContext(ctx); requestID != "" {
			e = e.Str("request_id", requestID)
		}
		return e
	}

	if !c.Recognized() {
		span := trace.SpanFromContext(ctx)
		span.RecordError(c.Err)
		span.SetStatus(otelcodes.Error, string(CodeInternalServerError))

		event(logger.Error()).Msg("unhandled error")
		return
	}

	event(logger.Debug()).Str("class", c.Class.String()).Msg("handled error")
}
