package rpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/otel"
	"github.com/louisbranch/formrpc/internal/platform/telemetry/metrics"
)

// Invocation describes one procedure call.
type Invocation struct {
	Procedure string
	Input     []byte
}

// Next runs the rest of the chain.
type Next func(ctx context.Context) (any, error)

// Middleware wraps a procedure invocation.
type Middleware func(ctx context.Context, pc Context, call Invocation, next Next) (any, error)

// ErrorMiddleware normalizes every failure of the wrapped chain into a
// transport error. Recovered panics are unknown failures. Each call runs in a
// span and is counted by outcome code.
func ErrorMiddleware(reporter *apperrors.Reporter) Middleware {
	return func(ctx context.Context, pc Context, call Invocation, next Next) (any, error) {
		ctx, span := otel.Tracer().Start(ctx, "procedure "+call.Procedure,
			trace.WithAttributes(attribute.String("rpc.procedure", call.Procedure)))
		defer span.End()
		start := time.Now()

		out, err := runRecovered(ctx, call, next)
		if err == nil {
			metrics.RecordProcedure(call.Procedure, metrics.CodeOK, time.Since(start))
			return out, nil
		}

		classification := apperrors.Classify(err)
		reporter.Report(ctx, call.Procedure, classification)
		transport := classification.ToTransport(pc.Translator())
		span.SetAttributes(attribute.String("rpc.error_code", string(transport.Code)))
		metrics.RecordProcedure(call.Procedure, string(transport.Code), time.Since(start))
		return nil, transport
	}
}

// AuthenticationMiddleware rejects calls without a session.
func AuthenticationMiddleware() Middleware {
	return func(ctx context.Context, pc Context, call Invocation, next Next) (any, error) {
		if !pc.Authenticated() {
			return nil, apperrors.New(apperrors.CodeUnauthorized, i18n.UnauthenticatedError(pc.Translator()))
		}
		return next(ctx)
	}
}

func runRecovered(ctx context.Context, call Invocation, next Next) (out any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			out = nil
			err = fmt.Errorf("procedure %s panicked: %v", call.Procedure, recovered)
		}
	}()
	return next(ctx)
}

// chain composes middleware around final, outermost first.
func chain(middleware []Middleware, pc Context, call Invocation, final Next) Next {
	next := final
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		inner := next
		next = func(ctx context.Context) (any, error) {
			return mw(ctx, pc, call, inner)
		}
	}
	return next
}
