package rpc

import (
	"context"

	"github.com/louisbranch/formrpc/internal/platform/validation"
)

// HandlerFunc is a typed procedure body.
type HandlerFunc[I, O any] func(ctx context.Context, pc Context, input I) (O, error)

// Procedure is a named-at-registration remote operation.
type Procedure interface {
	// Authenticated reports whether the procedure requires a session.
	Authenticated() bool
	// Describe returns the procedure metadata.
	Describe() Description

	invoke(ctx context.Context, pc Context, input []byte) (any, error)
}

// Description is procedure metadata exposed by the router.
type Description struct {
	Summary       string
	Authenticated bool
	OutputSchema  bool
}

// Option configures a procedure.
type Option func(*Description)

// WithOutputSchema validates handler results against their struct tags. A
// violation surfaces as OUTPUT_VALIDATION_ERROR.
func WithOutputSchema() Option {
	return func(d *Description) {
		d.OutputSchema = true
	}
}

// WithSummary attaches a one-line description.
func WithSummary(summary string) Option {
	return func(d *Description) {
		d.Summary = summary
	}
}

// Public declares a procedure callable without a session.
func Public[I, O any](handler HandlerFunc[I, O], opts ...Option) Procedure {
	return newProcedure(handler, false, opts)
}

// Authed declares a procedure that requires a session.
func Authed[I, O any](handler HandlerFunc[I, O], opts ...Option) Procedure {
	return newProcedure(handler, true, opts)
}

type procedure[I, O any] struct {
	handler     HandlerFunc[I, O]
	description Description
}

func newProcedure[I, O any](handler HandlerFunc[I, O], authed bool, opts []Option) *procedure[I, O] {
	p := &procedure[I, O]{handler: handler, description: Description{Authenticated: authed}}
	for _, opt := range opts {
		opt(&p.description)
	}
	p.description.Authenticated = authed
	return p
}

func (p *procedure[I, O]) Authenticated() bool {
	return p.description.Authenticated
}

func (p *procedure[I, O]) Describe() Description {
	return p.description
}

// invoke decodes and validates the input, runs the handler and, when
// declared, validates the output.
func (p *procedure[I, O]) invoke(ctx context.Context, pc Context, raw []byte) (any, error) {
	tr := pc.Translator()
	v := validation.Default()

	var input I
	if err := v.DecodeJSON(tr, raw, &input); err != nil {
		return nil, err
	}
	if err := v.Struct(tr, validation.StageInput, &input); err != nil {
		return nil, err
	}

	out, err := p.handler(ctx, pc, input)
	if err != nil {
		return nil, err
	}

	if p.description.OutputSchema {
		if err := v.Struct(tr, validation.StageOutput, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
