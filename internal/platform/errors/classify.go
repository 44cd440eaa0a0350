package errors

import (
	stderrors "errors"

	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/validation"
)

// Class is the outcome of classifying an error at a procedure boundary.
type Class int

const (
	ClassUnknown Class = iota
	ClassTransport
	ClassValidation
	ClassNotFound
	ClassAlreadyExists
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Classification is the recognized shape of a failure. Exactly one of
// Transport, Validation or Domain is set, according to Class; Err always holds
// the original error.
type Classification struct {
	Class      Class
	Transport  *Error
	Validation *validation.Error
	Domain     *DomainError
	Err        error
}

// Recognized reports whether the failure belongs to the known taxonomy.
func (c Classification) Recognized() bool {
	return c.Class != ClassUnknown
}

// Classify decides once which taxonomy branch err belongs to. Schema
// validation wins over everything else, then transport errors pass through,
// then domain errors; anything left is unknown.
func Classify(err error) Classification {
	c := Classification{Err: err}
	if err == nil {
		return c
	}

	var invalid *validation.Error
	if stderrors.As(err, &invalid) {
		c.Class = ClassValidation
		c.Validation = invalid
		return c
	}

	var transport *Error
	if stderrors.As(err, &transport) {
		c.Class = ClassTransport
		c.Transport = transport
		return c
	}

	var domain *DomainError
	if stderrors.As(err, &domain) {
		c.Domain = domain
		switch domain.Kind {
		case KindNotFound:
			c.Class = ClassNotFound
		case KindAlreadyExists:
			c.Class = ClassAlreadyExists
		}
		return c
	}

	return c
}

// ToTransport maps the classification to the transport error raised across
// the procedure boundary. Unknown failures never expose their message.
func (c Classification) ToTransport(l i18n.Localizer) *Error {
	switch c.Class {
	case ClassTransport:
		return c.Transport
	case ClassValidation:
		code := CodeInputValidationError
		if c.Validation.Stage == validation.StageOutput {
			code = CodeOutputValidationError
		}
		err := WithIssues(code, i18n.ParsingFailedError(l), c.Validation.Issues)
		err.Cause = c.Err
		return err
	case ClassNotFound:
		return Wrap(CodeNotFound, c.Domain.Message, c.Err)
	case ClassAlreadyExists:
		return Wrap(CodeConflict, c.Domain.Message, c.Err)
	case ClassUnknown:
		return Wrap(CodeInternalServerError, i18n.InternalServerError(l), c.Err)
	default:
		return Wrap(CodeInternalServerError, i18n.InternalServerError(l), c.Err)
	}
}

// Normalize classifies err and maps it to a transport error in one step.
func Normalize(err error, l i18n.Localizer) *Error {
	if err == nil {
		return nil
	}
	return Classify(err).ToTransport(l)
}
