// Package safeaction wraps same-origin form submission handlers so every
// failure reaches the browser as a normalized payload with an HTTP status.
//
// Two errors are control flow rather than failures and pass through a
// wrapped action unmodified: *Redirect and *ActionFailure.
package safeaction

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/response"
	"github.com/louisbranch/formrpc/internal/platform/telemetry/metrics"
	"github.com/louisbranch/formrpc/internal/platform/validation"
)

// Redirect asks the host to redirect instead of rendering a result.
type Redirect struct {
	Status   int
	Location string
}

// NewRedirect returns a redirect signal. Statuses outside 3xx become 303.
func NewRedirect(status int, location string) *Redirect {
	if status < http.StatusMultipleChoices || status > http.StatusPermanentRedirect {
		status = http.StatusSeeOther
	}
	return &Redirect{Status: status, Location: location}
}

func (r *Redirect) Error() string {
	return fmt.Sprintf("redirect %d to %s", r.Status, r.Location)
}

// ActionFailure is a failure the action already formatted. The host renders
// Data with Status as is.
type ActionFailure struct {
	Status int
	Data   any
}

// Fail returns a pre-formatted failure signal.
func Fail(status int, data any) *ActionFailure {
	return &ActionFailure{Status: status, Data: data}
}

func (f *ActionFailure) Error() string {
	return fmt.Sprintf("action failure %d", f.Status)
}

// Failure is the normalized payload of a failed action.
type Failure struct {
	Success    bool             `json:"success"`
	StatusCode int              `json:"statusCode"`
	Message    string           `json:"message,omitempty"`
	Issues     *response.Issues `json:"issues,omitempty"`
}

// Result is either the action's own success value or a normalized failure.
type Result[R any] struct {
	Value   R
	Failure *Failure
}

// OK reports whether the action succeeded.
func (r Result[R]) OK() bool {
	return r.Failure == nil
}

// Action handles one form submission.
type Action[R any] func(ctx context.Context, r *http.Request) (R, error)

// Option configures a wrapped action.
type Option func(*config)

type config struct {
	reporter *apperrors.Reporter
}

// WithReporter sets the reporter failures are logged through. Without one
// failures go to the logger attached to the request context.
func WithReporter(reporter *apperrors.Reporter) Option {
	return func(c *config) {
		c.reporter = reporter
	}
}

// SafeAction is an action whose failures are normalized.
type SafeAction[R any] struct {
	name     string
	action   Action[R]
	reporter *apperrors.Reporter
}

// Wrap wraps action under name, which labels logs and metrics.
func Wrap[R any](name string, action Action[R], opts ...Option) *SafeAction[R] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SafeAction[R]{name: name, action: action, reporter: cfg.reporter}
}

// Name returns the action name.
func (a *SafeAction[R]) Name() string {
	return a.name
}

// Run invokes the action. The returned error is always nil, a *Redirect or an
// *ActionFailure raised by the action; every other failure is in the result.
func (a *SafeAction[R]) Run(ctx context.Context, r *http.Request) (Result[R], error) {
	value, err := a.invoke(ctx, r)
	if err == nil {
		metrics.RecordAction(a.name, http.StatusOK)
		return Result[R]{Value: value}, nil
	}
	if status, ok := signalStatus(err); ok {
		metrics.RecordAction(a.name, status)
		return Result[R]{}, err
	}

	a.reporter.Report(ctx, "action "+a.name, apperrors.Classify(err))
	failure := FailureFor(i18n.FromContext(ctx), err)
	metrics.RecordAction(a.name, failure.StatusCode)
	return Result[R]{Failure: failure}, nil
}

func (a *SafeAction[R]) invoke(ctx context.Context, r *http.Request) (value R, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("action %s panicked: %v", a.name, recovered)
		}
	}()
	return a.action(ctx, r)
}

func signalStatus(err error) (int, bool) {
	var redirect *Redirect
	if stderrors.As(err, &redirect) {
		return redirect.Status, true
	}
	var failure *ActionFailure
	if stderrors.As(err, &failure) {
		return failure.Status, true
	}
	return 0, false
}

// FailureFor maps err to a failure payload. Transport errors from procedure
// calls are turned back into the domain or validation error they stand for
// and mapped again, so actions that call procedures report the same statuses
// as actions that fail directly.
func FailureFor(l i18n.Localizer, err error) *Failure {
	c := apperrors.Classify(err)
	switch c.Class {
	case apperrors.ClassValidation:
		return &Failure{
			StatusCode: http.StatusUnprocessableEntity,
			Message:    i18n.ParsingFailedError(l),
			Issues:     c.Validation.Issues,
		}
	case apperrors.ClassNotFound:
		return &Failure{StatusCode: http.StatusNotFound, Message: c.Domain.Message}
	case apperrors.ClassAlreadyExists:
		return &Failure{StatusCode: http.StatusConflict, Message: c.Domain.Message}
	case apperrors.ClassTransport:
		return transportFailure(l, c.Transport)
	case apperrors.ClassUnknown:
		return &Failure{StatusCode: http.StatusInternalServerError, Message: errorMessage(l, err)}
	default:
		return &Failure{StatusCode: http.StatusInternalServerError, Message: errorMessage(l, err)}
	}
}

func transportFailure(l i18n.Localizer, err *apperrors.Error) *Failure {
	switch err.Code {
	case apperrors.CodeConflict:
		return FailureFor(l, apperrors.AlreadyExists(err.Message))
	case apperrors.CodeNotFound:
		return FailureFor(l, apperrors.NotFound(err.Message))
	case apperrors.CodeInputValidationError:
		return FailureFor(l, validation.NewError(validation.StageInput, err.Message, err.Issues))
	case apperrors.CodeOutputValidationError:
		return FailureFor(l, validation.NewError(validation.StageOutput, err.Message, err.Issues))
	case apperrors.CodeUnauthorized:
		// A rejected session stays a 401 with the procedure's translated
		// message rather than collapsing into a 500.
		return &Failure{StatusCode: http.StatusUnauthorized, Message: err.Message}
	default:
		return &Failure{StatusCode: http.StatusInternalServerError, Message: errorMessage(l, err)}
	}
}

func errorMessage(l i18n.Localizer, err error) string {
	if message := err.Error(); message != "" {
		return message
	}
	return i18n.InternalServerError(l)
}
