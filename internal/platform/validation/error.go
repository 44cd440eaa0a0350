// Package validation decodes and validates procedure inputs, outputs and form
// submissions, flattening every violation into response issues.
package validation

import (
	"github.com/louisbranch/formrpc/internal/platform/response"
)

// Stage identifies which side of a handler failed its schema.
type Stage string

const (
	// StageInput marks a request payload that does not match its schema.
	StageInput Stage = "input"
	// StageOutput marks a handler result that does not match its own schema.
	StageOutput Stage = "output"
)

// Error is a schema validation failure with flattened issues.
//
// Message is the first violation message, mirroring how form controllers
// surface a single headline next to the per-field issues.
type Error struct {
	Stage   Stage
	Message string
	Issues  *response.Issues
	Cause   error
}

// NewError builds a validation error. The headline message defaults to the
// first issue when message is empty.
func NewError(stage Stage, message string, issues *response.Issues) *Error {
	if stage == "" {
		stage = StageInput
	}
	if message == "" {
		message = firstMessage(issues)
	}
	return &Error{Stage: stage, Message: message, Issues: issues}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "validation failed"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// firstMessage returns the first message in root, nested (sorted) and other order.
func firstMessage(issues *response.Issues) string {
	if issues.Empty() {
		return ""
	}
	if len(issues.Root) > 0 {
		return issues.Root[0]
	}
	for _, field := range issues.Fields() {
		if messages := issues.Field(field); len(messages) > 0 {
			return messages[0]
		}
	}
	if len(issues.Other) > 0 {
		return issues.Other[0]
	}
	return ""
}
