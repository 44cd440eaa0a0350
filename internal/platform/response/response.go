// Package response defines the success and failure payloads shared by
// procedures, safe actions and form mutations.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidResponse reports a payload that mixes success and failure fields.
var ErrInvalidResponse = errors.New("invalid response")

// Response is the tagged success/failure union returned across the
// client/server boundary.
//
// Data is only valid when Success is true and Issues only when it is false.
type Response[T any] struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Data    *T      `json:"data,omitempty"`
	Issues  *Issues `json:"issues,omitempty"`
}

// Succeed builds a success response carrying data.
func Succeed[T any](data T, message string) Response[T] {
	return Response[T]{Success: true, Message: message, Data: &data}
}

// SucceedWithoutData builds a success response with an optional message only.
func SucceedWithoutData[T any](message string) Response[T] {
	return Response[T]{Success: true, Message: message}
}

// Fail builds a failure response. A nil or empty issues value is omitted.
func Fail[T any](message string, issues *Issues) Response[T] {
	if issues.Empty() {
		issues = nil
	}
	return Response[T]{Success: false, Message: message, Issues: issues}
}

// Validate reports whether the response honors the union invariant.
func (r Response[T]) Validate() error {
	if r.Success && r.Issues != nil {
		return fmt.Errorf("%w: issues on success", ErrInvalidResponse)
	}
	if !r.Success && r.Data != nil {
		return fmt.Errorf("%w: data on failure", ErrInvalidResponse)
	}
	return nil
}

// UnmarshalJSON decodes a response and rejects payloads that break the union.
func (r *Response[T]) UnmarshalJSON(data []byte) error {
	type wire struct {
		Success *bool   `json:"success"`
		Message string  `json:"message,omitempty"`
		Data    *T      `json:"data,omitempty"`
		Issues  *Issues `json:"issues,omitempty"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Success == nil {
		return fmt.Errorf("%w: missing success flag", ErrInvalidResponse)
	}
	decoded := Response[T]{Success: *w.Success, Message: w.Message, Data: w.Data, Issues: w.Issues}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*r = decoded
	return nil
}
