// Package errors provides the error taxonomy shared by procedures and safe
// actions: domain errors raised by business code, transport error codes that
// cross the procedure boundary, and the classification between them.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable transport error code.
type Code string

const (
	CodeInternalServerError   Code = "INTERNAL_SERVER_ERROR"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeInputValidationError  Code = "INPUT_VALIDATION_ERROR"
	CodeOutputValidationError Code = "OUTPUT_VALIDATION_ERROR"
)

var knownCodes = []Code{
	CodeInternalServerError,
	CodeNotFound,
	CodeConflict,
	CodeUnauthorized,
	CodeInputValidationError,
	CodeOutputValidationError,
}

// ParseCode returns the code named by value.
func ParseCode(value string) (Code, bool) {
	for _, code := range knownCodes {
		if string(code) == value {
			return code, true
		}
	}
	return "", false
}

// GRPCCode maps transport codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotFound:
		return codes.NotFound
	case CodeConflict:
		return codes.AlreadyExists
	case CodeUnauthorized:
		return codes.Unauthenticated
	case CodeInputValidationError:
		return codes.InvalidArgument
	// A handler returning data that breaks its own schema is a server fault.
	case CodeOutputValidationError:
		return codes.Internal
	default:
		return codes.Internal
	}
}

// HTTPStatus maps transport codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInputValidationError:
		return http.StatusUnprocessableEntity
	case CodeOutputValidationError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CarriesIssues reports whether errors with this code may attach issues.
func (c Code) CarriesIssues() bool {
	switch c {
	case CodeUnauthorized, CodeInternalServerError:
		return false
	default:
		return true
	}
}

// IsValidation reports whether the code denotes a schema validation failure.
func (c Code) IsValidation() bool {
	return c == CodeInputValidationError || c == CodeOutputValidationError
}

// CodeFromGRPC maps a gRPC status code back to a transport code. It is used
// when a status arrives without error details.
func CodeFromGRPC(code codes.Code) Code {
	switch code {
	case codes.NotFound:
		return CodeNotFound
	case codes.AlreadyExists:
		return CodeConflict
	case codes.Unauthenticated:
		return CodeUnauthorized
	case codes.InvalidArgument:
		return CodeInputValidationError
	default:
		return CodeInternalServerError
	}
}
