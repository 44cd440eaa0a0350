package errors

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"

	"github.com/louisbranch/formrpc/internal/platform/response"
)

// otherField marks issues whose path has no dot-path form on the wire.
const otherField = "*"

// GRPCStatus converts the error to a gRPC status with errdetails. The status
// message and LocalizedMessage both carry the user-facing message; issues
// travel as BadRequest field violations.
func (e *Error) GRPCStatus() *status.Status {
	return e.status("")
}

// ToGRPCStatus returns the gRPC error for e, tagging the localized message
// with the locale it was rendered in.
func (e *Error) ToGRPCStatus(locale string) error {
	return e.status(locale).Err()
}

func (e *Error) status(locale string) *status.Status {
	st := status.New(e.Code.GRPCCode(), e.Message)

	details := []protoadapt.MessageV1{
		&errdetails.ErrorInfo{Reason: string(e.Code), Domain: Domain},
	}
	if e.Message != "" {
		details = append(details, &errdetails.LocalizedMessage{Locale: locale, Message: e.Message})
	}
	if violations := fieldViolations(e.Issues); len(violations) > 0 {
		details = append(details, &errdetails.BadRequest{FieldViolations: violations})
	}

	withDetails, err := st.WithDetails(details...)
	if err != nil {
		// If we can't attach details, return the basic status
		return st
	}
	return withDetails
}

// FromGRPCStatus decodes a transport error from a gRPC status. Statuses
// produced without details map through CodeFromGRPC.
func FromGRPCStatus(st *status.Status) *Error {
	if st == nil || st.Code() == codes.OK {
		return nil
	}
	out := &Error{Code: CodeFromGRPC(st.Code()), Message: st.Message()}
	var issues response.Issues
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			if code, ok := ParseCode(d.GetReason()); ok {
				out.Code = code
			}
		case *errdetails.LocalizedMessage:
			if d.GetMessage() != "" {
				out.Message = d.GetMessage()
			}
		case *errdetails.BadRequest:
			for _, violation := range d.GetFieldViolations() {
				switch violation.GetField() {
				case otherField:
					issues.AddOther(violation.GetDescription())
				default:
					issues.AddNested(violation.GetField(), violation.GetDescription())
				}
			}
		}
	}
	if out.Code.CarriesIssues() && !issues.Empty() {
		out.Issues = &issues
	}
	return out
}

// FromGRPCError decodes a transport error from any error returned by a gRPC
// call. Errors that are not statuses become INTERNAL_SERVER_ERROR.
func FromGRPCError(err error) *Error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return Wrap(CodeInternalServerError, err.Error(), err)
	}
	return FromGRPCStatus(st)
}

func fieldViolations(issues *response.Issues) []*errdetails.BadRequest_FieldViolation {
	if issues.Empty() {
		return nil
	}
	var out []*errdetails.BadRequest_FieldViolation
	for _, message := range issues.Root {
		out = append(out, &errdetails.BadRequest_FieldViolation{Description: message})
	}
	for _, field := range issues.Fields() {
		for _, message := range issues.Field(field) {
			out = append(out, &errdetails.BadRequest_FieldViolation{Field: field, Description: message})
		}
	}
	for _, message := range issues.Other {
		out = append(out, &errdetails.BadRequest_FieldViolation{Field: otherField, Description: message})
	}
	return out
}
