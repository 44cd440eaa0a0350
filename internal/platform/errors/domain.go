package errors

import stderrors "errors"

// Kind is the closed set of domain failures business code may raise.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindAlreadyExists
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// DomainError is a business failure with a user-facing message.
type DomainError struct {
	Kind    Kind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any domain error of the same kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Kind == e.Kind
}

// NotFound returns a domain error for a missing entity.
func NotFound(message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: message}
}

// AlreadyExists returns a domain error for a duplicate entity.
func AlreadyExists(message string) *DomainError {
	return &DomainError{Kind: KindAlreadyExists, Message: message}
}

// IsNotFound reports whether err wraps a NotFound domain error.
func IsNotFound(err error) bool {
	return stderrors.Is(err, &DomainError{Kind: KindNotFound})
}

// IsAlreadyExists reports whether err wraps an AlreadyExists domain error.
func IsAlreadyExists(err error) bool {
	return stderrors.Is(err, &DomainError{Kind: KindAlreadyExists})
}
