package i18n

// Message keys shared across the procedure boundary.
const (
	KeyInternalServerError = "errors.internal_server"
	KeyParsingFailed       = "errors.parsing_failed"
	KeyUnauthenticated     = "errors.unauthenticated"
	KeyTooManyRequests     = "errors.too_many_requests"
	KeyMalformedBody       = "errors.malformed_body"
	KeyInvalidType         = "errors.invalid_type"

	KeyRequired     = "validation.required"
	KeyNonEmpty     = "validation.non_empty"
	KeyMinLength    = "validation.min_length"
	KeyMaxLength    = "validation.max_length"
	KeyEmail        = "validation.email"
	KeyUUID         = "validation.uuid"
	KeyLowercase    = "validation.lowercase"
	KeyUppercase    = "validation.uppercase"
	KeyNumber       = "validation.number"
	KeySpecial      = "validation.special"
	KeyISODateTime  = "validation.iso_datetime"
	KeyISODate      = "validation.iso_date"
	KeyLocalPath    = "validation.local_path"
	KeyInvalidValue = "validation.invalid"
)

// InternalServerError returns the generic internal error message.
func InternalServerError(l Localizer) string {
	return l.Sprintf(KeyInternalServerError)
}

// ParsingFailedError returns the message for content that does not match its schema.
func ParsingFailedError(l Localizer) string {
	return l.Sprintf(KeyParsingFailed)
}

// UnauthenticatedError returns the message for calls that require a session.
func UnauthenticatedError(l Localizer) string {
	return l.Sprintf(KeyUnauthenticated)
}

// TooManyRequestsError returns the rate limit message.
func TooManyRequestsError(l Localizer) string {
	return l.Sprintf(KeyTooManyRequests)
}

// MinLengthError returns the minimum length message.
func MinLengthError(l Localizer, requirement string) string {
	return l.Sprintf(KeyMinLength, requirement)
}

// MaxLengthError returns the maximum length message.
func MaxLengthError(l Localizer, requirement string) string {
	return l.Sprintf(KeyMaxLength, requirement)
}
