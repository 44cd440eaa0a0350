// Package httpconst holds HTTP header, cookie and content type names.
package httpconst

const (
	HeaderCacheControl   = "Cache-Control"
	HeaderContentType    = "Content-Type"
	HeaderAcceptLanguage = "Accept-Language"
	HeaderAuthorization  = "Authorization"
	HeaderRequestID      = "X-Request-ID"
	HeaderLocation       = "Location"
)

const (
	CookieLanguage = "language"
	CookieSession  = "session"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)
