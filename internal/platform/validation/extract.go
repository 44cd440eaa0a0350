package validation

import (
	"mime"
	"net/http"
	"net/url"

	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/response"
)

const maxMultipartMemory = 32 << 20

// Parse decodes a JSON payload into T and validates it as input.
func Parse[T any](tr i18n.Translator, data []byte) (T, error) {
	var out T
	v := Default()
	if err := v.DecodeJSON(tr, data, &out); err != nil {
		return out, err
	}
	return out, v.Struct(tr, StageInput, &out)
}

// Check validates value against its tags for the given stage.
func Check(tr i18n.Translator, stage Stage, value any) error {
	return Default().Struct(tr, stage, value)
}

// ExtractFormData decodes form values into T and validates it.
func ExtractFormData[T any](tr i18n.Translator, values url.Values) (T, error) {
	var out T
	v := Default()
	if err := v.DecodeValues(tr, values, &out); err != nil {
		return out, err
	}
	return out, v.Struct(tr, StageInput, &out)
}

// ExtractRequestFormData reads the request form body and validates it as T.
// The request context translator renders the messages.
func ExtractRequestFormData[T any](r *http.Request) (T, error) {
	tr := i18n.FromContext(r.Context())
	var parseErr error
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get(httpconst.HeaderContentType)); mediaType == "multipart/form-data" {
		parseErr = r.ParseMultipartForm(maxMultipartMemory)
	} else {
		parseErr = r.ParseForm()
	}
	if parseErr != nil {
		var zero T
		issues := &response.Issues{}
		issues.AddRoot(tr.Sprintf(i18n.KeyMalformedBody))
		failure := NewError(StageInput, "", issues)
		failure.Cause = parseErr
		return zero, failure
	}
	return ExtractFormData[T](tr, r.PostForm)
}

// ExtractSearchParams decodes the query string of u into T and validates it.
func ExtractSearchParams[T any](tr i18n.Translator, u *url.URL) (T, error) {
	if u == nil {
		return ExtractFormData[T](tr, nil)
	}
	return ExtractFormData[T](tr, u.Query())
}
