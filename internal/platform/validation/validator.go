package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	estranslations "github.com/go-playground/validator/v10/translations/es"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/response"
)

// Validator decodes payloads and checks them against their struct tags.
//
// Field names come from json tags, so the same tag drives JSON bodies, form
// values and the issue paths reported back to clients.
type Validator struct {
	validate *validator.Validate
	decoder  *form.Decoder
	uni      *ut.UniversalTranslator
}

// New builds a validator with the shared rules and en/es fallback messages.
func New() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonName)
	if err := registerRules(validate); err != nil {
		return nil, fmt.Errorf("register rules: %w", err)
	}

	english := en.New()
	uni := ut.New(english, english, es.New())
	enTrans, _ := uni.GetTranslator(i18n.EN.String())
	if err := entranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, fmt.Errorf("register en translations: %w", err)
	}
	esTrans, _ := uni.GetTranslator(i18n.ES.String())
	if err := estranslations.RegisterDefaultTranslations(validate, esTrans); err != nil {
		return nil, fmt.Errorf("register es translations: %w", err)
	}

	decoder := form.NewDecoder()
	decoder.SetTagName("json")

	return &Validator{validate: validate, decoder: decoder, uni: uni}, nil
}

var defaultValidator = sync.OnceValue(func() *Validator {
	v, err := New()
	if err != nil {
		panic(fmt.Sprintf("validation: %v", err))
	}
	return v
})

// Default returns the process-wide validator. It holds no request state.
func Default() *Validator {
	return defaultValidator()
}

// Struct validates value and returns a *Error on violation. Values that are
// not structs (or pointers to structs) carry no schema and always pass.
func (v *Validator) Struct(tr i18n.Translator, stage Stage, value any) error {
	if !isStruct(value) {
		return nil
	}
	err := v.validate.Struct(value)
	if err == nil {
		return nil
	}
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return fmt.Errorf("validate %s: %w", stage, err)
	}
	issues := v.Flatten(tr, rootName(value), violations)
	failure := NewError(stage, "", issues)
	failure.Cause = err
	return failure
}

// Flatten maps validator violations into issue buckets. root is the name of
// the validated struct type, which prefixes every violation namespace.
func (v *Validator) Flatten(tr i18n.Translator, root string, violations validator.ValidationErrors) *response.Issues {
	trans, _ := v.uni.GetTranslator(tr.Language().String())
	issues := &response.Issues{}
	for _, violation := range violations {
		message := v.message(tr, trans, violation)
		path, ok := dotPath(violation.Namespace(), root)
		if !ok {
			issues.AddOther(message)
			continue
		}
		issues.AddNested(path, message)
	}
	return issues
}

// DecodeJSON decodes data into dst. Blank data leaves dst untouched.
func (v *Validator) DecodeJSON(tr i18n.Translator, data []byte, dst any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return decodeJSONError(tr, err)
	}
	return nil
}

// DecodeValues decodes url values (form bodies, query strings) into dst.
func (v *Validator) DecodeValues(tr i18n.Translator, values url.Values, dst any) error {
	err := v.decoder.Decode(dst, values)
	if err == nil {
		return nil
	}
	var decodeErrs form.DecodeErrors
	if !errors.As(err, &decodeErrs) {
		return fmt.Errorf("decode values: %w", err)
	}

	keys := make([]string, 0, len(decodeErrs))
	for key := range decodeErrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	issues := &response.Issues{}
	message := tr.Sprintf(i18n.KeyInvalidValue)
	for _, key := range keys {
		path, ok := dotPath(key, "")
		if !ok {
			issues.AddOther(message)
			continue
		}
		issues.AddNested(path, message)
	}
	failure := NewError(StageInput, "", issues)
	failure.Cause = err
	return failure
}

func (v *Validator) message(tr i18n.Translator, trans ut.Translator, violation validator.FieldError) string {
	switch violation.ActualTag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return tr.Sprintf(i18n.KeyRequired)
	case "min":
		if hasLength(violation.Kind()) {
			return i18n.MinLengthError(tr, violation.Param())
		}
	case "max":
		if hasLength(violation.Kind()) {
			return i18n.MaxLengthError(tr, violation.Param())
		}
	case "email":
		return tr.Sprintf(i18n.KeyEmail)
	case "uuid", "uuid4", "uuid_rfc4122", "uuid4_rfc4122":
		return tr.Sprintf(i18n.KeyUUID)
	case TagLowercaseChar:
		return tr.Sprintf(i18n.KeyLowercase)
	case TagUppercaseChar:
		return tr.Sprintf(i18n.KeyUppercase)
	case TagNumberChar:
		return tr.Sprintf(i18n.KeyNumber)
	case TagSpecialChar:
		return tr.Sprintf(i18n.KeySpecial)
	case TagISODateTime:
		return tr.Sprintf(i18n.KeyISODateTime)
	case TagISODate:
		return tr.Sprintf(i18n.KeyISODate)
	case TagLocalPath:
		return tr.Sprintf(i18n.KeyLocalPath)
	}
	if trans != nil {
		if translated := violation.Translate(trans); translated != "" && translated != violation.Error() {
			return translated
		}
	}
	return tr.Sprintf(i18n.KeyInvalidValue)
}

func decodeJSONError(tr i18n.Translator, err error) *Error {
	issues := &response.Issues{}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Type != nil {
		issues.AddNested(typeErr.Field, tr.Sprintf(i18n.KeyInvalidType, typeErr.Type.Kind().String()))
	} else {
		issues.AddRoot(tr.Sprintf(i18n.KeyMalformedBody))
	}
	failure := NewError(StageInput, "", issues)
	failure.Cause = err
	return failure
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func hasLength(kind reflect.Kind) bool {
	switch kind {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}

func isStruct(value any) bool {
	rv, ok := indirect(value)
	return ok && rv.Kind() == reflect.Struct
}

func rootName(value any) string {
	rv, ok := indirect(value)
	if !ok {
		return ""
	}
	return rv.Type().Name()
}

func indirect(value any) (reflect.Value, bool) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}
