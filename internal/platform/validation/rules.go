package validation

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Tag names registered on every validator.
const (
	TagPassword      = "password"
	TagLowercaseChar = "lowercase_char"
	TagUppercaseChar = "uppercase_char"
	TagNumberChar    = "number_char"
	TagSpecialChar   = "special_char"
	TagISODateTime   = "iso_datetime"
	TagISODate       = "iso_date"
	TagLocalPath     = "local_path"
)

// Password length bounds.
const (
	PasswordMinLength = 8
	PasswordMaxLength = 32
)

const isoDateLayout = "2006-01-02"

var isoDateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func registerRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagLowercaseChar: containsRune(unicode.IsLower),
		TagUppercaseChar: containsRune(unicode.IsUpper),
		TagNumberChar:    containsRune(unicode.IsDigit),
		TagSpecialChar:   containsRune(isSpecial),
		TagISODateTime:   parses(isoDateTimeLayouts...),
		TagISODate:       parses(isoDateLayout),
		TagLocalPath:     isLocalPath,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	v.RegisterAlias(TagPassword, strings.Join([]string{
		"min=" + strconv.Itoa(PasswordMinLength),
		"max=" + strconv.Itoa(PasswordMaxLength),
		TagLowercaseChar,
		TagUppercaseChar,
		TagNumberChar,
		TagSpecialChar,
	}, ","))
	return nil
}

func containsRune(match func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), match) >= 0
	}
}

func isSpecial(r rune) bool {
	return !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
}

func parses(layouts ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, layout := range layouts {
			if _, err := time.Parse(layout, value); err == nil {
				return true
			}
		}
		return false
	}
}

// isLocalPath accepts same-origin absolute paths only. Browsers read a
// backslash as a slash, so "/\host" is as external as "//host".
func isLocalPath(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if !strings.HasPrefix(value, "/") || strings.HasPrefix(value, "//") || strings.ContainsAny(value, "\\\r\n\t") {
		return false
	}
	u, err := url.Parse(value)
	return err == nil && u.Scheme == "" && u.Host == "" && u.User == nil
}
