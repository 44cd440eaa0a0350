// Package i18n resolves the request language and renders translated messages.
//
// The active language is always an explicit value: callers resolve a
// Translator per request and pass it along, either directly or through
// context.Context.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is a supported user-facing language.
type Language string

const (
	// EN is English, the fallback language.
	EN Language = "en"
	// ES is Spanish.
	ES Language = "es"
)

// Default is used when no supported preference can be resolved.
const Default = EN

var supported = []Language{EN, ES}

// Supported returns the supported languages, default first.
func Supported() []Language {
	return append([]Language(nil), supported...)
}

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() language.Tag {
	switch l {
	case ES:
		return language.Spanish
	default:
		return language.English
	}
}

// String returns the language code.
func (l Language) String() string {
	return string(l)
}

// ResolveLanguage maps a preference to a supported language.
//
// preferred may be a single tag ("es-MX") or a full Accept-Language value
// ("fr;q=0.9, es-MX;q=0.8"). The first supported base language in preference
// order wins, so a whole header such as "es,en" resolves to ES instead of
// being read as one unknown tag. Anything else falls back to EN.
func ResolveLanguage(preferred string) Language {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(preferred)
	if err != nil || len(tags) == 0 {
		return resolveFromPrefix(preferred)
	}
	for _, tag := range tags {
		base, _ := tag.Base()
		switch base.String() {
		case string(ES):
			return ES
		case string(EN):
			return EN
		}
	}
	return Default
}

// ParseLanguage returns the supported language for an exact code.
func ParseLanguage(value string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(value))) {
	case EN:
		return EN, true
	case ES:
		return ES, true
	default:
		return "", false
	}
}

func resolveFromPrefix(preferred string) Language {
	lower := strings.ToLower(preferred)
	if lower == string(ES) || strings.HasPrefix(lower, string(ES)+"-") || strings.HasPrefix(lower, string(ES)+"_") {
		return ES
	}
	return Default
}
