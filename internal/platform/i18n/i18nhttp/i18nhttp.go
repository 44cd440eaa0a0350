// Package i18nhttp resolves the request language for HTTP handlers.
package i18nhttp

import (
	"net/http"
	"strings"

	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
)

// LangPlaceholder is replaced with the resolved language in rendered HTML shells.
const LangPlaceholder = "%lang%"

// Preference returns the raw language preference for the request: the
// language cookie first, then the Accept-Language header.
func Preference(r *http.Request) string {
	if r == nil {
		return ""
	}
	if cookie, err := r.Cookie(httpconst.CookieLanguage); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}
	return strings.TrimSpace(r.Header.Get(httpconst.HeaderAcceptLanguage))
}

// Resolve determines the request language. The bool reports whether the
// request carried a preference at all.
func Resolve(r *http.Request) (i18n.Language, bool) {
	preferred := Preference(r)
	if preferred == "" {
		return i18n.Default, false
	}
	return i18n.ResolveLanguage(preferred), true
}

// SetLanguageCookie persists the resolved language on the response.
func SetLanguageCookie(w http.ResponseWriter, lang i18n.Language) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     httpconst.CookieLanguage,
		Value:    lang.String(),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

// Apply resolves the request language, persists it when the request expressed
// a preference, and returns the request with a translator in its context.
func Apply(w http.ResponseWriter, r *http.Request) (*http.Request, i18n.Translator) {
	lang, preferred := Resolve(r)
	if preferred {
		SetLanguageCookie(w, lang)
	}
	translator := i18n.NewTranslator(lang)
	return r.WithContext(i18n.WithTranslator(r.Context(), translator)), translator
}

// Middleware applies language resolution to every request.
func Middleware(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, _ = Apply(w, r)
		next.ServeHTTP(w, r)
	})
}

// ReplaceLangPlaceholder fills the language placeholder of an HTML shell.
func ReplaceLangPlaceholder(html string, lang i18n.Language) string {
	return strings.ReplaceAll(html, LangPlaceholder, lang.String())
}
