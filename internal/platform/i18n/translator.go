package i18n

import (
	"context"

	"github.com/louisbranch/formrpc/internal/platform/i18n/catalog"
	"golang.org/x/text/message"
)

// Localizer renders a message key with printf-style arguments.
type Localizer interface {
	Sprintf(key string, args ...any) string
}

// Translator renders messages for one language.
//
// The zero value renders English from the embedded catalog.
type Translator struct {
	lang    Language
	printer *message.Printer
}

// NewTranslator returns a translator backed by the embedded catalog.
func NewTranslator(lang Language) Translator {
	return NewTranslatorFromBundle(catalog.Default(), lang)
}

// NewTranslatorFromBundle returns a translator backed by bundle.
func NewTranslatorFromBundle(bundle *catalog.Bundle, lang Language) Translator {
	if _, ok := ParseLanguage(string(lang)); !ok {
		lang = Default
	}
	return Translator{
		lang:    lang,
		printer: message.NewPrinter(lang.Tag(), message.Catalog(bundle.Catalog())),
	}
}

// Language returns the language this translator renders.
func (t Translator) Language() Language {
	if t.lang == "" {
		return Default
	}
	return t.lang
}

// Sprintf renders key in the translator language. Unknown keys render as the
// key itself.
func (t Translator) Sprintf(key string, args ...any) string {
	if t.printer == nil {
		return NewTranslator(t.Language()).Sprintf(key, args...)
	}
	return t.printer.Sprintf(key, args...)
}

type translatorContextKey struct{}

// WithTranslator stores a translator in context.
func WithTranslator(ctx context.Context, t Translator) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, translatorContextKey{}, t)
}

// FromContext returns the context translator, or a default-language one.
func FromContext(ctx context.Context) Translator {
	if ctx != nil {
		if t, ok := ctx.Value(translatorContextKey{}).(Translator); ok {
			return t
		}
	}
	return NewTranslator(Default)
}
