// Package catalog loads the locale message files into an x/text catalog.
//
// Files live at locales/<locale>/<namespace>.yaml and every message key starts
// with its namespace, so "errors.internal_server" comes from errors.yaml.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	xcatalog "golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale supplies every message a locale does not translate.
const BaseLocale = "en"

type file struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every locale.
type Bundle struct {
	messages map[string]map[string]string

	once    sync.Once
	builder *xcatalog.Builder
}

var (
	//go:embed locales/*/*.yaml
	embedded embed.FS

	defaultBundle = mustLoad(embedded)
)

// Default returns the embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadFromFS loads every locales/*/*.yaml file of fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{messages: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		if err := b.add(p, data); err != nil {
			return nil, err
		}
	}
	if _, ok := b.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return b, nil
}

func (b *Bundle) add(p string, data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse catalog %s: %w", p, err)
	}

	dir, name := path.Split(p)
	wantLocale := path.Base(dir)
	wantNamespace := strings.TrimSuffix(name, path.Ext(name))

	locale := strings.TrimSpace(f.Locale)
	if locale != wantLocale {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, wantLocale)
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("catalog %s: parse locale %q: %w", p, locale, err)
	}
	namespace := strings.TrimSpace(f.Namespace)
	if namespace != wantNamespace {
		return fmt.Errorf("catalog %s: namespace %q must match filename namespace %q", p, namespace, wantNamespace)
	}
	if len(f.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", p)
	}

	messages := b.messages[locale]
	if messages == nil {
		messages = map[string]string{}
		b.messages[locale] = messages
	}
	for key, value := range f.Messages {
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, namespace+".") {
			return fmt.Errorf("catalog %s: key %q must start with %q", p, key, namespace+".")
		}
		messages[key] = value
	}
	return nil
}

// Locales returns the loaded locales in sorted order.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.messages))
	for locale := range b.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Message returns the message for key in locale, falling back to the base
// locale.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if value, ok := b.messages[locale][key]; ok {
		return value, true
	}
	value, ok := b.messages[BaseLocale][key]
	return value, ok
}

// MissingKeys returns the base locale keys locale does not translate.
func (b *Bundle) MissingKeys(locale string) []string {
	var missing []string
	for key := range b.messages[BaseLocale] {
		if _, ok := b.messages[locale][key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Catalog returns an x/text catalog with every locale filled from the base
// locale.
func (b *Bundle) Catalog() *xcatalog.Builder {
	b.once.Do(func() {
		b.builder = xcatalog.NewBuilder(xcatalog.Fallback(language.English))
		for _, locale := range b.Locales() {
			tag := language.MustParse(locale)
			for key := range b.messages[BaseLocale] {
				value, _ := b.Message(locale, key)
				_ = b.builder.SetString(tag, key, value)
			}
			for key, value := range b.messages[locale] {
				_ = b.builder.SetString(tag, key, value)
			}
		}
	})
	return b.builder
}

func mustLoad(fsys fs.FS) *Bundle {
	b, err := LoadFromFS(fsys)
	if err != nil {
		panic(err)
	}
	return b
}
