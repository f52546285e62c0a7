// Package manifest resolves localized strings out of a widget package's
// manifest.json and its i18n/<locale>.json translations.
package manifest

import (
	"errors"
	"fmt"
	"sync"

	"amowidget/internal/archive"
	"amowidget/internal/components/assert"
	"amowidget/internal/components/telemetry"

	"github.com/tidwall/gjson"
)

const (
	report_resolver_load_manifest    = "resolver.load-manifest"
	report_resolver_load_translation = "resolver.load-translation"
	report_resolver_lookup           = "resolver.lookup"
)

const ManifestEntry = "manifest.json"

func TranslationEntry(locale string) string {
	return fmt.Sprintf("i18n/%s.json", locale)
}

// Source is anything that can return the text of a named entry, usually an *archive.Archive.
type Source interface {
	ReadText(name string) (string, error)
}

// document is a cached json document, an empty raw value means "no document".
type document struct {
	loaded bool
	raw    string
}

// Resolver resolves dotted keys (ex. `widget.name`) to localized strings.
//
// A key is looked up in the translation for the requested locale first, then in
// manifest.json, which is authored in the default locale. Translations that are
// missing or not valid json are cached as empty and never retried.
type Resolver struct {
	source        Source
	defaultLocale string
	tel           telemetry.API

	mutex        sync.Mutex
	manifest     document
	translations map[string]*document
}

func NewResolver(source Source, defaultLocale string, tel telemetry.API) *Resolver {
	assert.NotNil(source)
	assert.NotNil(tel)
	assert.NotEmptyStr(defaultLocale)

	return &Resolver{
		source:        source,
		defaultLocale: defaultLocale,
		tel:           telemetry.NewScopedAPI("manifest", tel),
		translations:  map[string]*document{},
	}
}

func (r *Resolver) DefaultLocale() string {
	return r.defaultLocale
}

// Reset drops every cached document, the next lookup reloads them from the source.
func (r *Resolver) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.manifest = document{}
	r.translations = map[string]*document{}
}

func (r *Resolver) loadManifest() (string, error) {
	if r.manifest.loaded {
		return r.manifest.raw, nil
	}

	raw, err := r.source.ReadText(ManifestEntry)
	if err != nil {
		r.tel.ReportBroken(report_resolver_load_manifest, err)
		return "", fmt.Errorf("read manifest: %w", err)
	}
	if !gjson.Valid(raw) {
		err := fmt.Errorf("%s is not valid json", ManifestEntry)
		r.tel.ReportBroken(report_resolver_load_manifest, err)
		return "", err
	}

	r.manifest = document{loaded: true, raw: raw}
	return raw, nil
}

func (r *Resolver) loadTranslation(locale string) string {
	cached, ok := r.translations[locale]
	if ok && cached.loaded {
		return cached.raw
	}

	doc := &document{loaded: true}
	r.translations[locale] = doc

	entry := TranslationEntry(locale)
	raw, err := r.source.ReadText(entry)
	if errors.Is(err, archive.ErrEntryMissing) {
		r.tel.ReportDebug("no translation for locale", locale)
		return ""
	}
	if err != nil {
		r.tel.ReportWarning(report_resolver_load_translation, fmt.Errorf("read %s: %w", entry, err))
		return ""
	}
	if !gjson.Valid(raw) {
		r.tel.ReportWarning(report_resolver_load_translation, fmt.Errorf("%s is not valid json", entry))
		return ""
	}

	doc.raw = raw
	return raw
}

// lookup returns the scalar at key, objects, arrays and null count as absent.
func (r *Resolver) lookup(raw, key string) (string, bool) {
	if raw == "" {
		return "", false
	}
	result := gjson.Get(raw, key)
	switch result.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return result.String(), true
	case gjson.JSON:
		r.tel.ReportWarning(report_resolver_lookup, fmt.Errorf("%s is not a scalar", key))
	}
	return "", false
}

// Localized returns the value of key for locale, an empty locale means the
// default locale. The boolean is false when neither the translation nor the
// manifest defines the key.
func (r *Resolver) Localized(key, locale string) (string, bool, error) {
	if locale == "" {
		locale = r.defaultLocale
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	manifest, err := r.loadManifest()
	if err != nil {
		return "", false, err
	}

	value, ok := r.lookup(r.loadTranslation(locale), key)
	if ok {
		return value, true, nil
	}
	value, ok = r.lookup(manifest, key)
	return value, ok, nil
}

// LocalizedOrEmpty is Localized, except an unresolved key yields "".
func (r *Resolver) LocalizedOrEmpty(key, locale string) (string, error) {
	value, _, err := r.Localized(key, locale)
	return value, err
}
