package manifest

import (
	"fmt"
	"testing"

	"amowidget/internal/archive"
	"amowidget/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

// mapSource serves entries out of a map and counts reads per entry.
type mapSource struct {
	entries map[string]string
	reads   map[string]int
}

func newMapSource(entries map[string]string) *mapSource {
	return &mapSource{entries: entries, reads: map[string]int{}}
}

func (m *mapSource) ReadText(name string) (string, error) {
	m.reads[name]++
	text, ok := m.entries[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", archive.ErrEntryMissing, name)
	}
	return text, nil
}

const testManifest = `{
	"widget": {
		"name": "Мой виджет",
		"description": "desc",
		"version": 3,
		"locale": ["ru", "en"]
	}
}`

func newTestResolver(entries map[string]string) (*Resolver, *mapSource, *telemetry.Recorder) {
	source := newMapSource(entries)
	rec := &telemetry.Recorder{}
	return NewResolver(source, "ru", rec), source, rec
}

func TestLocalizedFallbackOrder(t *testing.T) {
	resolver, _, _ := newTestResolver(map[string]string{
		ManifestEntry:          testManifest,
		TranslationEntry("en"): `{"widget": {"name": "My widget"}}`,
	})

	testCases := []struct {
		key      string
		locale   string
		expected string
		found    bool
	}{
		{key: "widget.name", locale: "en", expected: "My widget", found: true},
		{key: "widget.description", locale: "en", expected: "desc", found: true},
		{key: "widget.name", locale: "ru", expected: "Мой виджет", found: true},
		{key: "widget.name", locale: "", expected: "Мой виджет", found: true},
		{key: "widget.name", locale: "pt", expected: "Мой виджет", found: true},
		{key: "widget.version", locale: "es", expected: "3", found: true},
		{key: "widget.missing", locale: "en"},
		{key: "widget.missing", locale: "pt"},
		{key: "widget.locale", locale: "en"},
		{key: "widget", locale: "en"},
	}

	for _, test := range testCases {
		t.Run(fmt.Sprintf("%s/%s", test.key, test.locale), func(t *testing.T) {
			value, found, err := resolver.Localized(test.key, test.locale)
			require.NoError(t, err)
			require.Equal(t, test.found, found)
			require.Equal(t, test.expected, value)
		})
	}
}

func TestLocalesWithoutOverrideMatchManifest(t *testing.T) {
	resolver, _, _ := newTestResolver(map[string]string{
		ManifestEntry: testManifest,
	})

	for _, key := range []string{"widget.name", "widget.description", "widget.version", "widget.none"} {
		expected, expectedFound, err := resolver.Localized(key, "ru")
		require.NoError(t, err)

		for _, locale := range []string{"en", "es", "pt", "de", "zz"} {
			value, found, err := resolver.Localized(key, locale)
			require.NoError(t, err)
			require.Equal(t, expectedFound, found, key)
			require.Equal(t, expected, value, key)
		}
	}
}

func TestMissingTranslationFallsBackToDefault(t *testing.T) {
	resolver, _, _ := newTestResolver(map[string]string{
		ManifestEntry: `{"widget": {"name": "n", "description": "desc"}}`,
	})

	value, found, err := resolver.Localized("widget.description", "pt")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "desc", value)
}

func TestMalformedTranslationIsSwallowed(t *testing.T) {
	resolver, source, rec := newTestResolver(map[string]string{
		ManifestEntry:          testManifest,
		TranslationEntry("en"): `{"widget": {"name": `,
	})

	for i := 0; i < 3; i++ {
		value, found, err := resolver.Localized("widget.name", "en")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "Мой виджет", value)
	}

	require.Equal(t, 1, source.reads[TranslationEntry("en")])
	require.Len(t, rec.Find("warning", report_resolver_load_translation), 1)
}

func TestDocumentsAreCached(t *testing.T) {
	resolver, source, _ := newTestResolver(map[string]string{
		ManifestEntry:          testManifest,
		TranslationEntry("en"): `{"widget": {"name": "My widget"}}`,
	})

	for _, locale := range []string{"en", "pt", "en", "pt", "ru"} {
		_, _, err := resolver.Localized("widget.name", locale)
		require.NoError(t, err)
	}

	require.Equal(t, 1, source.reads[ManifestEntry])
	require.Equal(t, 1, source.reads[TranslationEntry("en")])
	require.Equal(t, 1, source.reads[TranslationEntry("pt")])
	require.Equal(t, 1, source.reads[TranslationEntry("ru")])

	resolver.Reset()
	_, _, err := resolver.Localized("widget.name", "en")
	require.NoError(t, err)
	require.Equal(t, 2, source.reads[ManifestEntry])
	require.Equal(t, 2, source.reads[TranslationEntry("en")])
}

func TestMissingManifest(t *testing.T) {
	resolver, _, rec := newTestResolver(map[string]string{})

	_, _, err := resolver.Localized("widget.name", "en")
	require.ErrorIs(t, err, archive.ErrEntryMissing)
	require.Len(t, rec.Find("broken", report_resolver_load_manifest), 1)
}

func TestMalformedManifest(t *testing.T) {
	resolver, _, _ := newTestResolver(map[string]string{
		ManifestEntry: `{"widget": `,
	})

	_, _, err := resolver.Localized("widget.name", "en")
	require.Error(t, err)
}

func TestLocalizedOrEmpty(t *testing.T) {
	resolver, _, _ := newTestResolver(map[string]string{
		ManifestEntry: testManifest,
	})

	value, err := resolver.LocalizedOrEmpty("widget.none", "en")
	require.NoError(t, err)
	require.Equal(t, "", value)
}
