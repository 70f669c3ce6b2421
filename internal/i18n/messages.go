package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed translations/*.json
var translationFS embed.FS

// Bundle holds all message namespaces for one locale. The "shared" namespace
// is merged under every other namespace at lookup time.
type Bundle map[string]map[string]string

const sharedNamespace = "shared"

var (
	loadOnce sync.Once
	bundles  map[string]Bundle
	loadErr  error
)

func load() {
	bundles = make(map[string]Bundle, len(Locales))
	for _, locale := range Locales {
		data, err := translationFS.ReadFile("translations/" + locale + ".json")
		if err != nil {
			loadErr = fmt.Errorf("read bundle %s: %w", locale, err)
			return
		}
		var b Bundle
		if err := json.Unmarshal(data, &b); err != nil {
			loadErr = fmt.Errorf("parse bundle %s: %w", locale, err)
			return
		}
		bundles[locale] = b
	}
}

// Messages returns the full bundle for a locale, falling back to the default
// locale's bundle for unsupported tags.
func Messages(locale string) (Bundle, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	if b, ok := bundles[locale]; ok {
		return b, nil
	}
	return bundles[DefaultLocale], nil
}

// Namespace returns the merged lookup table for one component namespace:
// shared messages first, then the namespace's own messages on top, with any
// key missing from the locale filled from the default locale. The result is
// a fresh map the caller may hand to a template.
func Namespace(locale, ns string) map[string]string {
	loadOnce.Do(load)
	if loadErr != nil {
		return map[string]string{}
	}

	merged := make(map[string]string)
	chain := []string{DefaultLocale, locale}
	for _, l := range chain {
		if b, ok := bundles[l]; ok {
			for k, v := range b[sharedNamespace] {
				merged[k] = v
			}
		}
	}
	for _, l := range chain {
		if b, ok := bundles[l]; ok {
			for k, v := range b[ns] {
				merged[k] = v
			}
		}
	}
	return merged
}

// T looks up a single key in a namespace for the given locale. A missing key
// echoes the key itself so broken lookups stay visible instead of rendering
// blank.
func T(locale, ns, key string) string {
	if v, ok := Namespace(locale, ns)[key]; ok {
		return v
	}
	return key
}
