// Package i18n resolves the active locale for a request and serves the
// translated message bundles for it.
package i18n

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Locales is the closed set of supported language tags.
var Locales = []string{"en", "fr", "sl"}

// DefaultLocale is used when neither the path nor the domain carries a locale.
const DefaultLocale = "en"

// DomainLocales maps marketing domains to their locale.
var DomainLocales = map[string]string{
	"example.com":    "en",
	"example.fr":     "fr",
	"example.si":     "sl",
	"localhost:8080": "en",
}

// Supported reports whether tag is a member of the supported-locale set.
func Supported(tag string) bool {
	for _, l := range Locales {
		if l == tag {
			return true
		}
	}
	return false
}

// Split separates a leading locale segment from the rest of the path.
// "/fr/dashboard" yields ("fr", "/dashboard", true); "/pricing" yields
// ("", "/pricing", false). The rest is always rooted ("/" at minimum).
func Split(path string) (locale, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	seg, tail, _ := strings.Cut(trimmed, "/")
	if !Supported(seg) {
		return "", normalize(path), false
	}
	return seg, normalize("/" + tail), true
}

func normalize(p string) string {
	if p == "" || p == "//" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Resolve returns exactly one supported locale for a request: the path's
// leading locale segment if present, else the domain-mapped locale, else the
// default. It never returns an unsupported tag.
func Resolve(host, path string) string {
	if locale, _, ok := Split(path); ok {
		return locale
	}
	if locale, ok := DomainLocales[host]; ok {
		return locale
	}
	return DefaultLocale
}

// FromRequest resolves a locale for routes the gatekeeper never rewrites
// (the /api tree). The request path rarely carries a prefix there, so the
// Referer's path decides before the domain mapping does: an API call made
// from /fr/dashboard answers in French.
func FromRequest(r *http.Request) string {
	if locale, _, ok := Split(r.URL.Path); ok {
		return locale
	}
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil {
			if locale, _, ok := Split(u.Path); ok {
				return locale
			}
		}
	}
	return Resolve(r.Host, r.URL.Path)
}

type localeKey struct{}

// WithLocale attaches the resolved locale to the request context.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// FromContext returns the resolved locale, or the default when none was set.
func FromContext(ctx context.Context) string {
	if l, ok := ctx.Value(localeKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLocale
}
