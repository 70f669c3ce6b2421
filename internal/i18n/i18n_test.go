package i18n

import (
	"net/http/httptest"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		path   string
		locale string
		rest   string
		ok     bool
	}{
		{"/fr/dashboard", "fr", "/dashboard", true},
		{"/en", "en", "/", true},
		{"/en/", "en", "/", true},
		{"/sl/pricing", "sl", "/pricing", true},
		{"/pricing", "", "/pricing", false},
		{"/", "", "/", false},
		{"/de/dashboard", "", "/de/dashboard", false},
		{"/french/dashboard", "", "/french/dashboard", false},
		{"/fr/dashboard/settings", "fr", "/dashboard/settings", true},
	}
	for _, tt := range tests {
		locale, rest, ok := Split(tt.path)
		if locale != tt.locale || rest != tt.rest || ok != tt.ok {
			t.Errorf("Split(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.path, locale, rest, ok, tt.locale, tt.rest, tt.ok)
		}
	}
}

func TestResolvePathWins(t *testing.T) {
	// A path locale beats the domain mapping.
	if got := Resolve("example.fr", "/sl/dashboard"); got != "sl" {
		t.Errorf("Resolve = %q, want sl", got)
	}
}

func TestResolveDomainFallback(t *testing.T) {
	if got := Resolve("example.fr", "/dashboard"); got != "fr" {
		t.Errorf("Resolve = %q, want fr", got)
	}
	if got := Resolve("example.si", "/"); got != "sl" {
		t.Errorf("Resolve = %q, want sl", got)
	}
}

func TestResolveDefault(t *testing.T) {
	if got := Resolve("unknown.example.org", "/pricing"); got != DefaultLocale {
		t.Errorf("Resolve = %q, want %q", got, DefaultLocale)
	}
}

func TestResolveNeverUnsupported(t *testing.T) {
	for _, path := range []string{"/", "/de/dashboard", "/xx", "/pricing"} {
		got := Resolve("nowhere.test", path)
		if !Supported(got) {
			t.Errorf("Resolve(%q) = %q, not a supported locale", path, got)
		}
	}
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		referer string
		host    string
		want    string
	}{
		{"path prefix wins", "/fr/dashboard", "", "example.com", "fr"},
		{"referer decides for api calls", "/api/account/delete", "https://example.com/fr/dashboard", "example.com", "fr"},
		{"referer beats domain", "/api/stripe/checkout", "https://example.fr/sl/pricing", "example.fr", "sl"},
		{"domain fallback without referer", "/api/stripe/checkout", "", "example.fr", "fr"},
		{"default for bare requests", "/api/account/delete", "", "nowhere.test", DefaultLocale},
		{"unparseable referer ignored", "/api/account/delete", "://bad", "nowhere.test", DefaultLocale},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("POST", tt.path, nil)
		r.Host = tt.host
		if tt.referer != "" {
			r.Header.Set("Referer", tt.referer)
		}
		if got := FromRequest(r); got != tt.want {
			t.Errorf("%s: FromRequest = %q, want %q", tt.name, got, tt.want)
		}
	}
}
