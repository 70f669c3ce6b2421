package middleware

import (
	"net/http"
	"strings"

	"github.com/seedlinghq/seedling/internal/auth"
	"github.com/seedlinghq/seedling/internal/i18n"
)

// protectedPrefix is matched against the locale-stripped path.
const protectedPrefix = "/dashboard"

// bypassPrefixes are served outside the locale-prefixed page tree: API and
// infrastructure endpoints keep their literal paths.
var bypassPrefixes = []string{"/api/", "/static/", "/ws", "/health", "/favicon.ico"}

// Gatekeeper is the single per-request entry point for page routes. For each
// request it resolves the locale, rewrites the path to carry the locale
// prefix when missing, classifies the route, and validates the session,
// redirecting protected routes to the locale-scoped sign-in page when no
// valid identity is present.
type Gatekeeper struct {
	validator *auth.Validator
}

func NewGatekeeper(validator *auth.Validator) *Gatekeeper {
	return &Gatekeeper{validator: validator}
}

// Protected reports whether the locale-stripped path requires a session.
func Protected(pathWithoutLocale string) bool {
	return strings.HasPrefix(pathWithoutLocale, protectedPrefix)
}

func bypassed(path string) bool {
	for _, p := range bypassPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	// Asset-style paths (anything with a file extension) skip locale
	// handling, mirroring the static matcher.
	last := path[strings.LastIndexByte(path, '/')+1:]
	return strings.Contains(last, ".")
}

func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bypassed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		locale, rest, hasPrefix := i18n.Split(r.URL.Path)
		if !hasPrefix {
			locale = i18n.Resolve(r.Host, r.URL.Path)
			// Internal rewrite, not a redirect: the mux below only
			// knows locale-prefixed patterns. The query string rides
			// along untouched on r.URL.
			if rest == "/" {
				r.URL.Path = "/" + locale
			} else {
				r.URL.Path = "/" + locale + rest
			}
		}

		// Session validation runs on every request, protected or not, so
		// the sliding cookie refresh lands on public pages too. Any
		// refreshed cookie is written to w here, before the handler
		// produces the response, so it cannot be lost to an
		// intermediate response object.
		identity, ok := g.validator.Validate(w, r)

		if Protected(rest) && !ok {
			signIn := "/" + locale + "/sign-in"
			if r.URL.RawQuery != "" {
				signIn += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, signIn, http.StatusSeeOther)
			return
		}

		ctx := i18n.WithLocale(r.Context(), locale)
		if ok {
			ctx = auth.WithIdentity(ctx, identity)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AttachSession validates the session and attaches the identity when one
// exists, without rejecting anonymous callers. The hydration endpoints use
// it: they serve null to signed-out callers rather than failing.
func AttachSession(validator *auth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if identity, ok := validator.Validate(w, r); ok {
				ctx = auth.WithIdentity(ctx, identity)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession guards API routes. Unlike the page gatekeeper it answers
// plain 401s; API clients handle their own navigation.
func RequireSession(validator *auth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := validator.Validate(w, r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := auth.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
