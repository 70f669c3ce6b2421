package handler

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/seedlinghq/seedling/internal/auth"
	"github.com/seedlinghq/seedling/internal/hydrate"
	"github.com/seedlinghq/seedling/internal/i18n"
	"github.com/seedlinghq/seedling/internal/model"
	"github.com/seedlinghq/seedling/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// ShellHandler renders the HTML shells. The dashboard shell prefetches the
// user and team once, hydrates a server-side cache, and embeds the
// dehydrated snapshot in the page so the client cache starts warm.
type ShellHandler struct {
	users     *store.UserStore
	teams     *store.TeamStore
	templates *template.Template
	logger    *slog.Logger
}

func NewShellHandler(us *store.UserStore, ts *store.TeamStore, logger *slog.Logger) *ShellHandler {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	return &ShellHandler{users: us, teams: ts, templates: tmpl, logger: logger}
}

// Landing serves the localized marketing page.
func (h *ShellHandler) Landing(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	h.render(w, "landing.html", map[string]any{
		"Locale": locale,
		"T":      i18n.Namespace(locale, "Landing"),
	})
}

// Pricing serves the localized pricing page.
func (h *ShellHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	h.render(w, "pricing.html", map[string]any{
		"Locale": locale,
		"T":      i18n.Namespace(locale, "Pricing"),
	})
}

// SignInPage serves the sign-in form. A redirect query parameter survives
// into the form so a post-login bounce lands where the user was headed.
func (h *ShellHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	h.render(w, "sign_in.html", map[string]any{
		"Locale":   locale,
		"T":        i18n.Namespace(locale, "Login"),
		"Redirect": r.URL.Query().Get("redirect"),
	})
}

// SignUpPage serves the sign-up form, carrying through invitation parameters
// when the visitor arrived from an invite link.
func (h *ShellHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	h.render(w, "sign_up.html", map[string]any{
		"Locale": locale,
		"T":      i18n.Namespace(locale, "Login"),
		"Invite": r.URL.Query().Get("invite"),
		"Email":  r.URL.Query().Get("email"),
	})
}

// Dashboard renders the dashboard shell. Data flows through a per-request
// prefetcher into a fresh server-mode cache, and the dehydrated snapshot is
// embedded as a JSON island for the client cache to hydrate from.
func (h *ShellHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	userID := auth.UserID(r.Context())

	prefetcher := hydrate.NewPrefetcher(
		func(ctx context.Context) (*model.User, error) {
			if userID == 0 {
				return nil, nil
			}
			return h.users.GetByID(userID)
		},
		func(ctx context.Context, uid int64) (*model.TeamWithMembers, error) {
			return h.teams.GetForUser(uid)
		},
		h.logger,
	)

	cache := hydrate.New(hydrate.ModeServer)
	cache.Hydrate(prefetcher.Snapshot(r.Context()))

	snap, err := cache.Dehydrate()
	if err != nil {
		h.logger.Error("dehydrate cache", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	state, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("marshal hydration state", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.render(w, "dashboard.html", map[string]any{
		"Locale": locale,
		"T":      i18n.Namespace(locale, "Dashboard"),
		"User":   prefetcher.User(r.Context()),
		"Team":   prefetcher.Team(r.Context()),
		"State":  template.JS(state),
	})
}

func (h *ShellHandler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render template", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// renderAuthError re-renders an auth form with a localized error message.
func (h *ShellHandler) renderAuthError(w http.ResponseWriter, r *http.Request, name, message string) {
	locale := i18n.FromContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnprocessableEntity)
	h.render(w, name, map[string]any{
		"Locale": locale,
		"T":      i18n.Namespace(locale, "Login"),
		"Error":  message,
		"Email":  r.FormValue("email"),
	})
}
