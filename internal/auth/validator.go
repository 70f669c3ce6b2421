package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/seedlinghq/seedling/internal/store"
)

// CookieName is the session cookie issued at sign-in and refreshed by the
// validator.
const CookieName = "seedling_session"

// Validator turns request cookies into a validated Identity. Store or lookup
// failures are treated as "no identity" rather than surfaced as errors, so a
// backend outage degrades to signed-out instead of a broken request.
type Validator struct {
	sessions *store.SessionStore
	teams    *store.TeamStore
	logger   *slog.Logger
}

func NewValidator(sessions *store.SessionStore, teams *store.TeamStore, logger *slog.Logger) *Validator {
	return &Validator{sessions: sessions, teams: teams, logger: logger}
}

// Validate resolves the request's session cookie. It returns the identity
// and true when the session is valid, and the zero Identity and false
// otherwise. When the session passed the halfway point of its lifetime it is
// extended and the refreshed cookie is set on w; the cookie write happens
// here, on the ResponseWriter the handler chain will actually return.
func (v *Validator) Validate(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}

	sess, err := v.sessions.GetByToken(cookie.Value)
	if err != nil {
		v.logger.Warn("session lookup failed", "error", err)
		return Identity{}, false
	}
	if sess == nil {
		return Identity{}, false
	}

	if time.Until(sess.ExpiresAt) < store.SessionTTL/2 {
		if expiresAt, err := v.sessions.Extend(sess.ID); err != nil {
			v.logger.Warn("session refresh failed", "error", err)
		} else {
			SetSessionCookie(w, r, cookie.Value, expiresAt)
		}
	}

	id := Identity{UserID: sess.UserID, SessionID: sess.ID}

	// Membership is best effort: a failed lookup leaves the identity
	// team-less rather than signed out.
	membership, err := v.teams.GetMembership(sess.UserID)
	if err != nil {
		v.logger.Warn("membership lookup failed", "error", err)
		return id, true
	}
	if membership != nil {
		id.TeamID = membership.TeamID
		id.Role = membership.Role
	}
	return id, true
}

// SetSessionCookie writes the session cookie with the standard attributes.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

// ClearSessionCookie expires the session cookie on the response.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
