package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/seedlinghq/seedling/internal/auth"
	"github.com/seedlinghq/seedling/internal/hydrate"
	"github.com/seedlinghq/seedling/internal/i18n"
	"github.com/seedlinghq/seedling/internal/invite"
	"github.com/seedlinghq/seedling/internal/middleware"
	"github.com/seedlinghq/seedling/internal/model"
	"github.com/seedlinghq/seedling/internal/store"
)

type AuthHandler struct {
	users       *store.UserStore
	teams       *store.TeamStore
	sessions    *store.SessionStore
	invitations *store.InvitationStore
	activity    *store.ActivityStore
	signer      *invite.Signer
	shell       *ShellHandler
	logger      *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ts *store.TeamStore,
	ss *store.SessionStore,
	is *store.InvitationStore,
	as *store.ActivityStore,
	signer *invite.Signer,
	shell *ShellHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:       us,
		teams:       ts,
		sessions:    ss,
		invitations: is,
		activity:    as,
		signer:      signer,
		shell:       shell,
		logger:      logger,
	}
}

// SignIn verifies credentials and establishes a session. On success the user
// lands on the dashboard, or wherever the redirect parameter pointed before
// the sign-in round trip.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())

	emailAddr := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if emailAddr == "" || password == "" {
		h.shell.SignInPage(w, r)
		return
	}

	user, err := h.users.VerifyPassword(emailAddr, password)
	if err != nil {
		h.logger.Error("verify password", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		// Wrong email and wrong password render the same message.
		h.shell.renderAuthError(w, r, "sign_in.html", i18n.T(locale, "Login", "invalid_credentials"))
		return
	}

	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	auth.SetSessionCookie(w, r, sess.Token, sess.ExpiresAt)

	if membership, err := h.teams.GetMembership(user.ID); err == nil && membership != nil {
		if err := h.activity.Log(membership.TeamID, user.ID, model.ActionSignIn, middleware.RealIP(r)); err != nil {
			h.logger.Warn("log activity", "error", err)
		}
	}

	http.Redirect(w, r, h.afterAuthTarget(r, locale), http.StatusSeeOther)
}

// SignUp creates an account. With an invitation token the new user joins the
// inviting team in the invited role; otherwise they found a new team and
// become its owner.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())

	emailAddr := strings.TrimSpace(r.FormValue("email"))
	name := strings.TrimSpace(r.FormValue("name"))
	password := r.FormValue("password")
	teamName := strings.TrimSpace(r.FormValue("team_name"))
	inviteToken := r.FormValue("invite")

	if emailAddr == "" || password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	if len(password) < 8 {
		h.shell.renderAuthError(w, r, "sign_up.html", i18n.T(locale, "Login", "password_too_short"))
		return
	}

	existing, err := h.users.GetByEmail(emailAddr)
	if err != nil {
		h.logger.Error("sign up lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		h.shell.renderAuthError(w, r, "sign_up.html", i18n.T(locale, "Login", "email_taken"))
		return
	}

	var claims *invite.Claims
	if inviteToken != "" {
		claims, err = h.signer.Verify(inviteToken)
		if err != nil {
			h.logger.Warn("invalid invite token", "error", err)
			h.shell.renderAuthError(w, r, "sign_up.html", i18n.T(locale, "Login", "invite_invalid"))
			return
		}
		if !strings.EqualFold(claims.Email, emailAddr) {
			h.shell.renderAuthError(w, r, "sign_up.html", i18n.T(locale, "Login", "invite_invalid"))
			return
		}
		inv, err := h.invitations.GetByID(claims.InvitationID)
		if err != nil || inv == nil || inv.Status != model.InvitationPending {
			h.shell.renderAuthError(w, r, "sign_up.html", i18n.T(locale, "Login", "invite_invalid"))
			return
		}
	}

	user, err := h.users.Create(emailAddr, name, password)
	if err != nil {
		h.logger.Error("create user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	var teamID int64
	if claims != nil {
		if _, err := h.teams.AddMember(claims.TeamID, user.ID, claims.Role); err != nil {
			h.logger.Error("add invited member", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if err := h.invitations.MarkAccepted(claims.InvitationID); err != nil {
			h.logger.Warn("mark invitation accepted", "error", err)
		}
		teamID = claims.TeamID
		if err := h.activity.Log(teamID, user.ID, model.ActionAcceptInvitation, middleware.RealIP(r)); err != nil {
			h.logger.Warn("log activity", "error", err)
		}
	} else {
		if teamName == "" {
			teamName = emailAddr + "'s team"
		}
		team, err := h.teams.Create(teamName)
		if err != nil {
			h.logger.Error("create team", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if _, err := h.teams.AddMember(team.ID, user.ID, model.RoleOwner); err != nil {
			h.logger.Error("add owner", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		teamID = team.ID
	}

	if err := h.activity.Log(teamID, user.ID, model.ActionSignUp, middleware.RealIP(r)); err != nil {
		h.logger.Warn("log activity", "error", err)
	}

	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	auth.SetSessionCookie(w, r, sess.Token, sess.ExpiresAt)

	http.Redirect(w, r, h.afterAuthTarget(r, locale), http.StatusSeeOther)
}

// SignOut deletes the session, clears the cookie, and drops both hydration
// keys from the client cache before redirecting, so no stale identity
// survives into the next page.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())

	if identity, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessions.Delete(identity.SessionID); err != nil {
			h.logger.Warn("delete session", "error", err)
		}
		if identity.TeamID != 0 {
			if err := h.activity.Log(identity.TeamID, identity.UserID, model.ActionSignOut, middleware.RealIP(r)); err != nil {
				h.logger.Warn("log activity", "error", err)
			}
		}
	}

	// The client-mode cache is the in-process model of the browser cache;
	// both hydration keys must be gone before the redirect lands. Browsers
	// drop their own copies when the cleared cookie ends their session.
	cache := hydrate.New(hydrate.ModeClient)
	cache.Invalidate(hydrate.KeyUser)
	cache.Invalidate(hydrate.KeyTeam)

	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/"+locale+"/sign-in", http.StatusSeeOther)
}

// afterAuthTarget picks the post-auth destination: a same-site redirect
// parameter when present, else the locale's dashboard.
func (h *AuthHandler) afterAuthTarget(r *http.Request, locale string) string {
	if target := r.FormValue("redirect"); target != "" && strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return target
	}
	return "/" + locale + "/dashboard"
}
