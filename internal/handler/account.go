package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/seedlinghq/seedling/internal/auth"
	"github.com/seedlinghq/seedling/internal/hydrate"
	"github.com/seedlinghq/seedling/internal/i18n"
	"github.com/seedlinghq/seedling/internal/middleware"
	"github.com/seedlinghq/seedling/internal/model"
	"github.com/seedlinghq/seedling/internal/store"
	"github.com/seedlinghq/seedling/internal/websocket"
)

type AccountHandler struct {
	users    *store.UserStore
	teams    *store.TeamStore
	sessions *store.SessionStore
	activity *store.ActivityStore
	hub      teamBroadcaster
	logger   *slog.Logger
}

func NewAccountHandler(
	us *store.UserStore,
	ts *store.TeamStore,
	ss *store.SessionStore,
	as *store.ActivityStore,
	hub teamBroadcaster,
	logger *slog.Logger,
) *AccountHandler {
	return &AccountHandler{
		users:    us,
		teams:    ts,
		sessions: ss,
		activity: as,
		hub:      hub,
		logger:   logger,
	}
}

// Update changes the caller's name and email.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	emailAddr := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	name := strings.TrimSpace(r.FormValue("name"))
	if emailAddr == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	if existing, err := h.users.GetByEmail(emailAddr); err == nil && existing != nil && existing.ID != identity.UserID {
		http.Error(w, "Email already in use", http.StatusConflict)
		return
	}

	if _, err := h.users.Update(identity.UserID, emailAddr, name); err != nil {
		h.logger.Error("update account", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.activity.Log(identity.TeamID, identity.UserID, model.ActionUpdateAccount, middleware.RealIP(r)); err != nil {
		h.logger.Warn("log activity", "error", err)
	}

	// The edited profile shows up in the team's member list too. The
	// client-mode invalidate keeps the in-process model of the browser
	// cache honest; real browsers hear it over the socket.
	if identity.TeamID != 0 {
		h.hub.BroadcastTeam(identity.TeamID, websocket.Invalidation(hydrate.KeyTeam))
	}
	cache := hydrate.New(hydrate.ModeClient)
	cache.Invalidate(hydrate.KeyUser)

	w.WriteHeader(http.StatusNoContent)
}

// UpdatePassword changes the caller's password after verifying the current
// one. All other sessions are revoked.
func (h *AccountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	if len(next) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByID(identity.UserID)
	if err != nil || user == nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	verified, err := h.users.VerifyPassword(user.Email, current)
	if err != nil {
		h.logger.Error("verify password", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if verified == nil {
		http.Error(w, "Current password is incorrect", http.StatusBadRequest)
		return
	}

	if err := h.users.UpdatePassword(identity.UserID, next); err != nil {
		h.logger.Error("update password", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.DeleteByUserID(identity.UserID); err != nil {
		h.logger.Warn("revoke sessions", "error", err)
	}

	if err := h.activity.Log(identity.TeamID, identity.UserID, model.ActionUpdatePassword, middleware.RealIP(r)); err != nil {
		h.logger.Warn("log activity", "error", err)
	}

	// The current session was revoked with the rest; send the user back
	// through sign-in.
	auth.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes the caller's account. A sole owner of a team with other
// members must hand off ownership first.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	// This route bypasses the gatekeeper, so the locale comes from the
	// request itself, not the context.
	locale := i18n.FromRequest(r)

	user, err := h.users.GetByID(identity.UserID)
	if err != nil || user == nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	verified, err := h.users.VerifyPassword(user.Email, r.FormValue("password"))
	if err != nil {
		h.logger.Error("verify password", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if verified == nil {
		http.Error(w, "Password is incorrect", http.StatusBadRequest)
		return
	}

	if identity.TeamID != 0 {
		team, err := h.teams.GetWithMembers(identity.TeamID)
		if err != nil {
			h.logger.Error("get team", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if team != nil {
			if identity.Role == model.RoleOwner && len(team.Members) > 1 {
				owners, err := h.teams.CountOwners(identity.TeamID)
				if err != nil {
					http.Error(w, "Internal error", http.StatusInternalServerError)
					return
				}
				if owners <= 1 {
					http.Error(w, "Transfer team ownership before deleting your account", http.StatusBadRequest)
					return
				}
			}

			if err := h.activity.Log(identity.TeamID, identity.UserID, model.ActionDeleteAccount, middleware.RealIP(r)); err != nil {
				h.logger.Warn("log activity", "error", err)
			}

			if err := h.teams.RemoveMember(identity.TeamID, identity.UserID); err != nil {
				h.logger.Error("remove membership", "error", err)
				http.Error(w, "Internal error", http.StatusInternalServerError)
				return
			}
			if len(team.Members) == 1 {
				// Leaving an empty team behind just strands a row.
				if err := h.teams.Delete(identity.TeamID); err != nil {
					h.logger.Warn("delete empty team", "error", err)
				}
			} else {
				h.hub.BroadcastTeam(identity.TeamID, websocket.Invalidation(hydrate.KeyTeam))
			}
		}
	}

	if err := h.sessions.DeleteByUserID(identity.UserID); err != nil {
		h.logger.Warn("delete sessions", "error", err)
	}
	if err := h.users.Delete(identity.UserID); err != nil {
		h.logger.Error("delete user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	// Both keys leave the in-process client cache model with the account.
	cache := hydrate.New(hydrate.ModeClient)
	cache.Invalidate(hydrate.KeyUser)
	cache.Invalidate(hydrate.KeyTeam)

	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/"+locale+"/sign-in", http.StatusSeeOther)
}
