package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/seedlinghq/seedling/internal/auth"
	"github.com/seedlinghq/seedling/internal/email"
	"github.com/seedlinghq/seedling/internal/hydrate"
	"github.com/seedlinghq/seedling/internal/i18n"
	"github.com/seedlinghq/seedling/internal/invite"
	"github.com/seedlinghq/seedling/internal/middleware"
	"github.com/seedlinghq/seedling/internal/model"
	"github.com/seedlinghq/seedling/internal/store"
	"github.com/seedlinghq/seedling/internal/websocket"
)

// teamBroadcaster pushes invalidation messages to a team's connected
// dashboard clients.
type teamBroadcaster interface {
	BroadcastTeam(teamID int64, msg websocket.Message)
}

type TeamHandler struct {
	teams       *store.TeamStore
	users       *store.UserStore
	invitations *store.InvitationStore
	activity    *store.ActivityStore
	signer      *invite.Signer
	emailClient *email.Client
	hub         teamBroadcaster
	baseURL     string
	logger      *slog.Logger
}

func NewTeamHandler(
	ts *store.TeamStore,
	us *store.UserStore,
	is *store.InvitationStore,
	as *store.ActivityStore,
	signer *invite.Signer,
	ec *email.Client,
	hub teamBroadcaster,
	baseURL string,
	logger *slog.Logger,
) *TeamHandler {
	return &TeamHandler{
		teams:       ts,
		users:       us,
		invitations: is,
		activity:    as,
		signer:      signer,
		emailClient: ec,
		hub:         hub,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// Invite creates a pending invitation and emails a signed acceptance link.
func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	if !auth.CanManageTeam(r.Context()) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	emailAddr := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	role := r.FormValue("role")
	if emailAddr == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}
	if role != model.RoleAdmin && role != model.RoleMember {
		role = model.RoleMember
	}

	// An existing member or an open invitation makes a second invite a no-op
	// from the caller's perspective, reported as a conflict.
	if existing, err := h.users.GetByEmail(emailAddr); err == nil && existing != nil {
		if member, err := h.teams.GetMember(identity.TeamID, existing.ID); err == nil && member != nil {
			http.Error(w, "Already a team member", http.StatusConflict)
			return
		}
	}
	if pending, err := h.invitations.GetPending(identity.TeamID, emailAddr); err == nil && pending != nil {
		http.Error(w, "Invitation already pending", http.StatusConflict)
		return
	}

	team, err := h.teams.GetByID(identity.TeamID)
	if err != nil || team == nil {
		http.Error(w, "Team not found", http.StatusInternalServerError)
		return
	}

	inv, err := h.invitations.Create(identity.TeamID, emailAddr, role, identity.UserID)
	if err != nil {
		h.logger.Error("create invitation", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	token, err := h.signer.Sign(inv.ID, identity.TeamID, emailAddr, role)
	if err != nil {
		h.logger.Error("sign invite token", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	// The invite API sits outside the gatekeeper; the inviter's locale
	// comes off the request so the link speaks their language.
	locale := i18n.FromRequest(r)
	link := fmt.Sprintf("%s/%s/sign-up?invite=%s&email=%s",
		h.baseURL, locale, url.QueryEscape(token), url.QueryEscape(emailAddr))

	if err := h.emailClient.SendInvitation(r.Context(), emailAddr, team.Name, role, link); err != nil {
		h.logger.Error("send invitation email", "error", err)
		http.Error(w, "Failed to send invitation", http.StatusInternalServerError)
		return
	}

	if err := h.activity.Log(identity.TeamID, identity.UserID, model.ActionInviteTeamMember, middleware.RealIP(r)); err != nil {
		h.logger.Warn("log activity", "error", err)
	}

	// The pending invitation and the fresh activity entry belong to team
	// state; connected members refetch on the invalidation.
	h.hub.BroadcastTeam(identity.TeamID, websocket.Invalidation(hydrate.KeyTeam))

	fmt.Fprintf(w, "Invitation sent to %s", emailAddr)
}

// RemoveMember removes a user from the caller's team. The last owner cannot
// be removed; a team always keeps at least one.
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	if !auth.CanManageTeam(r.Context()) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	member, err := h.teams.GetMember(identity.TeamID, userID)
	if err != nil {
		h.logger.Error("get member", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if member == nil {
		http.Error(w, "Not a team member", http.StatusNotFound)
		return
	}

	if member.Role == model.RoleOwner {
		owners, err := h.teams.CountOwners(identity.TeamID)
		if err != nil {
			h.logger.Error("count owners", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if owners <= 1 {
			http.Error(w, "Cannot remove the last owner", http.StatusBadRequest)
			return
		}
	}

	if err := h.teams.RemoveMember(identity.TeamID, userID); err != nil {
		h.logger.Error("remove member", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.activity.Log(identity.TeamID, identity.UserID, model.ActionRemoveTeamMember, middleware.RealIP(r)); err != nil {
		h.logger.Warn("log activity", "error", err)
	}

	h.hub.BroadcastTeam(identity.TeamID, websocket.Invalidation(hydrate.KeyTeam))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateRole changes a member's role. Demoting the last owner is refused for
// the same reason removing them is.
func (h *TeamHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	if !auth.CanManageTeam(r.Context()) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	role := r.FormValue("role")
	if role != model.RoleOwner && role != model.RoleAdmin && role != model.RoleMember {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}

	member, err := h.teams.GetMember(identity.TeamID, userID)
	if err != nil {
		h.logger.Error("get member", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if member == nil {
		http.Error(w, "Not a team member", http.StatusNotFound)
		return
	}

	if member.Role == model.RoleOwner && role != model.RoleOwner {
		owners, err := h.teams.CountOwners(identity.TeamID)
		if err != nil {
			h.logger.Error("count owners", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if owners <= 1 {
			http.Error(w, "Cannot demote the last owner", http.StatusBadRequest)
			return
		}
	}

	if _, err := h.teams.UpdateMemberRole(identity.TeamID, userID, role); err != nil {
		h.logger.Error("update member role", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.activity.Log(identity.TeamID, identity.UserID, model.ActionUpdateMemberRole, middleware.RealIP(r)); err != nil {
		h.logger.Warn("log activity", "error", err)
	}

	h.hub.BroadcastTeam(identity.TeamID, websocket.Invalidation(hydrate.KeyTeam))
	w.WriteHeader(http.StatusNoContent)
}

// RevokeInvitation cancels a pending invitation so its emailed link stops
// working at acceptance time.
func (h *TeamHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	if !auth.CanManageTeam(r.Context()) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	invID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid invitation id", http.StatusBadRequest)
		return
	}

	inv, err := h.invitations.GetByID(invID)
	if err != nil {
		h.logger.Error("get invitation", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if inv == nil || inv.TeamID != identity.TeamID {
		http.Error(w, "Invitation not found", http.StatusNotFound)
		return
	}

	if err := h.invitations.Revoke(invID); err != nil {
		h.logger.Error("revoke invitation", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
