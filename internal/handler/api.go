package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/seedlinghq/seedling/internal/auth"
	"github.com/seedlinghq/seedling/internal/store"
)

// APIHandler serves the JSON endpoints the client cache fetches from. The
// user and team endpoints return null, not an error, for a signed-out
// caller: "no data" is a valid cache value, a 401 would poison the fetch.
type APIHandler struct {
	users    *store.UserStore
	teams    *store.TeamStore
	activity *store.ActivityStore
	logger   *slog.Logger
}

func NewAPIHandler(us *store.UserStore, ts *store.TeamStore, as *store.ActivityStore, logger *slog.Logger) *APIHandler {
	return &APIHandler{users: us, teams: ts, activity: as, logger: logger}
}

// User serves the current user's profile, or null when signed out.
func (h *APIHandler) User(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, nil)
		return
	}

	user, err := h.users.GetByID(identity.UserID)
	if err != nil {
		h.logger.Error("get user", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, user)
}

// Team serves the current user's team with its member list, or null when the
// caller is signed out or teamless.
func (h *APIHandler) Team(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok || identity.TeamID == 0 {
		writeJSON(w, nil)
		return
	}

	team, err := h.teams.GetWithMembers(identity.TeamID)
	if err != nil {
		h.logger.Error("get team", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, team)
}

// Activity serves the team's ten most recent activity entries.
func (h *APIHandler) Activity(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	if identity.TeamID == 0 {
		writeJSON(w, []struct{}{})
		return
	}

	entries, err := h.activity.ListRecent(identity.TeamID, 10)
	if err != nil {
		h.logger.Error("list activity", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
