package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/seedlinghq/seedling/internal/auth"
)

// Handle upgrades the connection and runs it as a hub client for the
// caller's team. The route sits behind the session middleware, so a request
// without a team means the user simply has nothing to subscribe to.
func Handle(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		if !ok || identity.TeamID == 0 {
			http.Error(w, "no team", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, identity.TeamID)
		client.Run(r.Context())
	}
}
