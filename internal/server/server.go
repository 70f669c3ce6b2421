package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/seedlinghq/seedling/internal/auth"
	"github.com/seedlinghq/seedling/internal/billing"
	"github.com/seedlinghq/seedling/internal/email"
	"github.com/seedlinghq/seedling/internal/handler"
	"github.com/seedlinghq/seedling/internal/invite"
	"github.com/seedlinghq/seedling/internal/logging"
	"github.com/seedlinghq/seedling/internal/middleware"
	"github.com/seedlinghq/seedling/internal/store"
	ws "github.com/seedlinghq/seedling/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	validator    *auth.Validator
	gatekeeper   *middleware.Gatekeeper
	shellH       *handler.ShellHandler
	authH        *handler.AuthHandler
	teamH        *handler.TeamHandler
	accountH     *handler.AccountHandler
	apiH         *handler.APIHandler
	billingH     *billing.Handler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(
	db *sql.DB,
	emailClient *email.Client,
	billingClient *billing.Client,
	signer *invite.Signer,
	baseURL string,
	logger *slog.Logger,
) *Server {
	hub := ws.NewHub(logging.Component(logger, "websocket"))

	userStore := store.NewUserStore(db)
	teamStore := store.NewTeamStore(db)
	sessionStore := store.NewSessionStore(db)
	invitationStore := store.NewInvitationStore(db)
	activityStore := store.NewActivityStore(db)

	validator := auth.NewValidator(sessionStore, teamStore, logging.Component(logger, "auth"))
	shellH := handler.NewShellHandler(userStore, teamStore, logging.Component(logger, "shell"))

	return &Server{
		db:         db,
		hub:        hub,
		validator:  validator,
		gatekeeper: middleware.NewGatekeeper(validator),
		shellH:     shellH,
		authH: handler.NewAuthHandler(
			userStore, teamStore, sessionStore, invitationStore, activityStore,
			signer, shellH, logging.Component(logger, "auth_handler")),
		teamH: handler.NewTeamHandler(
			teamStore, userStore, invitationStore, activityStore,
			signer, emailClient, hub, baseURL, logging.Component(logger, "team")),
		accountH: handler.NewAccountHandler(
			userStore, teamStore, sessionStore, activityStore, hub,
			logging.Component(logger, "account")),
		apiH: handler.NewAPIHandler(
			userStore, teamStore, activityStore, logging.Component(logger, "api")),
		billingH: billing.NewHandler(
			billingClient, teamStore, userStore, activityStore,
			logging.Component(logger, "billing")),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Router assembles the full middleware chain. The gatekeeper wraps the page
// mux; API and infrastructure routes bypass it and carry their own session
// middleware.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	s.registerPageRoutes(mux)
	s.registerAPIRoutes(mux)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	mux.HandleFunc("GET /health", s.healthHandler)

	chain := s.gatekeeper.Middleware(mux)
	return middleware.RequestLogger(logging.Component(s.logger, "http"))(chain)
}

// registerPageRoutes mounts the locale-prefixed page tree. The gatekeeper
// guarantees every request landing here carries a locale prefix.
func (s *Server) registerPageRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{locale}", s.shellH.Landing)
	mux.HandleFunc("GET /{locale}/{$}", s.shellH.Landing)
	mux.HandleFunc("GET /{locale}/pricing", s.shellH.Pricing)
	mux.HandleFunc("GET /{locale}/sign-in", s.shellH.SignInPage)
	mux.HandleFunc("GET /{locale}/sign-up", s.shellH.SignUpPage)
	mux.HandleFunc("GET /{locale}/dashboard", s.shellH.Dashboard)

	signInLimit := middleware.RateLimit(s.rateLimiter, "sign-in", middleware.LimitSignIn)
	signUpLimit := middleware.RateLimit(s.rateLimiter, "sign-up", middleware.LimitSignUp)
	mux.Handle("POST /{locale}/sign-in", signInLimit(http.HandlerFunc(s.authH.SignIn)))
	mux.Handle("POST /{locale}/sign-up", signUpLimit(http.HandlerFunc(s.authH.SignUp)))
	mux.HandleFunc("POST /{locale}/sign-out", s.authH.SignOut)
}

// registerAPIRoutes mounts the JSON and infrastructure endpoints. These skip
// the gatekeeper, so each group attaches its own session handling.
func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	attach := middleware.AttachSession(s.validator)
	require := middleware.RequireSession(s.validator)

	// Hydration endpoints answer null when signed out.
	mux.Handle("GET /api/user", attach(http.HandlerFunc(s.apiH.User)))
	mux.Handle("GET /api/team", attach(http.HandlerFunc(s.apiH.Team)))

	mux.Handle("GET /api/activity", require(http.HandlerFunc(s.apiH.Activity)))

	inviteLimit := middleware.RateLimit(s.rateLimiter, "invite", middleware.LimitInvite)
	mux.Handle("POST /api/team/invite", require(inviteLimit(http.HandlerFunc(s.teamH.Invite))))
	mux.Handle("DELETE /api/team/members/{id}", require(http.HandlerFunc(s.teamH.RemoveMember)))
	mux.Handle("PUT /api/team/members/{id}/role", require(http.HandlerFunc(s.teamH.UpdateRole)))
	mux.Handle("DELETE /api/team/invitations/{id}", require(http.HandlerFunc(s.teamH.RevokeInvitation)))

	mux.Handle("PUT /api/account", require(http.HandlerFunc(s.accountH.Update)))
	mux.Handle("PUT /api/account/password", require(http.HandlerFunc(s.accountH.UpdatePassword)))
	mux.Handle("POST /api/account/delete", require(http.HandlerFunc(s.accountH.Delete)))

	mux.Handle("POST /api/stripe/checkout", require(http.HandlerFunc(s.billingH.CreateCheckout)))
	mux.Handle("GET /api/stripe/checkout", attach(http.HandlerFunc(s.billingH.CheckoutSuccess)))
	mux.Handle("POST /api/stripe/portal", require(http.HandlerFunc(s.billingH.CreatePortal)))
	// Stripe authenticates webhooks by signature, not by session.
	mux.HandleFunc("POST /api/stripe/webhook", s.billingH.Webhook)

	mux.Handle("GET /ws", require(http.HandlerFunc(ws.Handle(s.hub, s.logger.With("component", "websocket")))))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
