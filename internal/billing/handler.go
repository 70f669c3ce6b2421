package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/seedlinghq/seedling/internal/auth"
	"github.com/seedlinghq/seedling/internal/i18n"
	"github.com/seedlinghq/seedling/internal/model"
	"github.com/seedlinghq/seedling/internal/store"
)

type Handler struct {
	client   *Client
	teams    *store.TeamStore
	users    *store.UserStore
	activity *store.ActivityStore
	logger   *slog.Logger
}

func NewHandler(client *Client, teams *store.TeamStore, users *store.UserStore, activity *store.ActivityStore, logger *slog.Logger) *Handler {
	return &Handler{
		client:   client,
		teams:    teams,
		users:    users,
		activity: activity,
		logger:   logger,
	}
}

// CreateCheckout creates a Stripe checkout session for the caller's team and
// returns its URL.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok || identity.TeamID == 0 {
		http.Error(w, "no team", http.StatusBadRequest)
		return
	}

	var req struct {
		Interval string `json:"interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Interval == "" {
		req.Interval = "monthly"
	}

	team, err := h.teams.GetByID(identity.TeamID)
	if err != nil || team == nil {
		http.Error(w, "team not found", http.StatusNotFound)
		return
	}

	customerID := ""
	if team.StripeCustomerID != nil {
		customerID = *team.StripeCustomerID
	}
	if customerID == "" {
		user, err := h.users.GetByID(identity.UserID)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		customerID, err = h.client.CreateCustomer(user.Email, team.Name)
		if err != nil {
			h.logger.Error("create customer", "error", err)
			http.Error(w, "failed to create customer", http.StatusInternalServerError)
			return
		}
		if err := h.teams.UpdateStripeCustomerID(team.ID, customerID); err != nil {
			h.logger.Error("save customer id", "error", err)
		}
	}

	priceID := h.client.PriceIDForInterval(req.Interval)
	url, err := h.client.CreateCheckoutSession(customerID, priceID, identityRef(identity))
	if err != nil {
		h.logger.Error("create checkout session", "error", err)
		http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		return
	}

	if err := h.activity.Log(identity.TeamID, identity.UserID, model.ActionCheckoutStarted, ""); err != nil {
		h.logger.Warn("log activity", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

// CheckoutSuccess is the redirect target after a completed checkout. It
// pulls the session, syncs the team's subscription, and sends the user to
// the locale-scoped dashboard.
func (h *Handler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	// Stripe redirects here outside the gatekeeper, so the locale comes
	// from the request, not the context.
	locale := i18n.FromRequest(r)
	dashboard := "/" + locale + "/dashboard"

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Redirect(w, r, dashboard, http.StatusSeeOther)
		return
	}

	sess, err := h.client.GetCheckoutSession(sessionID)
	if err != nil {
		h.logger.Error("retrieve checkout session", "error", err)
		http.Redirect(w, r, dashboard, http.StatusSeeOther)
		return
	}
	if sess.Customer == nil || sess.Subscription == nil {
		http.Redirect(w, r, dashboard, http.StatusSeeOther)
		return
	}

	team, err := h.teams.GetByStripeCustomerID(sess.Customer.ID)
	if err != nil || team == nil {
		h.logger.Error("team for checkout customer not found", "customer", sess.Customer.ID, "error", err)
		http.Redirect(w, r, dashboard, http.StatusSeeOther)
		return
	}

	sub := sess.Subscription
	if err := h.teams.UpdateSubscription(team.ID, &sub.ID, PlanName(sub), PlanStatus(sub.Status)); err != nil {
		h.logger.Error("sync subscription after checkout", "error", err)
	}

	http.Redirect(w, r, dashboard, http.StatusSeeOther)
}

// CreatePortal creates a billing portal session for the caller's team.
func (h *Handler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok || identity.TeamID == 0 {
		http.Error(w, "no team", http.StatusBadRequest)
		return
	}

	team, err := h.teams.GetByID(identity.TeamID)
	if err != nil || team == nil {
		http.Error(w, "team not found", http.StatusNotFound)
		return
	}
	if team.StripeCustomerID == nil {
		http.Error(w, "no billing account", http.StatusBadRequest)
		return
	}

	returnURL := r.Header.Get("Referer")
	if returnURL == "" {
		returnURL = "/" + i18n.FromRequest(r) + "/dashboard"
	}

	url, err := h.client.CreateBillingPortalSession(*team.StripeCustomerID, returnURL)
	if err != nil {
		h.logger.Error("create portal session", "error", err)
		http.Error(w, "failed to create portal session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

// Webhook handles Stripe webhook events, syncing subscription changes onto
// the owning team.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.client.ConstructWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "customer.subscription.updated":
		h.handleSubscriptionChange(event)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	default:
		h.logger.Debug("unhandled webhook event", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleSubscriptionChange(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("unmarshal subscription", "error", err)
		return
	}
	if sub.Customer == nil {
		h.logger.Error("subscription event missing customer")
		return
	}

	team, err := h.teams.GetByStripeCustomerID(sub.Customer.ID)
	if err != nil || team == nil {
		h.logger.Error("team for subscription not found", "customer", sub.Customer.ID, "error", err)
		return
	}

	if err := h.teams.UpdateSubscription(team.ID, &sub.ID, PlanName(&sub), PlanStatus(sub.Status)); err != nil {
		h.logger.Error("update subscription", "error", err)
	}
}

func (h *Handler) handleSubscriptionDeleted(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("unmarshal subscription", "error", err)
		return
	}
	if sub.Customer == nil {
		return
	}

	team, err := h.teams.GetByStripeCustomerID(sub.Customer.ID)
	if err != nil || team == nil {
		h.logger.Error("team for subscription not found", "customer", sub.Customer.ID, "error", err)
		return
	}

	if err := h.teams.UpdateSubscription(team.ID, nil, nil, model.SubscriptionCanceled); err != nil {
		h.logger.Error("clear subscription", "error", err)
	}
}

func identityRef(id auth.Identity) string {
	return "user-" + strconv.FormatInt(id.UserID, 10)
}
