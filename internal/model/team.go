package model

import "time"

// Subscription statuses mirrored from Stripe webhook payloads. "none" means
// the team has never checked out.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionCanceled = "canceled"
	SubscriptionNone     = "none"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type Team struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	PlanName             *string   `json:"plan_name"`
	SubscriptionStatus   string    `json:"subscription_status"`
	StripeCustomerID     *string   `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string   `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type TeamMember struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberWithUser is the read model for the members table on the dashboard.
type MemberWithUser struct {
	TeamMember
	User User `json:"user"`
}

// TeamWithMembers is what /api/team serves and what the prefetcher caches.
type TeamWithMembers struct {
	Team
	Members []MemberWithUser `json:"members"`
}
