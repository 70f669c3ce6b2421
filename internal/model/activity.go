package model

import "time"

// Activity actions recorded in the per-team log.
const (
	ActionSignUp             = "sign_up"
	ActionSignIn             = "sign_in"
	ActionSignOut            = "sign_out"
	ActionUpdateAccount      = "update_account"
	ActionUpdatePassword     = "update_password"
	ActionDeleteAccount      = "delete_account"
	ActionInviteTeamMember   = "invite_team_member"
	ActionAcceptInvitation   = "accept_invitation"
	ActionRemoveTeamMember   = "remove_team_member"
	ActionUpdateMemberRole   = "update_member_role"
	ActionCheckoutStarted    = "checkout_started"
	ActionSubscriptionChange = "subscription_change"
)

type ActivityLog struct {
	ID          int64     `json:"id"`
	TeamID      int64     `json:"team_id"`
	ActorUserID int64     `json:"actor_user_id"`
	Action      string    `json:"action"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActivityEntry joins the actor's display fields for the activity feed.
type ActivityEntry struct {
	ActivityLog
	ActorName  string `json:"actor_name"`
	ActorEmail string `json:"actor_email"`
}
