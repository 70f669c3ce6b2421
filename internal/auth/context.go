package auth

import "context"

type contextKey struct{}

// Identity is the resolved authenticated identity attached to a request.
// TeamID and Role are zero-valued when the user belongs to no team.
type Identity struct {
	UserID    int64
	SessionID int64
	TeamID    int64
	Role      string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func UserID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.UserID
}

func TeamID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.TeamID
}

// CanManageTeam reports whether the identity may invite, remove, or re-role
// team members.
func CanManageTeam(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == "owner" || id.Role == "admin"
}
