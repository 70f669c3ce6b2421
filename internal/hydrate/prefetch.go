package hydrate

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/seedlinghq/seedling/internal/model"
)

// UserFetch loads the current identity's profile; TeamFetch loads the
// team-with-members for a user id.
type (
	UserFetch func(ctx context.Context) (*model.User, error)
	TeamFetch func(ctx context.Context, userID int64) (*model.TeamWithMembers, error)
)

// Prefetcher loads the current user and team once per request, no matter how
// many render paths ask for them. Each side degrades independently: a failed
// user fetch yields no user (and skips the team lookup entirely); a failed
// team fetch yields no team without disturbing the user result.
type Prefetcher struct {
	fetchUser UserFetch
	fetchTeam TeamFetch
	logger    *slog.Logger

	userOnce sync.Once
	user     *model.User

	teamOnce sync.Once
	team     *model.TeamWithMembers
}

func NewPrefetcher(fetchUser UserFetch, fetchTeam TeamFetch, logger *slog.Logger) *Prefetcher {
	return &Prefetcher{fetchUser: fetchUser, fetchTeam: fetchTeam, logger: logger}
}

// User returns the current user, fetching at most once for the lifetime of
// the prefetcher. Fetch errors degrade to nil.
func (p *Prefetcher) User(ctx context.Context) *model.User {
	p.userOnce.Do(func() {
		u, err := p.fetchUser(ctx)
		if err != nil {
			p.logger.Warn("prefetch user failed", "error", err)
			return
		}
		p.user = u
	})
	return p.user
}

// Team returns the current user's team, fetching at most once. Without an
// identity there is no team lookup at all.
func (p *Prefetcher) Team(ctx context.Context) *model.TeamWithMembers {
	p.teamOnce.Do(func() {
		user := p.User(ctx)
		if user == nil {
			return
		}
		t, err := p.fetchTeam(ctx, user.ID)
		if err != nil {
			p.logger.Warn("prefetch team failed", "error", err)
			return
		}
		p.team = t
	})
	return p.team
}

// Snapshot runs both prefetches and serializes the results under the fixed
// transport keys. Both keys are always present; absent values encode as
// JSON null so the client cache is defined for every key it will read.
func (p *Prefetcher) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		KeyUser: mustJSON(p.User(ctx)),
		KeyTeam: mustJSON(p.Team(ctx)),
	}
	return snap
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable model type, which would
		// be a programming error.
		return json.RawMessage("null")
	}
	return raw
}
