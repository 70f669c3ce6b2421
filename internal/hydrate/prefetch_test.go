package hydrate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/seedlinghq/seedling/internal/model"
)

func TestPrefetcherMemoizes(t *testing.T) {
	userCalls, teamCalls := 0, 0
	p := NewPrefetcher(
		func(ctx context.Context) (*model.User, error) {
			userCalls++
			return &model.User{ID: 1, Email: "alice@example.com"}, nil
		},
		func(ctx context.Context, userID int64) (*model.TeamWithMembers, error) {
			teamCalls++
			return &model.TeamWithMembers{Team: model.Team{ID: 7, Name: "Acme"}}, nil
		},
		slog.Default(),
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if u := p.User(ctx); u == nil || u.ID != 1 {
			t.Fatalf("User() = %+v", u)
		}
		if tm := p.Team(ctx); tm == nil || tm.ID != 7 {
			t.Fatalf("Team() = %+v", tm)
		}
	}
	if userCalls != 1 {
		t.Errorf("user fetched %d times, want 1", userCalls)
	}
	if teamCalls != 1 {
		t.Errorf("team fetched %d times, want 1", teamCalls)
	}
}

func TestPrefetcherTeamDependsOnUser(t *testing.T) {
	var gotUserID int64
	p := NewPrefetcher(
		func(ctx context.Context) (*model.User, error) {
			return &model.User{ID: 42}, nil
		},
		func(ctx context.Context, userID int64) (*model.TeamWithMembers, error) {
			gotUserID = userID
			return nil, nil
		},
		slog.Default(),
	)

	p.Team(context.Background())
	if gotUserID != 42 {
		t.Errorf("team fetch saw user id %d, want 42", gotUserID)
	}
}

func TestPrefetcherNoUserSkipsTeam(t *testing.T) {
	teamCalls := 0
	p := NewPrefetcher(
		func(ctx context.Context) (*model.User, error) { return nil, nil },
		func(ctx context.Context, userID int64) (*model.TeamWithMembers, error) {
			teamCalls++
			return nil, nil
		},
		slog.Default(),
	)

	if tm := p.Team(context.Background()); tm != nil {
		t.Errorf("Team() = %+v, want nil", tm)
	}
	if teamCalls != 0 {
		t.Errorf("team fetched %d times without a user, want 0", teamCalls)
	}
}

func TestPrefetcherDegradesIndependently(t *testing.T) {
	p := NewPrefetcher(
		func(ctx context.Context) (*model.User, error) {
			return &model.User{ID: 1, Email: "alice@example.com"}, nil
		},
		func(ctx context.Context, userID int64) (*model.TeamWithMembers, error) {
			return nil, errors.New("team lookup down")
		},
		slog.Default(),
	)

	ctx := context.Background()
	if u := p.User(ctx); u == nil {
		t.Fatal("user lost to team failure")
	}
	if tm := p.Team(ctx); tm != nil {
		t.Fatalf("Team() = %+v, want nil on failure", tm)
	}
}

func TestSnapshotAlwaysDefinesBothKeys(t *testing.T) {
	p := NewPrefetcher(
		func(ctx context.Context) (*model.User, error) { return nil, errors.New("down") },
		func(ctx context.Context, userID int64) (*model.TeamWithMembers, error) { return nil, nil },
		slog.Default(),
	)

	snap := p.Snapshot(context.Background())
	for _, key := range []string{KeyUser, KeyTeam} {
		raw, ok := snap[key]
		if !ok {
			t.Fatalf("snapshot missing %q", key)
		}
		if string(raw) != "null" {
			t.Errorf("snapshot[%q] = %s, want null", key, raw)
		}
	}
}

func TestSnapshotSerializesValues(t *testing.T) {
	p := NewPrefetcher(
		func(ctx context.Context) (*model.User, error) {
			return &model.User{ID: 1, Email: "alice@example.com"}, nil
		},
		func(ctx context.Context, userID int64) (*model.TeamWithMembers, error) {
			return &model.TeamWithMembers{Team: model.Team{ID: 7, Name: "Acme"}}, nil
		},
		slog.Default(),
	)

	snap := p.Snapshot(context.Background())

	var user model.User
	if err := json.Unmarshal(snap[KeyUser], &user); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}

	var team model.TeamWithMembers
	if err := json.Unmarshal(snap[KeyTeam], &team); err != nil {
		t.Fatalf("unmarshal team: %v", err)
	}
	if team.Name != "Acme" {
		t.Errorf("team = %+v", team)
	}
}
