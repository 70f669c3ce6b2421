package store

import (
	"testing"

	"github.com/seedlinghq/seedling/internal/database"
	"github.com/seedlinghq/seedling/internal/model"
)

func setupInvitationTestDB(t *testing.T) (*InvitationStore, *TeamStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewInvitationStore(db), NewTeamStore(db), NewUserStore(db)
}

func TestInvitationLifecycle(t *testing.T) {
	is, ts, us := setupInvitationTestDB(t)

	team, _ := ts.Create("Acme")
	owner, _ := us.Create("owner@example.com", "Owner", "password123")

	inv, err := is.Create(team.ID, "new@example.com", model.RoleMember, owner.ID)
	if err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	if inv.Status != model.InvitationPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}

	pending, err := is.GetPending(team.ID, "new@example.com")
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if pending == nil || pending.ID != inv.ID {
		t.Fatalf("get pending = %+v", pending)
	}

	if err := is.MarkAccepted(inv.ID); err != nil {
		t.Fatalf("mark accepted: %v", err)
	}
	got, _ := is.GetByID(inv.ID)
	if got.Status != model.InvitationAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}

	// An accepted invitation no longer shows as pending.
	if pending, _ := is.GetPending(team.ID, "new@example.com"); pending != nil {
		t.Errorf("accepted invitation still pending: %+v", pending)
	}
}

func TestInvitationRevoke(t *testing.T) {
	is, ts, us := setupInvitationTestDB(t)

	team, _ := ts.Create("Acme")
	owner, _ := us.Create("owner@example.com", "Owner", "password123")
	inv, _ := is.Create(team.ID, "revoked@example.com", model.RoleAdmin, owner.ID)

	if err := is.Revoke(inv.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, _ := is.GetByID(inv.ID)
	if got.Status != model.InvitationRevoked {
		t.Errorf("status = %q, want revoked", got.Status)
	}
	if pending, _ := is.GetPending(team.ID, "revoked@example.com"); pending != nil {
		t.Errorf("revoked invitation still pending: %+v", pending)
	}
}
