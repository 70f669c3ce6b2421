package store

import (
	"testing"

	"github.com/seedlinghq/seedling/internal/database"
	"github.com/seedlinghq/seedling/internal/model"
)

func setupTeamTestDB(t *testing.T) (*TeamStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTeamStore(db), NewUserStore(db)
}

func TestTeamCreateAndGet(t *testing.T) {
	ts, _ := setupTeamTestDB(t)

	team, err := ts.Create("Acme")
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if team.Name != "Acme" {
		t.Errorf("name = %q", team.Name)
	}
	if team.SubscriptionStatus != model.SubscriptionNone {
		t.Errorf("subscription status = %q, want %q", team.SubscriptionStatus, model.SubscriptionNone)
	}

	got, err := ts.GetByID(team.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.Name != "Acme" {
		t.Fatalf("get = %+v", got)
	}
}

func TestTeamMembership(t *testing.T) {
	ts, us := setupTeamTestDB(t)

	team, _ := ts.Create("Acme")
	owner, _ := us.Create("owner@example.com", "Owner", "password123")
	member, _ := us.Create("member@example.com", "Member", "password123")

	if _, err := ts.AddMember(team.ID, owner.ID, model.RoleOwner); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if _, err := ts.AddMember(team.ID, member.ID, model.RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}

	m, err := ts.GetMember(team.ID, owner.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m == nil || m.Role != model.RoleOwner {
		t.Fatalf("owner membership = %+v", m)
	}

	ms, err := ts.GetMembership(member.ID)
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	if ms == nil || ms.TeamID != team.ID {
		t.Fatalf("membership = %+v", ms)
	}

	owners, err := ts.CountOwners(team.ID)
	if err != nil {
		t.Fatalf("count owners: %v", err)
	}
	if owners != 1 {
		t.Errorf("owners = %d, want 1", owners)
	}

	if err := ts.RemoveMember(team.ID, member.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if m, _ := ts.GetMember(team.ID, member.ID); m != nil {
		t.Errorf("membership survived removal: %+v", m)
	}
}

func TestTeamUpdateMemberRole(t *testing.T) {
	ts, us := setupTeamTestDB(t)

	team, _ := ts.Create("Acme")
	u, _ := us.Create("user@example.com", "User", "password123")
	ts.AddMember(team.ID, u.ID, model.RoleMember)

	updated, err := ts.UpdateMemberRole(team.ID, u.ID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", updated.Role)
	}
}

func TestTeamGetWithMembers(t *testing.T) {
	ts, us := setupTeamTestDB(t)

	team, _ := ts.Create("Acme")
	alice, _ := us.Create("alice@example.com", "Alice", "password123")
	bob, _ := us.Create("bob@example.com", "Bob", "password123")
	ts.AddMember(team.ID, alice.ID, model.RoleOwner)
	ts.AddMember(team.ID, bob.ID, model.RoleMember)

	got, err := ts.GetWithMembers(team.ID)
	if err != nil {
		t.Fatalf("get with members: %v", err)
	}
	if got == nil {
		t.Fatal("expected team")
	}
	if len(got.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(got.Members))
	}
	if got.Members[0].User.Email == "" {
		t.Error("member user fields not joined")
	}

	forUser, err := ts.GetForUser(bob.ID)
	if err != nil {
		t.Fatalf("get for user: %v", err)
	}
	if forUser == nil || forUser.ID != team.ID {
		t.Fatalf("get for user = %+v", forUser)
	}

	teamless, _ := us.Create("solo@example.com", "Solo", "password123")
	if got, err := ts.GetForUser(teamless.ID); err != nil || got != nil {
		t.Errorf("teamless user: got %+v, err %v", got, err)
	}
}

func TestTeamSubscriptionUpdate(t *testing.T) {
	ts, _ := setupTeamTestDB(t)

	team, _ := ts.Create("Acme")

	if err := ts.UpdateStripeCustomerID(team.ID, "cus_123"); err != nil {
		t.Fatalf("update customer id: %v", err)
	}

	byCustomer, err := ts.GetByStripeCustomerID("cus_123")
	if err != nil {
		t.Fatalf("get by customer: %v", err)
	}
	if byCustomer == nil || byCustomer.ID != team.ID {
		t.Fatalf("get by customer = %+v", byCustomer)
	}

	subID := "sub_456"
	plan := "Pro"
	if err := ts.UpdateSubscription(team.ID, &subID, &plan, model.SubscriptionActive); err != nil {
		t.Fatalf("update subscription: %v", err)
	}

	got, _ := ts.GetByID(team.ID)
	if got.SubscriptionStatus != model.SubscriptionActive {
		t.Errorf("status = %q", got.SubscriptionStatus)
	}
	if got.PlanName == nil || *got.PlanName != "Pro" {
		t.Errorf("plan = %v", got.PlanName)
	}

	// Cancellation clears the subscription fields.
	if err := ts.UpdateSubscription(team.ID, nil, nil, model.SubscriptionCanceled); err != nil {
		t.Fatalf("cancel subscription: %v", err)
	}
	got, _ = ts.GetByID(team.ID)
	if got.SubscriptionStatus != model.SubscriptionCanceled {
		t.Errorf("status after cancel = %q", got.SubscriptionStatus)
	}
	if got.StripeSubscriptionID != nil {
		t.Errorf("subscription id not cleared: %v", *got.StripeSubscriptionID)
	}
}
