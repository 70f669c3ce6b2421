package store

import (
	"database/sql"
	"fmt"

	"github.com/seedlinghq/seedling/internal/model"
)

type TeamStore struct {
	db *sql.DB
}

func NewTeamStore(db *sql.DB) *TeamStore {
	return &TeamStore{db: db}
}

func scanTeam(scanner interface{ Scan(...any) error }) (*model.Team, error) {
	var t model.Team
	var plan, custID, subID sql.NullString
	err := scanner.Scan(&t.ID, &t.Name, &plan, &t.SubscriptionStatus, &custID, &subID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if plan.Valid {
		t.PlanName = &plan.String
	}
	if custID.Valid {
		t.StripeCustomerID = &custID.String
	}
	if subID.Valid {
		t.StripeSubscriptionID = &subID.String
	}
	return &t, nil
}

func scanTeamMember(scanner interface{ Scan(...any) error }) (*model.TeamMember, error) {
	var m model.TeamMember
	err := scanner.Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const teamCols = `id, name, plan_name, subscription_status, stripe_customer_id, stripe_subscription_id, created_at, updated_at`
const teamMemberCols = `id, team_id, user_id, role, created_at, updated_at`

func (s *TeamStore) Create(name string) (*model.Team, error) {
	result, err := s.db.Exec(`INSERT INTO teams (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TeamStore) GetByID(id int64) (*model.Team, error) {
	row := s.db.QueryRow(`SELECT `+teamCols+` FROM teams WHERE id = ?`, id)
	t, err := scanTeam(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

func (s *TeamStore) GetByStripeCustomerID(customerID string) (*model.Team, error) {
	row := s.db.QueryRow(`SELECT `+teamCols+` FROM teams WHERE stripe_customer_id = ?`, customerID)
	t, err := scanTeam(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team by customer: %w", err)
	}
	return t, nil
}

func (s *TeamStore) UpdateStripeCustomerID(id int64, customerID string) error {
	_, err := s.db.Exec(
		`UPDATE teams SET stripe_customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		customerID, id,
	)
	if err != nil {
		return fmt.Errorf("update stripe customer id: %w", err)
	}
	return nil
}

// UpdateSubscription syncs plan and status from a Stripe subscription event.
// A nil subscriptionID clears the subscription (plan canceled).
func (s *TeamStore) UpdateSubscription(id int64, subscriptionID, planName *string, status string) error {
	_, err := s.db.Exec(
		`UPDATE teams SET stripe_subscription_id = ?, plan_name = ?, subscription_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		subscriptionID, planName, status, id,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

func (s *TeamStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

func (s *TeamStore) AddMember(teamID, userID int64, role string) (*model.TeamMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO team_members (team_id, user_id, role) VALUES (?, ?, ?)`,
		teamID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+teamMemberCols+` FROM team_members WHERE id = ?`, id)
	return scanTeamMember(row)
}

func (s *TeamStore) RemoveMember(teamID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM team_members WHERE team_id = ? AND user_id = ?`,
		teamID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *TeamStore) GetMember(teamID, userID int64) (*model.TeamMember, error) {
	row := s.db.QueryRow(
		`SELECT `+teamMemberCols+` FROM team_members WHERE team_id = ? AND user_id = ?`,
		teamID, userID,
	)
	m, err := scanTeamMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// GetMembership returns the user's membership, or nil when the user belongs
// to no team. A user has at most one active membership.
func (s *TeamStore) GetMembership(userID int64) (*model.TeamMember, error) {
	row := s.db.QueryRow(
		`SELECT `+teamMemberCols+` FROM team_members WHERE user_id = ? ORDER BY created_at ASC LIMIT 1`,
		userID,
	)
	m, err := scanTeamMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (s *TeamStore) UpdateMemberRole(teamID, userID int64, role string) (*model.TeamMember, error) {
	_, err := s.db.Exec(
		`UPDATE team_members SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE team_id = ? AND user_id = ?`,
		role, teamID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	return s.GetMember(teamID, userID)
}

// CountOwners returns the number of owner-role members of a team. Used to
// keep a team from losing its last owner.
func (s *TeamStore) CountOwners(teamID int64) (int, error) {
	var n int
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND role = ?`,
		teamID, model.RoleOwner,
	)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return n, nil
}

// GetWithMembers returns the team plus every member joined with its user
// profile, the read model served at /api/team.
func (s *TeamStore) GetWithMembers(teamID int64) (*model.TeamWithMembers, error) {
	team, err := s.GetByID(teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.created_at, tm.updated_at,
		        u.id, u.email, u.name, u.created_at, u.updated_at
		 FROM team_members tm
		 JOIN users u ON u.id = tm.user_id
		 WHERE tm.team_id = ?
		 ORDER BY tm.created_at ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	result := &model.TeamWithMembers{Team: *team}
	for rows.Next() {
		var mw model.MemberWithUser
		err := rows.Scan(
			&mw.ID, &mw.TeamID, &mw.UserID, &mw.Role, &mw.CreatedAt, &mw.UpdatedAt,
			&mw.User.ID, &mw.User.Email, &mw.User.Name, &mw.User.CreatedAt, &mw.User.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		result.Members = append(result.Members, mw)
	}
	return result, rows.Err()
}

// GetForUser resolves the user's team-with-members, or nil when the user has
// no membership.
func (s *TeamStore) GetForUser(userID int64) (*model.TeamWithMembers, error) {
	membership, err := s.GetMembership(userID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, nil
	}
	return s.GetWithMembers(membership.TeamID)
}
