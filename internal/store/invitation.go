package store

import (
	"database/sql"
	"fmt"

	"github.com/seedlinghq/seedling/internal/model"
)

type InvitationStore struct {
	db *sql.DB
}

func NewInvitationStore(db *sql.DB) *InvitationStore {
	return &InvitationStore{db: db}
}

func scanInvitation(scanner interface{ Scan(...any) error }) (*model.Invitation, error) {
	var inv model.Invitation
	err := scanner.Scan(
		&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.InvitedBy,
		&inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

const invitationCols = `id, team_id, email, role, invited_by, status, created_at, updated_at`

func (s *InvitationStore) Create(teamID int64, email, role string, invitedBy int64) (*model.Invitation, error) {
	result, err := s.db.Exec(
		`INSERT INTO invitations (team_id, email, role, invited_by) VALUES (?, ?, ?, ?)`,
		teamID, email, role, invitedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *InvitationStore) GetByID(id int64) (*model.Invitation, error) {
	row := s.db.QueryRow(`SELECT `+invitationCols+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// GetPending returns the pending invitation for a (team, email) pair, if any.
func (s *InvitationStore) GetPending(teamID int64, email string) (*model.Invitation, error) {
	row := s.db.QueryRow(
		`SELECT `+invitationCols+` FROM invitations WHERE team_id = ? AND email = ? AND status = ?`,
		teamID, email, model.InvitationPending,
	)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending invitation: %w", err)
	}
	return inv, nil
}

func (s *InvitationStore) MarkAccepted(id int64) error {
	_, err := s.db.Exec(
		`UPDATE invitations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.InvitationAccepted, id,
	)
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	return nil
}

func (s *InvitationStore) Revoke(id int64) error {
	_, err := s.db.Exec(
		`UPDATE invitations SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.InvitationRevoked, id,
	)
	if err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}
	return nil
}
