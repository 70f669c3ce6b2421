package store

import (
	"database/sql"
	"fmt"

	"github.com/seedlinghq/seedling/internal/model"
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Log appends one entry to the team's activity log. A zero teamID is a no-op
// so callers can log unconditionally for users without a team.
func (s *ActivityStore) Log(teamID, actorUserID int64, action, ipAddress string) error {
	if teamID == 0 {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO activity_logs (team_id, actor_user_id, action, ip_address) VALUES (?, ?, ?, ?)`,
		teamID, actorUserID, action, ipAddress,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries for a team, joined with the actor's
// name and email, newest first.
func (s *ActivityStore) ListRecent(teamID int64, limit int) ([]model.ActivityEntry, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.team_id, a.actor_user_id, a.action, a.ip_address, a.created_at,
		        u.name, u.email
		 FROM activity_logs a
		 JOIN users u ON u.id = a.actor_user_id
		 WHERE a.team_id = ?
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ?`,
		teamID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		err := rows.Scan(
			&e.ID, &e.TeamID, &e.ActorUserID, &e.Action, &e.IPAddress, &e.CreatedAt,
			&e.ActorName, &e.ActorEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
