package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/satriajat/helpdesk-management/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetPasswordForEmail(email string) (string, string, error) {
	var passwordHash string
	var userID string
	query := `SELECT id, password_hash FROM users WHERE email = ? AND is_active = true`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if err == sql.ErrNoRows {
			return "", "", fmt.Errorf("user not found")
		}
		return "", "", err
	}
	return passwordHash, userID, nil
}

func (r *Repository) GetActor(userID int64) (*auth.Actor, error) {
	var actor auth.Actor
	var permissions sql.NullString
	var roleName sql.NullString

	query := `SELECT u.id, u.email, u.name, u.org_unit_id, u.scope_level, r.name, r.permissions
	          FROM users u
	          LEFT JOIN roles r ON r.id = u.role_id
	          WHERE u.id = ? AND u.is_active = true`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&actor.ID, &actor.Email, &actor.Name, &actor.OrgUnitID,
		&actor.ScopeLevel, &roleName, &permissions); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}

	actor.RoleName = roleName.String
	if permissions.Valid && permissions.String != "" {
		for _, p := range strings.Split(permissions.String, ",") {
			if p = strings.TrimSpace(p); p != "" {
				actor.Permissions = append(actor.Permissions, p)
			}
		}
	}

	teamQuery := `SELECT team_id FROM team_members WHERE user_id = ? ORDER BY team_id`
	rows, err := r.db.Raw(teamQuery, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var teamID int64
		if err := rows.Scan(&teamID); err != nil {
			return nil, err
		}
		actor.TeamIDs = append(actor.TeamIDs, teamID)
	}

	return &actor, nil
}
