package team

import "time"

// Team is an agent group tickets get routed to. OrgUnitID anchors the team
// in the organizational tree when the team serves a single unit.
type Team struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	OrgUnitID   *int64    `gorm:"column:org_unit_id" json:"org_unit_id"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Team) TableName() string {
	return "teams"
}

type Member struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID     int64     `gorm:"column:team_id;not null;index" json:"team_id"`
	UserID     int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	RoleInTeam string    `gorm:"column:role_in_team" json:"role_in_team"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Member) TableName() string {
	return "team_members"
}

// Directory answers membership questions for the access guard and the
// assignment rules.
type Directory interface {
	TeamIDsForUser(userID int64) ([]int64, error)
	IsMember(teamID, userID int64) (bool, error)
	UserExists(userID int64) (bool, error)
	GetByID(id int64) (*Team, error)
}
