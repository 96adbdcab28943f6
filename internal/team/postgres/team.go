package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/satriajat/helpdesk-management/internal/team"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) TeamIDsForUser(userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&team.Member{}).
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) IsMember(teamID, userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&team.Member{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) UserExists(userID int64) (bool, error) {
	var count int64
	err := r.db.Table("users").Where("id = ?", userID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) GetByID(id int64) (*team.Team, error) {
	var t team.Team
	err := r.db.First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
