package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/satriajat/helpdesk-management/internal/orgunit"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateStub(unit *orgunit.OrgUnit) error {
	return r.db.Create(unit).Error
}

func (r *Repository) SavePath(id int64, path string, depth int) error {
	return r.db.Model(&orgunit.OrgUnit{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"path": path, "depth": depth}).Error
}

func (r *Repository) GetByID(id int64) (*orgunit.OrgUnit, error) {
	var unit orgunit.OrgUnit
	err := r.db.First(&unit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *Repository) GetByIDs(ids []int64) ([]*orgunit.OrgUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var units []*orgunit.OrgUnit
	if err := r.db.Where("id IN ?", ids).Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (r *Repository) DescendantsOf(pathPrefix string) ([]*orgunit.OrgUnit, error) {
	var units []*orgunit.OrgUnit
	err := r.db.
		Where("path = ? OR path LIKE ?", pathPrefix, pathPrefix+"/%").
		Order("path").
		Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}
