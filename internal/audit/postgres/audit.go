package postgres

import (
	"gorm.io/gorm"

	"github.com/satriajat/helpdesk-management/internal/audit"
)

// Repository is append-only on purpose: no update or delete methods exist,
// and each append runs on its own session so a rolled-back business
// transaction never takes the denial trail down with it.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Append(entry *audit.Entry) error {
	return r.db.Session(&gorm.Session{NewDB: true}).Create(entry).Error
}

func (r *Repository) ListForEntity(entityType string, entityID int64, limit int) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	err := r.db.
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) ListRecent(limit int) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	err := r.db.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
