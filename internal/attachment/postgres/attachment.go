package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/satriajat/helpdesk-management/internal/attachment"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(a *attachment.Attachment) error {
	return r.db.Create(a).Error
}

func (r *Repository) GetForTicket(ticketID, attachmentID int64) (*attachment.Attachment, error) {
	var a attachment.Attachment
	err := r.db.First(&a, "id = ? AND ticket_id = ?", attachmentID, ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) ActiveForTicket(ticketID int64) ([]*attachment.Attachment, error) {
	var rows []*attachment.Attachment
	err := r.db.
		Where("ticket_id = ? AND status = ?", ticketID, attachment.StatusActive).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListPending(limit int) ([]*attachment.Attachment, error) {
	var rows []*attachment.Attachment
	err := r.db.
		Where("scanned_status = ? AND status = ?", attachment.ScanPending, attachment.StatusActive).
		Order("created_at").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SetScanResultCAS only writes over PENDING, so a row is decided exactly
// once no matter how many workers race on it.
func (r *Repository) SetScanResultCAS(id int64, result string, at time.Time) (bool, error) {
	res := r.db.Model(&attachment.Attachment{}).
		Where("id = ? AND scanned_status = ?", id, attachment.ScanPending).
		Updates(map[string]interface{}{
			"scanned_status": result,
			"scanned_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) SetRetention(ticketID int64, days int, expiresAt time.Time) (int64, error) {
	res := r.db.Model(&attachment.Attachment{}).
		Where("ticket_id = ? AND status = ?", ticketID, attachment.StatusActive).
		Updates(map[string]interface{}{
			"retention_days": days,
			"expires_at":     expiresAt,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) ListExpired(now time.Time, limit int) ([]*attachment.Attachment, error) {
	var rows []*attachment.Attachment
	err := r.db.
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", attachment.StatusActive, now).
		Order("expires_at").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) MarkDeletedCAS(id int64) (bool, error) {
	res := r.db.Model(&attachment.Attachment{}).
		Where("id = ? AND status = ?", id, attachment.StatusActive).
		Update("status", attachment.StatusDeleted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) Reactivate(id int64) error {
	return r.db.Model(&attachment.Attachment{}).
		Where("id = ?", id).
		Update("status", attachment.StatusActive).Error
}
