package attachment

import (
	"context"
	"time"

	"github.com/satriajat/helpdesk-management/internal/guard"
)

// Scan states. PENDING rows are invisible to downloads; a claimed row never
// stays PENDING after the scanner touched it, even on I/O failure.
const (
	ScanPending  = "PENDING"
	ScanClean    = "CLEAN"
	ScanInfected = "INFECTED"
	ScanFailed   = "FAILED"
)

// Row states. Deletion is soft: the row survives as the audit anchor after
// the object is gone.
const (
	StatusActive  = "ACTIVE"
	StatusDeleted = "DELETED"
)

type Attachment struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID         int64      `gorm:"column:ticket_id;not null;index" json:"ticket_id"`
	UploadedBy       int64      `gorm:"column:uploaded_by;not null" json:"uploaded_by"`
	ObjectKey        string     `gorm:"column:object_key;not null;uniqueIndex" json:"object_key"`
	OriginalFilename string     `gorm:"column:original_filename;not null" json:"original_filename"`
	Mime             string     `gorm:"column:mime" json:"mime"`
	Size             int64      `gorm:"column:size" json:"size"`
	Checksum         string     `gorm:"column:checksum" json:"checksum"`
	ScannedStatus    string     `gorm:"column:scanned_status;not null;default:PENDING" json:"scanned_status"`
	ScannedAt        *time.Time `gorm:"column:scanned_at" json:"scanned_at"`
	SensitivityLevel string     `gorm:"column:sensitivity_level;not null;default:REGULAR" json:"sensitivity_level"`
	RetentionDays    *int       `gorm:"column:retention_days" json:"retention_days"`
	Status           string     `gorm:"column:status;not null;default:ACTIVE" json:"status"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	ExpiresAt        *time.Time `gorm:"column:expires_at" json:"expires_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}

type Repository interface {
	Create(a *Attachment) error
	// GetForTicket loads by both ids so an attachment id can never be used
	// against a foreign ticket.
	GetForTicket(ticketID, attachmentID int64) (*Attachment, error)
	ActiveForTicket(ticketID int64) ([]*Attachment, error)
	ListPending(limit int) ([]*Attachment, error)
	SetScanResultCAS(id int64, result string, at time.Time) (bool, error)
	SetRetention(ticketID int64, days int, expiresAt time.Time) (int64, error)
	ListExpired(now time.Time, limit int) ([]*Attachment, error)
	MarkDeletedCAS(id int64) (bool, error)
	Reactivate(id int64) error
}

// TicketSource supplies the guard-relevant slice of the owning ticket. The
// ticket package implements it; the indirection keeps the dependency one-way.
type TicketSource interface {
	TicketRef(ctx context.Context, id int64) (*guard.TicketRef, error)
}

// Scanner is the malware-scan collaborator. FAILED covers transport errors
// as well as scanner-side failures.
type Scanner interface {
	Scan(ctx context.Context, data []byte) (result string, signature string, err error)
}
