package audit

import (
	"context"
	"time"
)

// Actions recorded in the ledger. Denials use ActionPermissionDenied with the
// entity type of the check that failed; successful mutations record their own
// action.
const (
	ActionPermissionDenied = "PERMISSION_DENIED"

	ActionTicketCreated       = "TICKET_CREATED"
	ActionTicketAssigned      = "TICKET_ASSIGNED"
	ActionTicketStatusChanged = "TICKET_STATUS_CHANGED"
	ActionTicketMessagePosted = "TICKET_MESSAGE_POSTED"
	ActionTicketExported      = "TICKET_EXPORTED"

	ActionAttachmentPresigned         = "TICKET_ATTACHMENT_PRESIGNED"
	ActionAttachmentDownloadPresigned = "TICKET_ATTACHMENT_DOWNLOAD_PRESIGNED"
	ActionAttachmentDownloadBlocked   = "ATTACHMENT_DOWNLOAD_BLOCKED"
	ActionAttachmentScanned           = "ATTACHMENT_SCANNED"
	ActionAttachmentRetentionExpired  = "ATTACHMENT_RETENTION_EXPIRED"

	ActionTicketClassified = "AI_TICKET_CLASSIFIED"
)

// Entity types. Denial entries tag the check that failed rather than the raw
// table name, so the ledger shows which gate turned the request away.
const (
	EntityTicket             = "ticket"
	EntityTicketConfidential = "ticket_confidential"
	EntityOrgUnitAccess      = "org_unit_access"
	EntityTicketAssign       = "ticket_assign"
	EntityTicketStatus       = "ticket_status"
	EntityTicketMessage      = "ticket_message"
	EntityTicketExport       = "ticket_export"
	EntityTicketAttachment   = "ticket_attachment"
	EntityAttachmentDownload = "ticket_attachment_download"
	EntityAttachment         = "attachment"
	EntityTicketClassify     = "ticket_classify"
)

// Entry is one immutable row of the ledger. Diff and Meta are stored as
// serialized JSON so the ledger schema never chases domain schema changes.
type Entry struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID    *int64    `gorm:"column:actor_id" json:"actor_id"`
	Action     string    `gorm:"column:action;not null" json:"action"`
	EntityType string    `gorm:"column:entity_type;not null" json:"entity_type"`
	EntityID   *int64    `gorm:"column:entity_id" json:"entity_id"`
	DiffJSON   string    `gorm:"column:diff_json" json:"diff_json"`
	MetaJSON   string    `gorm:"column:meta_json" json:"meta_json"`
	IP         string    `gorm:"column:ip" json:"ip"`
	UserAgent  string    `gorm:"column:user_agent" json:"user_agent"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Entry) TableName() string {
	return "audit_logs"
}

// Record is the write-side input. Request metadata (path, method, ip, agent)
// is filled from the context by the service.
type Record struct {
	ActorID    *int64
	Action     string
	EntityType string
	EntityID   *int64
	Diff       map[string]interface{}
	Meta       map[string]interface{}
}

// Recorder is the only write interface the rest of the system sees. There is
// deliberately no update or delete.
type Recorder interface {
	Append(ctx context.Context, rec Record) error
}

type Repository interface {
	Append(entry *Entry) error
	ListForEntity(entityType string, entityID int64, limit int) ([]*Entry, error)
	ListRecent(limit int) ([]*Entry, error)
}
