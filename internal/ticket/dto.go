package ticket

import (
	"strings"
	"time"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/redaction"
)

const maxTitleLength = 255

type CreateTicketDTO struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Priority         string `json:"priority"`
	SensitivityLevel string `json:"sensitivity_level"`
}

func (d *CreateTicketDTO) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return internal.NewValidationError("title is required", internal.ErrCodeInvalidTitle)
	}
	if len(d.Title) > maxTitleLength {
		return internal.NewValidationError("title too long", internal.ErrCodeInvalidTitle)
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if !ValidPriority(d.Priority) {
		return internal.NewValidationError("invalid priority: "+d.Priority, internal.ErrCodeInvalidPriority)
	}
	if d.SensitivityLevel == "" {
		d.SensitivityLevel = "REGULAR"
	}
	switch d.SensitivityLevel {
	case "REGULAR", "CONFIDENTIAL":
	default:
		return internal.NewValidationError("invalid sensitivity level: "+d.SensitivityLevel, internal.ErrCodeValidationFailed)
	}
	return nil
}

type AssignTicketDTO struct {
	AssigneeID *int64 `json:"assignee_id"`
	TeamID     *int64 `json:"team_id"`
}

type ChangeStatusDTO struct {
	Status string `json:"status"`
}

func (d *ChangeStatusDTO) Validate() error {
	d.Status = strings.ToUpper(strings.TrimSpace(d.Status))
	if !ValidStatus(d.Status) {
		return internal.NewValidationError("unknown status: "+d.Status, internal.ErrCodeInvalidTransition)
	}
	return nil
}

type PostMessageDTO struct {
	Body string `json:"body"`
	Type string `json:"type"`
}

func (d *PostMessageDTO) Validate() error {
	d.Body = strings.TrimSpace(d.Body)
	if d.Body == "" {
		return internal.NewValidationError("message body is required", internal.ErrCodeEmptyMessageBody)
	}
	if d.Type == "" {
		d.Type = MessagePublic
	}
	switch d.Type {
	case MessagePublic, MessageInternal:
	default:
		return internal.NewValidationError("invalid message type: "+d.Type, internal.ErrCodeValidationFailed)
	}
	return nil
}

// TicketDetail is the guarded read shape: the ticket plus the messages the
// caller may see.
type TicketDetail struct {
	Ticket   *Ticket    `json:"ticket"`
	Messages []*Message `json:"messages"`
}

// Export is the redacted export payload plus counters recorded in the audit
// trail.
type Export struct {
	Payload         redaction.ExportPayload `json:"payload"`
	ExportedAt      time.Time               `json:"exported_at"`
	MessageCount    int                     `json:"message_count"`
	AttachmentCount int                     `json:"attachment_count"`
}
