package redaction

import (
	"path/filepath"
	"strings"
	"time"
)

const RedactedToken = "[REDACTED]"

// Sensitivity levels a payload may carry. Kept local so this package stays
// free of storage and transport concerns.
const (
	SensitivityRegular      = "REGULAR"
	SensitivityConfidential = "CONFIDENTIAL"
	SensitivityRestricted   = "RESTRICTED"
)

// MessageMeta is a message as it appears in an export.
type MessageMeta struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Type      string    `json:"type"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentMeta is attachment metadata as it appears in an export. Size is
// a pointer because redaction nulls it for masked restricted attachments.
type AttachmentMeta struct {
	ID               int64     `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	Mime             string    `json:"mime"`
	Size             *int64    `json:"size"`
	SensitivityLevel string    `json:"sensitivity_level"`
	ScannedStatus    string    `json:"scanned_status"`
	CreatedAt        time.Time `json:"created_at"`
}

// ExportPayload is the assembled ticket export before and after redaction.
type ExportPayload struct {
	TicketID         int64            `json:"ticket_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Priority         string           `json:"priority"`
	Status           string           `json:"status"`
	SensitivityLevel string           `json:"sensitivity_level"`
	CreatedAt        time.Time        `json:"created_at"`
	ClosedAt         *time.Time       `json:"closed_at"`
	Messages         []MessageMeta    `json:"messages"`
	Attachments      []AttachmentMeta `json:"attachments"`
}

// MaskValue hides the interior of a string, keeping the first and last two
// characters as a recognizability hint. Values too short to mask that way
// are replaced entirely.
func MaskValue(s string) string {
	runes := []rune(s)
	if len(runes) <= 4 {
		return RedactedToken
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}

// MaskFilename masks the base name but keeps the extension so the file type
// stays readable in the export.
func MaskFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return MaskValue(base) + ext
}

// RedactTicketExport applies the sensitivity rules to an export:
//   - REGULAR tickets pass through untouched.
//   - CONFIDENTIAL tickets get title and description masked unless the
//     exporter holds the confidential-export permission.
//   - RESTRICTED attachments are dropped entirely for exporters without the
//     permission; with it they stay but with masked filename and no size.
func RedactTicketExport(payload ExportPayload, hasExportPermission bool) ExportPayload {
	if payload.SensitivityLevel == SensitivityConfidential && !hasExportPermission {
		payload.Title = MaskValue(payload.Title)
		payload.Description = MaskValue(payload.Description)
	}

	attachments := make([]AttachmentMeta, 0, len(payload.Attachments))
	for _, att := range payload.Attachments {
		if att.SensitivityLevel == SensitivityRestricted {
			if !hasExportPermission {
				continue
			}
			att.OriginalFilename = MaskFilename(att.OriginalFilename)
			att.Size = nil
		}
		attachments = append(attachments, att)
	}
	payload.Attachments = attachments

	return payload
}
