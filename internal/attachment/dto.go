package attachment

import (
	"regexp"
	"strings"

	"github.com/satriajat/helpdesk-management/internal"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._ \-]`)

type PresignUploadDTO struct {
	Filename         string `json:"filename"`
	Mime             string `json:"mime"`
	Size             int64  `json:"size"`
	SensitivityLevel string `json:"sensitivity_level"`
}

func (d *PresignUploadDTO) Validate(maxSize int64) error {
	d.Filename = strings.TrimSpace(d.Filename)
	if d.Filename == "" {
		return internal.NewValidationError("filename is required", internal.ErrCodeInvalidAttachment)
	}
	if d.Size <= 0 {
		return internal.NewValidationError("size must be positive", internal.ErrCodeInvalidAttachment)
	}
	if maxSize > 0 && d.Size > maxSize {
		return internal.NewValidationError("attachment exceeds the maximum allowed size", internal.ErrCodeInvalidAttachment)
	}
	if d.SensitivityLevel == "" {
		d.SensitivityLevel = "REGULAR"
	}
	switch d.SensitivityLevel {
	case "REGULAR", "CONFIDENTIAL", "RESTRICTED":
	default:
		return internal.NewValidationError("invalid sensitivity level: "+d.SensitivityLevel, internal.ErrCodeInvalidAttachment)
	}
	return nil
}

// SafeFilename strips characters that have meaning to shells, paths or
// object stores. The original name is preserved on the row; the safe form
// only feeds the object key.
func SafeFilename(name string) string {
	safe := unsafeFilenameChars.ReplaceAllString(name, "_")
	if safe == "" {
		safe = "file"
	}
	return safe
}

type PresignUploadResponse struct {
	AttachmentID int64  `json:"attachment_id"`
	ObjectKey    string `json:"object_key"`
	UploadURL    string `json:"upload_url"`
}

type DownloadResponse struct {
	AttachmentID int64  `json:"attachment_id"`
	Filename     string `json:"filename"`
	DownloadURL  string `json:"download_url"`
}
