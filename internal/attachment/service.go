package attachment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/audit"
	"github.com/satriajat/helpdesk-management/internal/auth"
	"github.com/satriajat/helpdesk-management/internal/guard"
	"github.com/satriajat/helpdesk-management/internal/obs"
	"github.com/satriajat/helpdesk-management/internal/redaction"
	"github.com/satriajat/helpdesk-management/internal/storage"
)

// GuardAPI is the slice of the access guard this service uses.
type GuardAPI interface {
	CanViewTicket(ctx context.Context, actor *auth.Actor, ticketID int64, ref *guard.TicketRef, deniedEntity string) error
	CanActOnTicket(ctx context.Context, actor *auth.Actor, ticketID int64, ref *guard.TicketRef, deniedEntity string) error
	RequireAgent(actor *auth.Actor) error
}

type Service struct {
	repo    Repository
	tickets TicketSource
	guard   GuardAPI
	store   storage.Client
	auditor audit.Recorder
	cfg     internal.AttachmentsConfig
	logger  *slog.Logger
}

func NewService(
	repo Repository,
	tickets TicketSource,
	g GuardAPI,
	store storage.Client,
	auditor audit.Recorder,
	cfg internal.AttachmentsConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:    repo,
		tickets: tickets,
		guard:   g,
		store:   store,
		auditor: auditor,
		cfg:     cfg,
		logger:  logger,
	}
}

// Presign runs the guard chain on the owning ticket, inserts the PENDING
// row and hands back a presigned PUT URL. The scanner picks the row up once
// the client has uploaded.
func (s *Service) Presign(ctx context.Context, actor *auth.Actor, ticketID int64, dto PresignUploadDTO) (*PresignUploadResponse, error) {
	ref, err := s.tickets.TicketRef(ctx, ticketID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load ticket", err)
	}
	if err := s.guard.CanViewTicket(ctx, actor, ticketID, ref, audit.EntityTicketAttachment); err != nil {
		return nil, err
	}
	if err := dto.Validate(s.cfg.MaxSizeBytes); err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("tickets/%d/%s_%s", ticketID, uuid.NewString(), SafeFilename(dto.Filename))
	att := &Attachment{
		TicketID:         ticketID,
		UploadedBy:       actor.ID,
		ObjectKey:        objectKey,
		OriginalFilename: dto.Filename,
		Mime:             dto.Mime,
		Size:             dto.Size,
		ScannedStatus:    ScanPending,
		SensitivityLevel: dto.SensitivityLevel,
		Status:           StatusActive,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Create(att); err != nil {
		return nil, internal.NewInternalError("failed to create attachment", err)
	}

	uploadURL, err := s.store.PresignPut(ctx, objectKey, dto.Mime, s.cfg.PresignExpiry)
	if err != nil {
		s.logger.Error("presign upload failed", "attachment_id", att.ID, "error", err)
		return nil, internal.NewExternalError("object storage unavailable", err)
	}

	_ = s.auditor.Append(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionAttachmentPresigned,
		EntityType: audit.EntityTicketAttachment,
		EntityID:   &att.ID,
		Diff: map[string]interface{}{
			"ticket_id":  ticketID,
			"object_key": objectKey,
			"size":       dto.Size,
		},
	})

	return &PresignUploadResponse{
		AttachmentID: att.ID,
		ObjectKey:    objectKey,
		UploadURL:    uploadURL,
	}, nil
}

// Download is the portal path: viewer checks only.
func (s *Service) Download(ctx context.Context, actor *auth.Actor, ticketID, attachmentID int64) (*DownloadResponse, error) {
	ref, err := s.tickets.TicketRef(ctx, ticketID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load ticket", err)
	}
	if err := s.guard.CanViewTicket(ctx, actor, ticketID, ref, audit.EntityAttachmentDownload); err != nil {
		return nil, err
	}
	return s.presignDownload(ctx, actor, ticketID, attachmentID)
}

// DownloadForAgent additionally requires the agent gate and team membership
// on the owning ticket.
func (s *Service) DownloadForAgent(ctx context.Context, actor *auth.Actor, ticketID, attachmentID int64) (*DownloadResponse, error) {
	if err := s.guard.RequireAgent(actor); err != nil {
		return nil, err
	}
	ref, err := s.tickets.TicketRef(ctx, ticketID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load ticket", err)
	}
	if err := s.guard.CanActOnTicket(ctx, actor, ticketID, ref, audit.EntityAttachmentDownload); err != nil {
		return nil, err
	}
	return s.presignDownload(ctx, actor, ticketID, attachmentID)
}

// presignDownload enforces the scan gate. The row is loaded by ticket id AND
// attachment id: an attachment reached through a foreign ticket is a 404, no
// matter what the caller may access otherwise.
func (s *Service) presignDownload(ctx context.Context, actor *auth.Actor, ticketID, attachmentID int64) (*DownloadResponse, error) {
	att, err := s.repo.GetForTicket(ticketID, attachmentID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load attachment", err)
	}
	if att == nil || att.Status != StatusActive {
		return nil, internal.ErrAttachmentNotFound
	}

	if att.ScannedStatus != ScanClean {
		reason := s.blockReason(att.ScannedStatus)
		obs.DownloadsBlocked.WithLabelValues(reason).Inc()
		_ = s.auditor.Append(ctx, audit.Record{
			ActorID:    &actor.ID,
			Action:     audit.ActionAttachmentDownloadBlocked,
			EntityType: audit.EntityAttachmentDownload,
			EntityID:   &att.ID,
			Meta: map[string]interface{}{
				"reason":    reason,
				"ticket_id": ticketID,
			},
		})

		switch att.ScannedStatus {
		case ScanInfected:
			return nil, internal.ErrAttachmentBlocked
		case ScanFailed:
			return nil, internal.ErrScanFailed
		default:
			return nil, internal.ErrScanPending
		}
	}

	url, err := s.store.PresignGet(ctx, att.ObjectKey, att.OriginalFilename, s.cfg.PresignExpiry)
	if err != nil {
		s.logger.Error("presign download failed", "attachment_id", att.ID, "error", err)
		return nil, internal.NewExternalError("object storage unavailable", err)
	}

	_ = s.auditor.Append(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionAttachmentDownloadPresigned,
		EntityType: audit.EntityAttachmentDownload,
		EntityID:   &att.ID,
		Meta: map[string]interface{}{
			"ticket_id":  ticketID,
			"object_key": att.ObjectKey,
		},
	})

	return &DownloadResponse{
		AttachmentID: att.ID,
		Filename:     att.OriginalFilename,
		DownloadURL:  url,
	}, nil
}

func (s *Service) blockReason(scanStatus string) string {
	switch scanStatus {
	case ScanInfected:
		return "infected"
	case ScanFailed:
		return "scan_failed"
	default:
		return "scan_pending"
	}
}

// ActiveMetaForTicket feeds ticket exports. Redaction of restricted rows
// happens downstream; this only shapes the metadata.
func (s *Service) ActiveMetaForTicket(ticketID int64) ([]redaction.AttachmentMeta, error) {
	rows, err := s.repo.ActiveForTicket(ticketID)
	if err != nil {
		return nil, err
	}
	meta := make([]redaction.AttachmentMeta, 0, len(rows))
	for _, a := range rows {
		size := a.Size
		meta = append(meta, redaction.AttachmentMeta{
			ID:               a.ID,
			OriginalFilename: a.OriginalFilename,
			Mime:             a.Mime,
			Size:             &size,
			SensitivityLevel: a.SensitivityLevel,
			ScannedStatus:    a.ScannedStatus,
			CreatedAt:        a.CreatedAt,
		})
	}
	return meta, nil
}

// ApplyRetention stamps every ACTIVE attachment of a closed ticket with the
// configured retention window. Invoked by the ticket.closed event handler.
func (s *Service) ApplyRetention(ctx context.Context, ticketID int64) error {
	days := s.cfg.RetentionDays
	if days <= 0 {
		return nil
	}
	expiresAt := time.Now().UTC().AddDate(0, 0, days)
	n, err := s.repo.SetRetention(ticketID, days, expiresAt)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("retention assigned",
			"ticket_id", ticketID,
			"attachments", n,
			"expires_at", expiresAt)
	}
	return nil
}
