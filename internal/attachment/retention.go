package attachment

import (
	"context"
	"log/slog"
	"time"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/audit"
	"github.com/satriajat/helpdesk-management/internal/obs"
	"github.com/satriajat/helpdesk-management/internal/storage"
)

const sweepBatchSize = 100

// SweepStats summarizes one retention pass.
type SweepStats struct {
	Deleted  int
	Reverted int
	Skipped  int
}

// RetentionSweeper deletes expired attachments. The row is CAS-marked
// DELETED before the object delete: if the object delete then fails the row
// is reverted to ACTIVE so the next sweep retries, and no audit entry is
// written for the failed attempt. A row another sweeper already claimed is
// skipped without a second delete or a duplicate audit entry.
type RetentionSweeper struct {
	repo    Repository
	store   storage.Client
	auditor audit.Recorder
	cfg     internal.AttachmentsConfig
	logger  *slog.Logger
}

func NewRetentionSweeper(
	repo Repository,
	store storage.Client,
	auditor audit.Recorder,
	cfg internal.AttachmentsConfig,
	logger *slog.Logger,
) *RetentionSweeper {
	return &RetentionSweeper{
		repo:    repo,
		store:   store,
		auditor: auditor,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *RetentionSweeper) SweepOnce(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	expired, err := s.repo.ListExpired(time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return stats, err
	}

	for _, att := range expired {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		claimed, err := s.repo.MarkDeletedCAS(att.ID)
		if err != nil {
			s.logger.Error("failed to claim expired attachment", "attachment_id", att.ID, "error", err)
			continue
		}
		if !claimed {
			stats.Skipped++
			obs.RetentionSweeps.WithLabelValues("skipped").Inc()
			continue
		}

		if err := s.store.DeleteObject(ctx, att.ObjectKey); err != nil {
			s.logger.Error("object delete failed, reverting row",
				"attachment_id", att.ID, "object_key", att.ObjectKey, "error", err)
			if revertErr := s.repo.Reactivate(att.ID); revertErr != nil {
				s.logger.Error("failed to revert attachment after delete failure",
					"attachment_id", att.ID, "error", revertErr)
			}
			stats.Reverted++
			obs.RetentionSweeps.WithLabelValues("reverted").Inc()
			continue
		}

		stats.Deleted++
		obs.RetentionSweeps.WithLabelValues("deleted").Inc()
		_ = s.auditor.Append(ctx, audit.Record{
			Action:     audit.ActionAttachmentRetentionExpired,
			EntityType: audit.EntityAttachment,
			EntityID:   &att.ID,
			Diff: map[string]interface{}{
				"ticket_id":  att.TicketID,
				"object_key": att.ObjectKey,
				"expired_at": att.ExpiresAt,
			},
		})
	}

	return stats, nil
}

// Run polls until the context is cancelled.
func (s *RetentionSweeper) Run(ctx context.Context) error {
	interval := s.cfg.RetentionPollEvery
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("retention sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			stats, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("retention sweep failed", "error", err)
				continue
			}
			if stats.Deleted+stats.Reverted+stats.Skipped > 0 {
				s.logger.Info("retention sweep finished",
					"deleted", stats.Deleted,
					"reverted", stats.Reverted,
					"skipped", stats.Skipped)
			}
		}
	}
}
