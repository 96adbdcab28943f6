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

// ScanWorker drains PENDING attachments: fetch bytes, stream through the
// scanner, CAS the verdict. All network I/O happens before the row write,
// never under a lock. The CAS (WHERE scanned_status = 'PENDING') makes
// concurrent workers safe: the loser of the race skips audit and metrics.
type ScanWorker struct {
	repo    Repository
	store   storage.Client
	scanner Scanner
	auditor audit.Recorder
	cfg     internal.ScannerConfig
	logger  *slog.Logger
}

func NewScanWorker(
	repo Repository,
	store storage.Client,
	scanner Scanner,
	auditor audit.Recorder,
	cfg internal.ScannerConfig,
	logger *slog.Logger,
) *ScanWorker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	return &ScanWorker{
		repo:    repo,
		store:   store,
		scanner: scanner,
		auditor: auditor,
		cfg:     cfg,
		logger:  logger,
	}
}

// ScanPendingOnce processes one batch and reports how many rows it decided.
func (w *ScanWorker) ScanPendingOnce(ctx context.Context) (int, error) {
	pending, err := w.repo.ListPending(w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	decided := 0
	for _, att := range pending {
		if ctx.Err() != nil {
			return decided, ctx.Err()
		}
		if w.scanOne(ctx, att) {
			decided++
		}
	}
	return decided, nil
}

func (w *ScanWorker) scanOne(ctx context.Context, att *Attachment) bool {
	result := ScanFailed
	signature := ""

	data, err := w.store.GetObject(ctx, att.ObjectKey)
	if err != nil {
		// Object missing or storage down: the row must not stay PENDING
		// forever, FAILED keeps the download gate shut and is re-scannable
		// by an operator.
		w.logger.Error("failed to fetch object for scanning",
			"attachment_id", att.ID, "object_key", att.ObjectKey, "error", err)
	} else {
		if w.cfg.MaxScanBytes > 0 && int64(len(data)) > w.cfg.MaxScanBytes {
			data = data[:w.cfg.MaxScanBytes]
		}
		result, signature, err = w.scanner.Scan(ctx, data)
		if err != nil {
			w.logger.Error("scan failed", "attachment_id", att.ID, "error", err)
			result = ScanFailed
		}
	}

	now := time.Now().UTC()
	claimed, casErr := w.repo.SetScanResultCAS(att.ID, result, now)
	if casErr != nil {
		w.logger.Error("failed to store scan result", "attachment_id", att.ID, "error", casErr)
		return false
	}
	if !claimed {
		// Another worker decided this row first; their audit entry stands.
		return false
	}

	obs.AttachmentScans.WithLabelValues(result).Inc()

	diff := map[string]interface{}{
		"ticket_id":  att.TicketID,
		"object_key": att.ObjectKey,
		"result":     result,
	}
	if signature != "" {
		diff["signature"] = signature
	}
	_ = w.auditor.Append(ctx, audit.Record{
		Action:     audit.ActionAttachmentScanned,
		EntityType: audit.EntityAttachment,
		EntityID:   &att.ID,
		Diff:       diff,
	})

	if result == ScanInfected {
		w.logger.Warn("infected attachment detected",
			"attachment_id", att.ID, "ticket_id", att.TicketID, "signature", signature)
	}
	return true
}

// Run polls until the context is cancelled.
func (w *ScanWorker) Run(ctx context.Context) error {
	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("attachment scan worker started", "interval", interval, "batch_size", w.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("attachment scan worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if n, err := w.ScanPendingOnce(ctx); err != nil {
				w.logger.Error("scan pass failed", "error", err)
			} else if n > 0 {
				w.logger.Info("scan pass finished", "scanned", n)
			}
		}
	}
}
