package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/obs"
)

// Service marshals records and appends them through the repository. A failed
// append never changes the outcome of the operation being audited: the
// failure is logged and counted, and the caller's decision stands.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Append(ctx context.Context, rec Record) error {
	entry := &Entry{
		ActorID:    rec.ActorID,
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		CreatedAt:  time.Now().UTC(),
	}

	meta := internal.RequestMetaFromContext(ctx)
	entry.IP = meta.IP
	entry.UserAgent = meta.UserAgent

	metaFields := map[string]interface{}{}
	if meta.Path != "" {
		metaFields["path"] = meta.Path
	}
	if meta.Method != "" {
		metaFields["method"] = meta.Method
	}
	for k, v := range rec.Meta {
		metaFields[k] = v
	}

	if len(rec.Diff) > 0 {
		if b, err := json.Marshal(rec.Diff); err == nil {
			entry.DiffJSON = string(b)
		}
	}
	if len(metaFields) > 0 {
		if b, err := json.Marshal(metaFields); err == nil {
			entry.MetaJSON = string(b)
		}
	}

	if err := s.repo.Append(entry); err != nil {
		obs.AuditWriteFailures.Inc()
		s.logger.Error("audit append failed",
			"action", rec.Action,
			"entity_type", rec.EntityType,
			"entity_id", rec.EntityID,
			"error", err)
		return err
	}
	return nil
}

// MustAppend is Append for callers whose own result must not depend on the
// ledger being writable. The error is already logged and counted.
func (s *Service) MustAppend(ctx context.Context, rec Record) {
	_ = s.Append(ctx, rec)
}

func (s *Service) ForEntity(entityType string, entityID int64, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListForEntity(entityType, entityID, limit)
}

func (s *Service) Recent(limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListRecent(limit)
}
