package attachment_test

import (
	"context"
	"errors"
	"time"

	"github.com/satriajat/helpdesk-management/internal/attachment"
	"github.com/satriajat/helpdesk-management/internal/audit"
	"github.com/satriajat/helpdesk-management/internal/guard"
)

type recordingAuditor struct {
	records []audit.Record
}

func (r *recordingAuditor) Append(_ context.Context, rec audit.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingAuditor) byAction(action string) []audit.Record {
	var out []audit.Record
	for _, rec := range r.records {
		if rec.Action == action {
			out = append(out, rec)
		}
	}
	return out
}

type memoryRepo struct {
	rows   map[int64]*attachment.Attachment
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]*attachment.Attachment), nextID: 1}
}

func (r *memoryRepo) Create(a *attachment.Attachment) error {
	a.ID = r.nextID
	r.nextID++
	copied := *a
	r.rows[a.ID] = &copied
	return nil
}

func (r *memoryRepo) GetForTicket(ticketID, attachmentID int64) (*attachment.Attachment, error) {
	a, ok := r.rows[attachmentID]
	if !ok || a.TicketID != ticketID {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *memoryRepo) ActiveForTicket(ticketID int64) ([]*attachment.Attachment, error) {
	var out []*attachment.Attachment
	for _, a := range r.rows {
		if a.TicketID == ticketID && a.Status == attachment.StatusActive {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListPending(limit int) ([]*attachment.Attachment, error) {
	var out []*attachment.Attachment
	for _, a := range r.rows {
		if a.ScannedStatus == attachment.ScanPending {
			copied := *a
			out = append(out, &copied)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepo) SetScanResultCAS(id int64, result string, at time.Time) (bool, error) {
	a, ok := r.rows[id]
	if !ok || a.ScannedStatus != attachment.ScanPending {
		return false, nil
	}
	a.ScannedStatus = result
	a.ScannedAt = &at
	return true, nil
}

func (r *memoryRepo) SetRetention(ticketID int64, days int, expiresAt time.Time) (int64, error) {
	var n int64
	for _, a := range r.rows {
		if a.TicketID == ticketID && a.Status == attachment.StatusActive {
			d := days
			e := expiresAt
			a.RetentionDays = &d
			a.ExpiresAt = &e
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) ListExpired(now time.Time, limit int) ([]*attachment.Attachment, error) {
	var out []*attachment.Attachment
	for _, a := range r.rows {
		if a.Status == attachment.StatusActive && a.ExpiresAt != nil && a.ExpiresAt.Before(now) {
			copied := *a
			out = append(out, &copied)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepo) MarkDeletedCAS(id int64) (bool, error) {
	a, ok := r.rows[id]
	if !ok || a.Status != attachment.StatusActive {
		return false, nil
	}
	a.Status = attachment.StatusDeleted
	return true, nil
}

func (r *memoryRepo) Reactivate(id int64) error {
	a, ok := r.rows[id]
	if !ok {
		return errors.New("attachment not found")
	}
	a.Status = attachment.StatusActive
	return nil
}

// fakeStore is an in-memory object store. Keys in failDeletes make the
// delete path fail; a nil objects map fails every read.
type fakeStore struct {
	objects     map[string][]byte
	deleted     []string
	failDeletes map[string]bool
	failPresign bool
}

func (s *fakeStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if s.failPresign {
		return "", errors.New("connection refused")
	}
	return "https://storage.local/put/" + key, nil
}

func (s *fakeStore) PresignGet(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if s.failPresign {
		return "", errors.New("connection refused")
	}
	return "https://storage.local/get/" + key, nil
}

func (s *fakeStore) GetObject(_ context.Context, key string) ([]byte, error) {
	if s.objects == nil {
		return nil, errors.New("storage unavailable")
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (s *fakeStore) DeleteObject(_ context.Context, key string) error {
	if s.failDeletes[key] {
		return errors.New("delete failed")
	}
	s.deleted = append(s.deleted, key)
	return nil
}

// fakeTickets maps ticket ids to guard refs.
type fakeTickets struct {
	refs map[int64]*guard.TicketRef
}

func (f *fakeTickets) TicketRef(_ context.Context, id int64) (*guard.TicketRef, error) {
	return f.refs[id], nil
}

// fakeScanner returns a fixed verdict per payload content.
type fakeScanner struct {
	result    string
	signature string
	err       error
}

func (f *fakeScanner) Scan(context.Context, []byte) (string, string, error) {
	return f.result, f.signature, f.err
}

func ptr(v int64) *int64 { return &v }
