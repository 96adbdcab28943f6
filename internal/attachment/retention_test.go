package attachment_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/attachment"
	"github.com/satriajat/helpdesk-management/internal/audit"
)

var _ = Describe("Retention sweeper", func() {
	var (
		ctx     context.Context
		repo    *memoryRepo
		store   *fakeStore
		auditor *recordingAuditor
		sweeper *attachment.RetentionSweeper
	)

	cfg := internal.AttachmentsConfig{RetentionDays: 30}

	addExpired := func(key string) int64 {
		past := time.Now().UTC().Add(-24 * time.Hour)
		a := &attachment.Attachment{
			TicketID:      7,
			UploadedBy:    1,
			ObjectKey:     key,
			ScannedStatus: attachment.ScanClean,
			Status:        attachment.StatusActive,
			ExpiresAt:     &past,
		}
		Expect(repo.Create(a)).To(Succeed())
		return a.ID
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMemoryRepo()
		store = &fakeStore{objects: map[string][]byte{}, failDeletes: map[string]bool{}}
		auditor = &recordingAuditor{}
		sweeper = attachment.NewRetentionSweeper(repo, store, auditor, cfg, slog.Default())
	})

	It("soft-deletes expired rows, removes the objects and audits each one", func() {
		id := addExpired("k1")
		addExpired("k2")

		stats, err := sweeper.SweepOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Deleted).To(Equal(2))
		Expect(store.deleted).To(ConsistOf("k1", "k2"))

		row, _ := repo.GetForTicket(7, id)
		Expect(row.Status).To(Equal(attachment.StatusDeleted))
		Expect(auditor.byAction(audit.ActionAttachmentRetentionExpired)).To(HaveLen(2))
	})

	It("leaves unexpired and already-deleted rows alone", func() {
		future := time.Now().UTC().Add(24 * time.Hour)
		fresh := &attachment.Attachment{TicketID: 7, ObjectKey: "fresh", Status: attachment.StatusActive, ExpiresAt: &future}
		Expect(repo.Create(fresh)).To(Succeed())

		stats, err := sweeper.SweepOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(Equal(attachment.SweepStats{}))
		Expect(store.deleted).To(BeEmpty())
	})

	It("reverts the row when the object delete fails and audits nothing", func() {
		id := addExpired("k1")
		store.failDeletes["k1"] = true

		stats, err := sweeper.SweepOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Reverted).To(Equal(1))

		row, _ := repo.GetForTicket(7, id)
		Expect(row.Status).To(Equal(attachment.StatusActive))
		Expect(auditor.byAction(audit.ActionAttachmentRetentionExpired)).To(BeEmpty())
	})

	It("retries the reverted row on the next pass", func() {
		id := addExpired("k1")
		store.failDeletes["k1"] = true
		_, err := sweeper.SweepOnce(ctx)
		Expect(err).NotTo(HaveOccurred())

		store.failDeletes["k1"] = false
		stats, err := sweeper.SweepOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Deleted).To(Equal(1))

		row, _ := repo.GetForTicket(7, id)
		Expect(row.Status).To(Equal(attachment.StatusDeleted))
	})

	It("counts rows another sweeper claimed as skipped", func() {
		id := addExpired("k1")

		stale := &staleClaimRepo{memoryRepo: repo}
		racing := attachment.NewRetentionSweeper(stale, store, auditor, cfg, slog.Default())

		stats, err := racing.SweepOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Skipped).To(Equal(1))
		Expect(auditor.byAction(audit.ActionAttachmentRetentionExpired)).To(BeEmpty())

		row, _ := repo.GetForTicket(7, id)
		Expect(row.Status).To(Equal(attachment.StatusDeleted))
	})
})

// staleClaimRepo simulates a competing sweeper claiming each listed row
// before this one gets to it.
type staleClaimRepo struct {
	*memoryRepo
}

func (r *staleClaimRepo) ListExpired(now time.Time, limit int) ([]*attachment.Attachment, error) {
	rows, err := r.memoryRepo.ListExpired(now, limit)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, err := r.memoryRepo.MarkDeletedCAS(row.ID); err != nil {
			return nil, err
		}
	}
	return rows, nil
}
