package attachment_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/attachment"
	"github.com/satriajat/helpdesk-management/internal/audit"
)

// staleListRepo lets a competing worker decide each listed row right after
// the listing returns.
type staleListRepo struct {
	*memoryRepo
	winner string
}

func (r *staleListRepo) ListPending(limit int) ([]*attachment.Attachment, error) {
	rows, err := r.memoryRepo.ListPending(limit)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, err := r.memoryRepo.SetScanResultCAS(row.ID, r.winner, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

var _ = Describe("Scan worker", func() {
	var (
		ctx     context.Context
		repo    *memoryRepo
		store   *fakeStore
		scanner *fakeScanner
		auditor *recordingAuditor
		worker  *attachment.ScanWorker
	)

	cfg := internal.ScannerConfig{BatchSize: 10, MaxScanBytes: 1 << 20}

	addPending := func(key string) int64 {
		a := &attachment.Attachment{
			TicketID:      7,
			UploadedBy:    1,
			ObjectKey:     key,
			ScannedStatus: attachment.ScanPending,
			Status:        attachment.StatusActive,
		}
		Expect(repo.Create(a)).To(Succeed())
		return a.ID
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMemoryRepo()
		store = &fakeStore{objects: map[string][]byte{"k1": []byte("hello")}}
		scanner = &fakeScanner{result: attachment.ScanClean}
		auditor = &recordingAuditor{}
		worker = attachment.NewScanWorker(repo, store, scanner, auditor, cfg, slog.Default())
	})

	It("marks a clean attachment CLEAN and audits the verdict", func() {
		id := addPending("k1")

		decided, err := worker.ScanPendingOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(decided).To(Equal(1))

		row, _ := repo.GetForTicket(7, id)
		Expect(row.ScannedStatus).To(Equal(attachment.ScanClean))
		Expect(row.ScannedAt).NotTo(BeNil())

		entries := auditor.byAction(audit.ActionAttachmentScanned)
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Diff).To(HaveKeyWithValue("result", attachment.ScanClean))
	})

	It("records the signature for infected files", func() {
		id := addPending("k1")
		scanner.result = attachment.ScanInfected
		scanner.signature = "Eicar-Test-Signature"

		_, err := worker.ScanPendingOnce(ctx)
		Expect(err).NotTo(HaveOccurred())

		row, _ := repo.GetForTicket(7, id)
		Expect(row.ScannedStatus).To(Equal(attachment.ScanInfected))

		entries := auditor.byAction(audit.ActionAttachmentScanned)
		Expect(entries[0].Diff).To(HaveKeyWithValue("signature", "Eicar-Test-Signature"))
	})

	It("marks the row FAILED when the object cannot be fetched", func() {
		id := addPending("missing-key")

		decided, err := worker.ScanPendingOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(decided).To(Equal(1))

		row, _ := repo.GetForTicket(7, id)
		Expect(row.ScannedStatus).To(Equal(attachment.ScanFailed))
	})

	It("marks the row FAILED when the scanner errors", func() {
		id := addPending("k1")
		scanner.err = errors.New("clamd timeout")

		_, err := worker.ScanPendingOnce(ctx)
		Expect(err).NotTo(HaveOccurred())

		row, _ := repo.GetForTicket(7, id)
		Expect(row.ScannedStatus).To(Equal(attachment.ScanFailed))
	})

	It("skips rows another worker already decided, without a duplicate audit entry", func() {
		id := addPending("k1")

		// stale listing: the competitor wins the row between the listing and
		// this worker's verdict write
		stale := &staleListRepo{memoryRepo: repo, winner: attachment.ScanClean}
		racingWorker := attachment.NewScanWorker(stale, store, scanner, auditor, cfg, slog.Default())

		decided, err := racingWorker.ScanPendingOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(decided).To(BeZero())
		Expect(auditor.byAction(audit.ActionAttachmentScanned)).To(BeEmpty())

		row, _ := repo.GetForTicket(7, id)
		Expect(row.ScannedStatus).To(Equal(attachment.ScanClean))
	})
})
