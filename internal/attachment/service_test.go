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
	"github.com/satriajat/helpdesk-management/internal/auth"
	"github.com/satriajat/helpdesk-management/internal/guard"
)

type passthroughResolver struct{}

func (passthroughResolver) IsInScope(viewerUnitID *int64, _ string, targetUnitID *int64) (bool, error) {
	return viewerUnitID != nil && targetUnitID != nil, nil
}

var _ = Describe("Attachment service", func() {
	var (
		ctx     context.Context
		repo    *memoryRepo
		store   *fakeStore
		tickets *fakeTickets
		auditor *recordingAuditor
		svc     *attachment.Service
		actor   *auth.Actor
	)

	cfg := internal.AttachmentsConfig{
		MaxSizeBytes:  1024,
		PresignExpiry: 15 * time.Minute,
		RetentionDays: 30,
	}

	appErr := func(err error) *internal.AppError {
		var appError *internal.AppError
		Expect(errors.As(err, &appError)).To(BeTrue())
		return appError
	}

	addAttachment := func(ticketID int64, scanStatus, status string) int64 {
		a := &attachment.Attachment{
			TicketID:         ticketID,
			UploadedBy:       1,
			ObjectKey:        "tickets/obj",
			OriginalFilename: "report.pdf",
			Size:             512,
			ScannedStatus:    scanStatus,
			SensitivityLevel: "REGULAR",
			Status:           status,
		}
		Expect(repo.Create(a)).To(Succeed())
		return a.ID
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMemoryRepo()
		store = &fakeStore{objects: map[string][]byte{}}
		tickets = &fakeTickets{refs: map[int64]*guard.TicketRef{
			7: {ID: 7, OwnerOrgUnitID: ptr(3), CurrentTeamID: ptr(1), Sensitivity: guard.SensitivityRegular},
		}}
		auditor = &recordingAuditor{}
		g := guard.New(passthroughResolver{}, auditor, slog.Default())
		svc = attachment.NewService(repo, tickets, g, store, auditor, cfg, slog.Default())
		actor = &auth.Actor{ID: 10, OrgUnitID: ptr(3), ScopeLevel: "SELF", TeamIDs: []int64{1}}
	})

	Describe("Presign", func() {
		It("refuses uploads against a missing ticket with 404", func() {
			_, err := svc.Presign(ctx, actor, 99, attachment.PresignUploadDTO{Filename: "a.txt", Size: 10})
			Expect(appErr(err).StatusCode).To(Equal(404))
			Expect(auditor.byAction(audit.ActionPermissionDenied)).To(HaveLen(1))
		})

		It("rejects oversized uploads", func() {
			_, err := svc.Presign(ctx, actor, 7, attachment.PresignUploadDTO{Filename: "a.txt", Size: 4096})
			Expect(appErr(err).StatusCode).To(Equal(400))
		})

		It("creates a PENDING row and returns the upload URL", func() {
			resp, err := svc.Presign(ctx, actor, 7, attachment.PresignUploadDTO{Filename: "boot log.txt", Mime: "text/plain", Size: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.UploadURL).To(HavePrefix("https://storage.local/put/tickets/7/"))

			row, _ := repo.GetForTicket(7, resp.AttachmentID)
			Expect(row.ScannedStatus).To(Equal(attachment.ScanPending))
			Expect(row.OriginalFilename).To(Equal("boot log.txt"))
			Expect(auditor.byAction(audit.ActionAttachmentPresigned)).To(HaveLen(1))
		})

		It("surfaces storage outages as 502", func() {
			store.failPresign = true
			_, err := svc.Presign(ctx, actor, 7, attachment.PresignUploadDTO{Filename: "a.txt", Size: 10})
			Expect(appErr(err).StatusCode).To(Equal(502))
		})
	})

	Describe("Download scan gate", func() {
		It("presigns a clean active attachment and audits the download", func() {
			id := addAttachment(7, attachment.ScanClean, attachment.StatusActive)
			resp, err := svc.Download(ctx, actor, 7, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.DownloadURL).To(HavePrefix("https://storage.local/get/"))
			Expect(auditor.byAction(audit.ActionAttachmentDownloadPresigned)).To(HaveLen(1))
		})

		It("blocks infected attachments with 403 and a blocked audit entry", func() {
			id := addAttachment(7, attachment.ScanInfected, attachment.StatusActive)
			_, err := svc.Download(ctx, actor, 7, id)
			Expect(appErr(err).StatusCode).To(Equal(403))

			blocked := auditor.byAction(audit.ActionAttachmentDownloadBlocked)
			Expect(blocked).To(HaveLen(1))
			Expect(blocked[0].Meta).To(HaveKeyWithValue("reason", "infected"))
		})

		It("answers 409 while the scan is pending", func() {
			id := addAttachment(7, attachment.ScanPending, attachment.StatusActive)
			_, err := svc.Download(ctx, actor, 7, id)
			Expect(appErr(err).StatusCode).To(Equal(409))

			blocked := auditor.byAction(audit.ActionAttachmentDownloadBlocked)
			Expect(blocked).To(HaveLen(1))
			Expect(blocked[0].Meta).To(HaveKeyWithValue("reason", "scan_pending"))
		})

		It("answers 409 for failed scans with its own reason", func() {
			id := addAttachment(7, attachment.ScanFailed, attachment.StatusActive)
			_, err := svc.Download(ctx, actor, 7, id)
			Expect(appErr(err).StatusCode).To(Equal(409))

			blocked := auditor.byAction(audit.ActionAttachmentDownloadBlocked)
			Expect(blocked[0].Meta).To(HaveKeyWithValue("reason", "scan_failed"))
		})

		It("hides soft-deleted attachments behind 404", func() {
			id := addAttachment(7, attachment.ScanClean, attachment.StatusDeleted)
			_, err := svc.Download(ctx, actor, 7, id)
			Expect(appErr(err).StatusCode).To(Equal(404))
		})

		It("refuses an attachment id reached through a foreign ticket", func() {
			tickets.refs[8] = &guard.TicketRef{ID: 8, OwnerOrgUnitID: ptr(3), CurrentTeamID: ptr(1)}
			id := addAttachment(7, attachment.ScanClean, attachment.StatusActive)

			_, err := svc.Download(ctx, actor, 8, id)
			Expect(appErr(err).StatusCode).To(Equal(404))
		})
	})

	Describe("DownloadForAgent", func() {
		It("rejects non-agents before anything else", func() {
			plain := &auth.Actor{ID: 11, OrgUnitID: ptr(3), ScopeLevel: "SELF"}
			id := addAttachment(7, attachment.ScanClean, attachment.StatusActive)

			_, err := svc.DownloadForAgent(ctx, plain, 7, id)
			Expect(appErr(err).StatusCode).To(Equal(403))
			Expect(auditor.records).To(BeEmpty())
		})

		It("requires membership in the ticket's current team", func() {
			outsider := &auth.Actor{ID: 12, OrgUnitID: ptr(3), ScopeLevel: "SELF", TeamIDs: []int64{9}}
			id := addAttachment(7, attachment.ScanClean, attachment.StatusActive)

			_, err := svc.DownloadForAgent(ctx, outsider, 7, id)
			Expect(appErr(err).StatusCode).To(Equal(403))
			Expect(auditor.byAction(audit.ActionPermissionDenied)).To(HaveLen(1))
		})
	})

	Describe("ApplyRetention", func() {
		It("stamps every active attachment of the ticket", func() {
			id := addAttachment(7, attachment.ScanClean, attachment.StatusActive)
			Expect(svc.ApplyRetention(ctx, 7)).To(Succeed())

			row, _ := repo.GetForTicket(7, id)
			Expect(row.ExpiresAt).NotTo(BeNil())
			Expect(*row.RetentionDays).To(Equal(30))
		})
	})
})
