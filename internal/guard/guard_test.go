package guard_test

import (
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/audit"
	"github.com/satriajat/helpdesk-management/internal/auth"
	"github.com/satriajat/helpdesk-management/internal/guard"
)

type recordingAuditor struct {
	records []audit.Record
}

func (r *recordingAuditor) Append(_ context.Context, rec audit.Record) error {
	r.records = append(r.records, rec)
	return nil
}

type stubResolver struct {
	inScope bool
	err     error
}

func (s *stubResolver) IsInScope(viewerUnitID *int64, scopeLevel string, targetUnitID *int64) (bool, error) {
	if viewerUnitID == nil || targetUnitID == nil {
		return false, nil
	}
	return s.inScope, s.err
}

func ptr(v int64) *int64 { return &v }

var _ = Describe("Guard", func() {
	var (
		auditor  *recordingAuditor
		resolver *stubResolver
		g        *guard.Guard
		actor    *auth.Actor
		ref      *guard.TicketRef
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		auditor = &recordingAuditor{}
		resolver = &stubResolver{inScope: true}
		g = guard.New(resolver, auditor, slog.Default())
		actor = &auth.Actor{
			ID:         10,
			OrgUnitID:  ptr(3),
			ScopeLevel: "SELF",
			TeamIDs:    []int64{1},
		}
		ref = &guard.TicketRef{
			ID:             42,
			OwnerOrgUnitID: ptr(3),
			CurrentTeamID:  ptr(1),
			Sensitivity:    guard.SensitivityRegular,
		}
	})

	appErr := func(err error) *internal.AppError {
		var appError *internal.AppError
		Expect(errors.As(err, &appError)).To(BeTrue())
		return appError
	}

	Describe("CanViewTicket", func() {
		It("passes a visible regular ticket without any audit entry", func() {
			err := g.CanViewTicket(ctx, actor, ref.ID, ref, audit.EntityTicketAssign)
			Expect(err).NotTo(HaveOccurred())
			Expect(auditor.records).To(BeEmpty())
		})

		It("returns 404 for a missing ticket and audits the denial", func() {
			err := g.CanViewTicket(ctx, actor, 999, nil, audit.EntityTicketAssign)
			Expect(appErr(err).StatusCode).To(Equal(404))
			Expect(auditor.records).To(HaveLen(1))
			Expect(auditor.records[0].Action).To(Equal(audit.ActionPermissionDenied))
			Expect(auditor.records[0].EntityType).To(Equal(audit.EntityTicketAssign))
		})

		It("hides confidential tickets behind a 404 with exactly one denial entry", func() {
			ref.Sensitivity = guard.SensitivityConfidential

			err := g.CanViewTicket(ctx, actor, ref.ID, ref, audit.EntityTicketAssign)
			Expect(appErr(err).StatusCode).To(Equal(404))
			Expect(auditor.records).To(HaveLen(1))
			Expect(auditor.records[0].EntityType).To(Equal(audit.EntityTicketConfidential))
			Expect(*auditor.records[0].EntityID).To(Equal(int64(42)))
		})

		It("lets a confidential ticket through when the viewer holds the permission", func() {
			ref.Sensitivity = guard.SensitivityConfidential
			actor.Permissions = []string{auth.PermConfidentialView}

			Expect(g.CanViewTicket(ctx, actor, ref.ID, ref, audit.EntityTicketAssign)).To(Succeed())
			Expect(auditor.records).To(BeEmpty())
		})

		It("hides out-of-scope tickets behind a 404 tagged as an org access denial", func() {
			resolver.inScope = false

			err := g.CanViewTicket(ctx, actor, ref.ID, ref, audit.EntityTicketAssign)
			Expect(appErr(err).StatusCode).To(Equal(404))
			Expect(auditor.records).To(HaveLen(1))
			Expect(auditor.records[0].EntityType).To(Equal(audit.EntityOrgUnitAccess))
		})

		It("checks confidentiality before scope", func() {
			ref.Sensitivity = guard.SensitivityConfidential
			resolver.inScope = false

			_ = g.CanViewTicket(ctx, actor, ref.ID, ref, audit.EntityTicketAssign)
			Expect(auditor.records).To(HaveLen(1))
			Expect(auditor.records[0].EntityType).To(Equal(audit.EntityTicketConfidential))
		})
	})

	Describe("CanActOnTicket", func() {
		It("denies non-members of the current team with 403 and an action-tagged entry", func() {
			actor.TeamIDs = []int64{5}

			err := g.CanActOnTicket(ctx, actor, ref.ID, ref, audit.EntityTicketStatus)
			Expect(appErr(err).StatusCode).To(Equal(403))
			Expect(auditor.records).To(HaveLen(1))
			Expect(auditor.records[0].EntityType).To(Equal(audit.EntityTicketStatus))
		})

		It("lets admins through regardless of team", func() {
			actor.TeamIDs = nil
			actor.Permissions = []string{auth.PermAdmin}

			Expect(g.CanActOnTicket(ctx, actor, ref.ID, ref, audit.EntityTicketStatus)).To(Succeed())
			Expect(auditor.records).To(BeEmpty())
		})

		It("denies when the ticket has no team and the actor is not admin", func() {
			ref.CurrentTeamID = nil

			err := g.CanActOnTicket(ctx, actor, ref.ID, ref, audit.EntityTicketStatus)
			Expect(appErr(err).StatusCode).To(Equal(403))
		})

		It("writes exactly one entry per denial even though multiple checks would fail", func() {
			ref.Sensitivity = guard.SensitivityConfidential
			resolver.inScope = false
			actor.TeamIDs = nil

			_ = g.CanActOnTicket(ctx, actor, ref.ID, ref, audit.EntityTicketStatus)
			Expect(auditor.records).To(HaveLen(1))
		})
	})

	Describe("Visible", func() {
		It("filters without writing audit entries", func() {
			ref.Sensitivity = guard.SensitivityConfidential
			Expect(g.Visible(actor, ref)).To(BeFalse())
			Expect(auditor.records).To(BeEmpty())
		})

		It("accepts in-scope regular tickets", func() {
			Expect(g.Visible(actor, ref)).To(BeTrue())
		})
	})

	Describe("RequireAgent", func() {
		It("rejects users without teams or agent capability", func() {
			actor.TeamIDs = nil
			err := g.RequireAgent(actor)
			Expect(appErr(err).StatusCode).To(Equal(403))
			Expect(auditor.records).To(BeEmpty())
		})

		It("accepts team members", func() {
			Expect(g.RequireAgent(actor)).To(Succeed())
		})
	})
})
