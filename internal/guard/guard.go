package guard

import (
	"context"
	"log/slog"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/audit"
	"github.com/satriajat/helpdesk-management/internal/auth"
	"github.com/satriajat/helpdesk-management/internal/obs"
)

// Sensitivity levels shared by tickets and attachments.
const (
	SensitivityRegular      = "REGULAR"
	SensitivityConfidential = "CONFIDENTIAL"
	SensitivityRestricted   = "RESTRICTED"
)

// TicketRef is the slice of a ticket the guard needs. Callers build it from
// their own model so the guard depends on no domain package.
type TicketRef struct {
	ID             int64
	OwnerOrgUnitID *int64
	CurrentTeamID  *int64
	Sensitivity    string
}

// ScopeResolver is the org-tree question the guard asks.
type ScopeResolver interface {
	IsInScope(viewerUnitID *int64, scopeLevel string, targetUnitID *int64) (bool, error)
}

// Guard runs the fixed access-check sequence for ticket operations:
// existence, confidentiality, org scope, team membership. The order never
// varies and evaluation short-circuits on the first failure. Every denial
// writes exactly one PERMISSION_DENIED audit entry, tagged with the check
// that failed, before the error is returned. Successful checks write
// nothing; the mutation that follows audits itself.
type Guard struct {
	scope  ScopeResolver
	audit  audit.Recorder
	logger *slog.Logger
}

func New(scope ScopeResolver, auditor audit.Recorder, logger *slog.Logger) *Guard {
	return &Guard{scope: scope, audit: auditor, logger: logger}
}

// CanViewTicket runs checks 1-3. deniedEntity tags the audit entry for the
// action-level check so the ledger shows which operation was refused.
//
// Confidentiality and scope failures on a ticket fetched by id return the
// same 404 a missing ticket would: a 403 here would confirm the ticket
// exists to someone who must not see it.
func (g *Guard) CanViewTicket(ctx context.Context, actor *auth.Actor, ticketID int64, ref *TicketRef, deniedEntity string) error {
	if ref == nil {
		g.deny(ctx, actor, deniedEntity, ticketID, "not_found")
		return internal.ErrTicketNotFound
	}

	if ref.Sensitivity == SensitivityConfidential && !actor.HasPermission(auth.PermConfidentialView) {
		g.deny(ctx, actor, audit.EntityTicketConfidential, ref.ID, "confidential")
		return internal.ErrTicketNotFound
	}

	inScope, err := g.scope.IsInScope(actor.OrgUnitID, actor.ScopeLevel, ref.OwnerOrgUnitID)
	if err != nil {
		return internal.NewInternalError("scope resolution failed", err)
	}
	if !inScope {
		g.deny(ctx, actor, audit.EntityOrgUnitAccess, ref.ID, "out_of_scope")
		return internal.ErrTicketNotFound
	}

	return nil
}

// CanActOnTicket runs the full chain: view checks plus team membership.
// Team denial is a 403: the actor already passed the visibility checks, so
// the ticket's existence is not a secret to them.
func (g *Guard) CanActOnTicket(ctx context.Context, actor *auth.Actor, ticketID int64, ref *TicketRef, deniedEntity string) error {
	if err := g.CanViewTicket(ctx, actor, ticketID, ref, deniedEntity); err != nil {
		return err
	}

	if actor.IsAdmin() {
		return nil
	}
	if ref.CurrentTeamID != nil && actor.MemberOf(*ref.CurrentTeamID) {
		return nil
	}

	g.deny(ctx, actor, deniedEntity, ref.ID, "team")
	return internal.ErrTeamAccessDenied
}

// Visible answers the same question as CanViewTicket for list filtering,
// without the denial side effects. Dropping a candidate from a listing is
// not a refused request, so it does not belong in the ledger.
func (g *Guard) Visible(actor *auth.Actor, ref *TicketRef) bool {
	if ref == nil {
		return false
	}
	if ref.Sensitivity == SensitivityConfidential && !actor.HasPermission(auth.PermConfidentialView) {
		return false
	}
	inScope, err := g.scope.IsInScope(actor.OrgUnitID, actor.ScopeLevel, ref.OwnerOrgUnitID)
	if err != nil {
		g.logger.Error("scope resolution failed during filtering", "ticket_id", ref.ID, "error", err)
		return false
	}
	return inScope
}

// RequireAgent gates agent-only endpoints. The gate runs before any ticket
// is loaded, so there is nothing to enumerate and 403 is safe.
func (g *Guard) RequireAgent(actor *auth.Actor) error {
	if actor.IsAgent() {
		return nil
	}
	return internal.ErrAgentAccessRequired
}

// DenyAction records a business-rule denial (check 5) with the same shape
// the fixed chain uses. The caller returns its own error after this.
func (g *Guard) DenyAction(ctx context.Context, actor *auth.Actor, entityType string, ticketID int64, reason string) {
	g.deny(ctx, actor, entityType, ticketID, reason)
}

func (g *Guard) deny(ctx context.Context, actor *auth.Actor, entityType string, entityID int64, reason string) {
	obs.PermissionDenials.WithLabelValues(entityType).Inc()

	var actorID *int64
	if actor != nil {
		actorID = &actor.ID
	}
	// Append logs and counts its own failures; the denial stands either way.
	_ = g.audit.Append(ctx, audit.Record{
		ActorID:    actorID,
		Action:     audit.ActionPermissionDenied,
		EntityType: entityType,
		EntityID:   &entityID,
		Meta:       map[string]interface{}{"reason": reason},
	})
}
