package ticket

import (
	"context"
	"log/slog"
	"time"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/audit"
	"github.com/satriajat/helpdesk-management/internal/auth"
	"github.com/satriajat/helpdesk-management/internal/core/events"
	"github.com/satriajat/helpdesk-management/internal/guard"
	"github.com/satriajat/helpdesk-management/internal/redaction"
	"github.com/satriajat/helpdesk-management/internal/team"
)

const defaultListLimit = 200

// GuardAPI is the slice of the access guard this service uses.
type GuardAPI interface {
	CanViewTicket(ctx context.Context, actor *auth.Actor, ticketID int64, ref *guard.TicketRef, deniedEntity string) error
	CanActOnTicket(ctx context.Context, actor *auth.Actor, ticketID int64, ref *guard.TicketRef, deniedEntity string) error
	RequireAgent(actor *auth.Actor) error
	DenyAction(ctx context.Context, actor *auth.Actor, entityType string, ticketID int64, reason string)
}

// ScopeRootResolver turns an actor into the path prefix their scope grants.
type ScopeRootResolver interface {
	ScopeRootPath(viewerUnitID int64, scopeLevel string) (string, error)
}

// AttachmentSource supplies attachment metadata for exports without coupling
// this package to the attachment lifecycle.
type AttachmentSource interface {
	ActiveMetaForTicket(ticketID int64) ([]redaction.AttachmentMeta, error)
}

type Service struct {
	repo        Repository
	guard       GuardAPI
	scope       ScopeRootResolver
	directory   team.Directory
	attachments AttachmentSource
	auditor     audit.Recorder
	bus         *events.EventBus
	logger      *slog.Logger
}

func NewService(
	repo Repository,
	g GuardAPI,
	scope ScopeRootResolver,
	directory team.Directory,
	attachments AttachmentSource,
	auditor audit.Recorder,
	bus *events.EventBus,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		guard:       g,
		scope:       scope,
		directory:   directory,
		attachments: attachments,
		auditor:     auditor,
		bus:         bus,
		logger:      logger,
	}
}

func ref(t *Ticket) *guard.TicketRef {
	if t == nil {
		return nil
	}
	return &guard.TicketRef{
		ID:             t.ID,
		OwnerOrgUnitID: t.OwnerOrgUnitID,
		CurrentTeamID:  t.CurrentTeamID,
		Sensitivity:    t.SensitivityLevel,
	}
}

// Create opens a ticket anchored at the creator's org unit.
func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateTicketDTO) (*Ticket, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Ticket{
		CreatedBy:        actor.ID,
		OwnerOrgUnitID:   actor.OrgUnitID,
		Title:            dto.Title,
		Description:      dto.Description,
		Category:         dto.Category,
		Priority:         dto.Priority,
		SensitivityLevel: dto.SensitivityLevel,
		Status:           StatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(t); err != nil {
		s.logger.Error("failed to create ticket", "error", err)
		return nil, internal.NewInternalError("failed to create ticket", err)
	}

	_ = s.auditor.Append(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionTicketCreated,
		EntityType: audit.EntityTicket,
		EntityID:   &t.ID,
		Diff: map[string]interface{}{
			"status":      map[string]interface{}{"from": nil, "to": t.Status},
			"priority":    t.Priority,
			"sensitivity": t.SensitivityLevel,
		},
	})
	return t, nil
}

// GetByID is the portal read: guarded, with PUBLIC messages only.
func (s *Service) GetByID(ctx context.Context, actor *auth.Actor, id int64) (*TicketDetail, error) {
	t, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanViewTicket(ctx, actor, id, ref(t), audit.EntityTicket); err != nil {
		return nil, err
	}

	messages, err := s.repo.MessagesForTicket(id, !actor.IsAgent())
	if err != nil {
		return nil, internal.NewInternalError("failed to load ticket messages", err)
	}
	return &TicketDetail{Ticket: t, Messages: messages}, nil
}

// ListInScope returns tickets inside the actor's scope subtree. Confidential
// tickets are filtered out in the query unless the actor holds the view
// permission; dropping rows from a listing is not a denial, so nothing is
// audited here.
func (s *Service) ListInScope(ctx context.Context, actor *auth.Actor) ([]*Ticket, error) {
	if actor.OrgUnitID == nil {
		return []*Ticket{}, nil
	}
	prefix, err := s.scope.ScopeRootPath(*actor.OrgUnitID, actor.ScopeLevel)
	if err != nil {
		return nil, internal.NewInternalError("scope resolution failed", err)
	}
	if prefix == "" {
		return []*Ticket{}, nil
	}
	return s.repo.ListByOrgPathPrefix(prefix, actor.HasPermission(auth.PermConfidentialView), defaultListLimit)
}

// AgentQueues returns the actor's team workload restricted to their scope.
func (s *Service) AgentQueues(ctx context.Context, actor *auth.Actor) ([]*Ticket, error) {
	if err := s.guard.RequireAgent(actor); err != nil {
		return nil, err
	}
	if actor.OrgUnitID == nil || len(actor.TeamIDs) == 0 {
		return []*Ticket{}, nil
	}
	prefix, err := s.scope.ScopeRootPath(*actor.OrgUnitID, actor.ScopeLevel)
	if err != nil {
		return nil, internal.NewInternalError("scope resolution failed", err)
	}
	return s.repo.ListForTeams(prefix, actor.TeamIDs, actor.HasPermission(auth.PermConfidentialView), defaultListLimit)
}

// Assign sets the assignee and optionally moves the ticket to another team.
// Self-assignment is free for team members; assigning someone else or moving
// teams needs admin or destination-team membership.
func (s *Service) Assign(ctx context.Context, actor *auth.Actor, ticketID int64, dto AssignTicketDTO) (*Ticket, error) {
	t, err := s.load(ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanActOnTicket(ctx, actor, ticketID, ref(t), audit.EntityTicketAssign); err != nil {
		return nil, err
	}

	newAssignee := dto.AssigneeID
	if newAssignee == nil {
		self := actor.ID
		newAssignee = &self
	}

	newTeam := t.CurrentTeamID
	if dto.TeamID != nil {
		newTeam = dto.TeamID
		if !actor.IsAdmin() && !actor.MemberOf(*dto.TeamID) {
			s.guard.DenyAction(ctx, actor, audit.EntityTicketAssign, ticketID, "team_transfer")
			return nil, internal.ErrTeamAccessDenied
		}
	}

	if *newAssignee != actor.ID && !actor.IsAdmin() {
		s.guard.DenyAction(ctx, actor, audit.EntityTicketAssign, ticketID, "assign_other")
		return nil, internal.NewForbiddenError("only admins may assign other users", internal.ErrCodeTeamAccessDenied)
	}

	exists, err := s.directory.UserExists(*newAssignee)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up assignee", err)
	}
	if !exists {
		return nil, internal.NewValidationError("assignee not found", internal.ErrCodeAssigneeNotFound)
	}
	if newTeam != nil {
		member, err := s.directory.IsMember(*newTeam, *newAssignee)
		if err != nil {
			return nil, internal.NewInternalError("failed to check team membership", err)
		}
		if !member {
			return nil, internal.NewValidationError("assignee is not a member of the destination team", internal.ErrCodeAssigneeNotInTeam)
		}
	}

	prevAssignee := t.AssigneeID
	prevTeam := t.CurrentTeamID
	if err := s.repo.UpdateAssignment(ticketID, newAssignee, newTeam); err != nil {
		return nil, internal.NewInternalError("failed to assign ticket", err)
	}

	updated, err := s.load(ticketID)
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Append(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionTicketAssigned,
		EntityType: audit.EntityTicketAssign,
		EntityID:   &ticketID,
		Diff: map[string]interface{}{
			"assignee_id": map[string]interface{}{"from": prevAssignee, "to": updated.AssigneeID},
			"team_id":     map[string]interface{}{"from": prevTeam, "to": updated.CurrentTeamID},
		},
	})
	return updated, nil
}

// ChangeStatus moves the ticket through the state machine with an optimistic
// write: the UPDATE is conditioned on the status the actor saw, and a lost
// race surfaces as 409 rather than a silently rewritten row. The audit diff
// reflects the committed row, re-read after the write.
func (s *Service) ChangeStatus(ctx context.Context, actor *auth.Actor, ticketID int64, dto ChangeStatusDTO) (*Ticket, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.load(ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanActOnTicket(ctx, actor, ticketID, ref(t), audit.EntityTicketStatus); err != nil {
		return nil, err
	}

	from := t.Status
	to := dto.Status
	if !CanTransition(from, to) {
		return nil, internal.NewValidationError("invalid status transition "+from+" -> "+to, internal.ErrCodeInvalidTransition)
	}

	update := StatusUpdate{From: from, To: to}
	if to == StatusClosed {
		now := time.Now().UTC()
		update.ClosedAt = &now
	}
	if from == StatusResolved && to == StatusInProgress {
		update.ClearClosed = true
	}

	ok, err := s.repo.UpdateStatusCAS(ticketID, update)
	if err != nil {
		return nil, internal.NewInternalError("failed to update ticket status", err)
	}
	if !ok {
		return nil, internal.ErrStatusConflict
	}

	prevClosedAt := t.ClosedAt
	updated, err := s.load(ticketID)
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Append(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionTicketStatusChanged,
		EntityType: audit.EntityTicketStatus,
		EntityID:   &ticketID,
		Diff: map[string]interface{}{
			"status":    map[string]interface{}{"from": from, "to": updated.Status},
			"closed_at": map[string]interface{}{"from": prevClosedAt, "to": updated.ClosedAt},
		},
	})

	if updated.Status == StatusClosed {
		if err := s.bus.PublishSync(ctx, events.NewTicketClosedEvent(ticketID, actor.ID, updated.ClosedAt)); err != nil {
			// Retention assignment failed; the closure itself stands and the
			// sweep picks the ticket up on the next pass.
			s.logger.Error("ticket.closed handler failed", "ticket_id", ticketID, "error", err)
		}
	}
	if from == StatusResolved && to == StatusInProgress {
		_ = s.bus.PublishSync(ctx, events.NewTicketReopenedEvent(ticketID, actor.ID))
	}

	return updated, nil
}

// PostMessage adds a message through the full guard chain. Agents only.
func (s *Service) PostMessage(ctx context.Context, actor *auth.Actor, ticketID int64, dto PostMessageDTO) (*Message, error) {
	if err := s.guard.RequireAgent(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	t, err := s.load(ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanActOnTicket(ctx, actor, ticketID, ref(t), audit.EntityTicketMessage); err != nil {
		return nil, err
	}

	m := &Message{
		TicketID:  ticketID,
		AuthorID:  actor.ID,
		Type:      dto.Type,
		Body:      dto.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(m); err != nil {
		return nil, internal.NewInternalError("failed to post message", err)
	}

	_ = s.auditor.Append(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionTicketMessagePosted,
		EntityType: audit.EntityTicketMessage,
		EntityID:   &ticketID,
		Diff: map[string]interface{}{
			"message_id": m.ID,
			"type":       m.Type,
		},
	})
	return m, nil
}

// Export assembles the full ticket (messages plus active attachment
// metadata), runs it through redaction and records the export in the ledger.
func (s *Service) Export(ctx context.Context, actor *auth.Actor, ticketID int64) (*Export, error) {
	t, err := s.load(ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanViewTicket(ctx, actor, ticketID, ref(t), audit.EntityTicketExport); err != nil {
		return nil, err
	}

	messages, err := s.repo.MessagesForTicket(ticketID, !actor.IsAgent())
	if err != nil {
		return nil, internal.NewInternalError("failed to load ticket messages", err)
	}
	attachments, err := s.attachments.ActiveMetaForTicket(ticketID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load attachments", err)
	}

	payload := redaction.ExportPayload{
		TicketID:         t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Priority:         t.Priority,
		Status:           t.Status,
		SensitivityLevel: t.SensitivityLevel,
		CreatedAt:        t.CreatedAt,
		ClosedAt:         t.ClosedAt,
		Attachments:      attachments,
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, redaction.MessageMeta{
			ID:        m.ID,
			AuthorID:  m.AuthorID,
			Type:      m.Type,
			Body:      m.Body,
			CreatedAt: m.CreatedAt,
		})
	}

	hasExportPerm := actor.HasPermission(auth.PermExportConfidential)
	redacted := redaction.RedactTicketExport(payload, hasExportPerm)

	export := &Export{
		Payload:         redacted,
		ExportedAt:      time.Now().UTC(),
		MessageCount:    len(redacted.Messages),
		AttachmentCount: len(redacted.Attachments),
	}

	_ = s.auditor.Append(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionTicketExported,
		EntityType: audit.EntityTicketExport,
		EntityID:   &ticketID,
		Diff: map[string]interface{}{
			"message_count":    export.MessageCount,
			"attachment_count": export.AttachmentCount,
			"redacted":         !hasExportPerm && t.SensitivityLevel != guard.SensitivityRegular,
		},
	})
	return export, nil
}

// load fetches the ticket; a missing row comes back as nil so the guard can
// treat existence as the first check of its chain.
func (s *Service) load(id int64) (*Ticket, error) {
	t, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load ticket", err)
	}
	return t, nil
}
