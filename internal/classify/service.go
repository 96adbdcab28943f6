package classify

import (
	"context"
	"log/slog"

	"github.com/satriajat/helpdesk-management/internal"
	"github.com/satriajat/helpdesk-management/internal/audit"
	"github.com/satriajat/helpdesk-management/internal/auth"
	"github.com/satriajat/helpdesk-management/internal/guard"
	"github.com/satriajat/helpdesk-management/internal/ticket"
)

const searchTopK = 20

type GuardAPI interface {
	CanViewTicket(ctx context.Context, actor *auth.Actor, ticketID int64, ref *guard.TicketRef, deniedEntity string) error
	RequireAgent(actor *auth.Actor) error
	Visible(actor *auth.Actor, ref *guard.TicketRef) bool
}

type Service struct {
	tickets   ticket.Repository
	guard     GuardAPI
	retriever Retriever
	auditor   audit.Recorder
	logger    *slog.Logger
}

func NewService(tickets ticket.Repository, g GuardAPI, retriever Retriever, auditor audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		tickets:   tickets,
		guard:     g,
		retriever: retriever,
		auditor:   auditor,
		logger:    logger,
	}
}

// ClassifyTicket suggests category and priority for a ticket the agent can
// see. The suggestion is audited so later routing decisions can be traced
// back to what the classifier said.
func (s *Service) ClassifyTicket(ctx context.Context, actor *auth.Actor, ticketID int64) (*Result, error) {
	if err := s.guard.RequireAgent(actor); err != nil {
		return nil, err
	}

	t, err := s.tickets.GetByID(ticketID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load ticket", err)
	}
	var ref *guard.TicketRef
	if t != nil {
		ref = &guard.TicketRef{
			ID:             t.ID,
			OwnerOrgUnitID: t.OwnerOrgUnitID,
			CurrentTeamID:  t.CurrentTeamID,
			Sensitivity:    t.SensitivityLevel,
		}
	}
	if err := s.guard.CanViewTicket(ctx, actor, ticketID, ref, audit.EntityTicketClassify); err != nil {
		return nil, err
	}

	result := Classify(t.Title, t.Description)

	_ = s.auditor.Append(ctx, audit.Record{
		ActorID:    &actor.ID,
		Action:     audit.ActionTicketClassified,
		EntityType: audit.EntityTicketClassify,
		EntityID:   &ticketID,
		Diff: map[string]interface{}{
			"category":   result.Category,
			"priority":   result.Priority,
			"confidence": result.Confidence,
		},
	})
	return &result, nil
}

// Search runs the retriever and filters the candidates down to tickets the
// actor may see. Filtering uses the guard's silent visibility predicate:
// a retrieval miss is not a refused request, so nothing lands in the ledger.
func (s *Service) Search(ctx context.Context, actor *auth.Actor, query string) ([]*ticket.Ticket, error) {
	if err := s.guard.RequireAgent(actor); err != nil {
		return nil, err
	}

	ids, err := s.retriever.Candidates(ctx, MaskPII(query), searchTopK)
	if err != nil {
		return nil, internal.NewInternalError("retrieval failed", err)
	}

	visible := make([]*ticket.Ticket, 0, len(ids))
	for _, id := range ids {
		t, err := s.tickets.GetByID(id)
		if err != nil {
			s.logger.Error("failed to load candidate ticket", "ticket_id", id, "error", err)
			continue
		}
		if t == nil {
			continue
		}
		ref := &guard.TicketRef{
			ID:             t.ID,
			OwnerOrgUnitID: t.OwnerOrgUnitID,
			CurrentTeamID:  t.CurrentTeamID,
			Sensitivity:    t.SensitivityLevel,
		}
		if s.guard.Visible(actor, ref) {
			visible = append(visible, t)
		}
	}
	return visible, nil
}
