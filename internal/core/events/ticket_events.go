package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTicketClosed   = "ticket.closed"
	EventTypeTicketReopened = "ticket.reopened"
)

// TicketClosedEvent fires after a status change commits a ticket into the
// terminal-bound CLOSED state. Subscribers start attachment retention.
type TicketClosedEvent struct {
	BaseEvent
	TicketID int64      `json:"ticket_id"`
	ActorID  int64      `json:"actor_id"`
	ClosedAt *time.Time `json:"closed_at"`
}

func NewTicketClosedEvent(ticketID, actorID int64, closedAt *time.Time) *TicketClosedEvent {
	return &TicketClosedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTicketClosed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"ticket_id": ticketID,
				"actor_id":  actorID,
			},
		},
		TicketID: ticketID,
		ActorID:  actorID,
		ClosedAt: closedAt,
	}
}

// TicketReopenedEvent fires when a resolved ticket goes back into progress.
type TicketReopenedEvent struct {
	BaseEvent
	TicketID int64 `json:"ticket_id"`
	ActorID  int64 `json:"actor_id"`
}

func NewTicketReopenedEvent(ticketID, actorID int64) *TicketReopenedEvent {
	return &TicketReopenedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTicketReopened,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"ticket_id": ticketID,
				"actor_id":  actorID,
			},
		},
		TicketID: ticketID,
		ActorID:  actorID,
	}
}
