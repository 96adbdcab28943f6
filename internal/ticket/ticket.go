package ticket

import "time"

// Ticket statuses.
const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusWaiting    = "WAITING"
	StatusResolved   = "RESOLVED"
	StatusClosed     = "CLOSED"
)

// Priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MED"
	PriorityHigh   = "HIGH"
)

// Message visibility. Portal users only ever see PUBLIC messages; INTERNAL
// is agent-to-agent.
const (
	MessagePublic   = "PUBLIC"
	MessageInternal = "INTERNAL"
)

// transitions is the full state machine. Absence means rejection, including
// the no-op transition to the current status. CLOSED is terminal.
var transitions = map[string][]string{
	StatusOpen:       {StatusInProgress, StatusWaiting},
	StatusInProgress: {StatusWaiting, StatusResolved},
	StatusWaiting:    {StatusInProgress, StatusResolved},
	StatusResolved:   {StatusClosed, StatusInProgress},
	StatusClosed:     {},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Ticket is the lifecycle aggregate. OwnerOrgUnitID anchors scope checks:
// visibility follows the requester's unit, not the assigned team.
type Ticket struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedBy        int64      `gorm:"column:created_by;not null" json:"created_by"`
	OwnerOrgUnitID   *int64     `gorm:"column:owner_org_unit_id;index" json:"owner_org_unit_id"`
	CurrentTeamID    *int64     `gorm:"column:current_team_id;index" json:"current_team_id"`
	AssigneeID       *int64     `gorm:"column:assignee_id" json:"assignee_id"`
	Title            string     `gorm:"column:title;not null" json:"title"`
	Description      string     `gorm:"column:description" json:"description"`
	Category         string     `gorm:"column:category" json:"category"`
	Priority         string     `gorm:"column:priority;not null;default:MED" json:"priority"`
	SensitivityLevel string     `gorm:"column:sensitivity_level;not null;default:REGULAR" json:"sensitivity_level"`
	Status           string     `gorm:"column:status;not null;default:OPEN" json:"status"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
	ClosedAt         *time.Time `gorm:"column:closed_at" json:"closed_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

type Message struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID  int64     `gorm:"column:ticket_id;not null;index" json:"ticket_id"`
	AuthorID  int64     `gorm:"column:author_id;not null" json:"author_id"`
	Type      string    `gorm:"column:type;not null;default:PUBLIC" json:"type"`
	Body      string    `gorm:"column:body;not null" json:"body"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Message) TableName() string {
	return "ticket_messages"
}

// StatusUpdate describes the committed status write: which columns change
// besides status itself.
type StatusUpdate struct {
	From        string
	To          string
	ClosedAt    *time.Time
	ClearClosed bool
}

type Repository interface {
	Create(t *Ticket) error
	GetByID(id int64) (*Ticket, error)
	ListByOrgPathPrefix(prefix string, includeConfidential bool, limit int) ([]*Ticket, error)
	ListForTeams(prefix string, teamIDs []int64, includeConfidential bool, limit int) ([]*Ticket, error)
	UpdateAssignment(id int64, assigneeID, teamID *int64) error
	UpdateStatusCAS(id int64, update StatusUpdate) (bool, error)
	CreateMessage(m *Message) error
	MessagesForTicket(ticketID int64, publicOnly bool) ([]*Message, error)
}
