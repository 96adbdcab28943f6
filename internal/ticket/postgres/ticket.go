package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/satriajat/helpdesk-management/internal/guard"
	"github.com/satriajat/helpdesk-management/internal/ticket"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(t *ticket.Ticket) error {
	return r.db.Create(t).Error
}

func (r *Repository) GetByID(id int64) (*ticket.Ticket, error) {
	var t ticket.Ticket
	err := r.db.First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByOrgPathPrefix joins through org_units so scope filtering happens in
// the query rather than over loaded rows.
func (r *Repository) ListByOrgPathPrefix(prefix string, includeConfidential bool, limit int) ([]*ticket.Ticket, error) {
	q := r.scopedQuery(prefix, includeConfidential)
	var tickets []*ticket.Ticket
	err := q.Order("tickets.created_at DESC").Limit(limit).Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *Repository) ListForTeams(prefix string, teamIDs []int64, includeConfidential bool, limit int) ([]*ticket.Ticket, error) {
	if len(teamIDs) == 0 {
		return []*ticket.Ticket{}, nil
	}
	q := r.scopedQuery(prefix, includeConfidential).
		Where("tickets.current_team_id IN ?", teamIDs).
		Where("tickets.status <> ?", ticket.StatusClosed)
	var tickets []*ticket.Ticket
	err := q.Order("tickets.created_at").Limit(limit).Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *Repository) scopedQuery(prefix string, includeConfidential bool) *gorm.DB {
	q := r.db.Model(&ticket.Ticket{}).
		Joins("JOIN org_units ON org_units.id = tickets.owner_org_unit_id").
		Where("org_units.path = ? OR org_units.path LIKE ?", prefix, prefix+"/%")
	if !includeConfidential {
		q = q.Where("tickets.sensitivity_level <> ?", guard.SensitivityConfidential)
	}
	return q
}

func (r *Repository) UpdateAssignment(id int64, assigneeID, teamID *int64) error {
	return r.db.Model(&ticket.Ticket{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"assignee_id":     assigneeID,
			"current_team_id": teamID,
			"updated_at":      time.Now().UTC(),
		}).Error
}

// UpdateStatusCAS writes the new status only if the row still carries the
// status the caller read. Zero rows affected means somebody else won.
func (r *Repository) UpdateStatusCAS(id int64, update ticket.StatusUpdate) (bool, error) {
	values := map[string]interface{}{
		"status":     update.To,
		"updated_at": time.Now().UTC(),
	}
	if update.ClosedAt != nil {
		values["closed_at"] = *update.ClosedAt
	}
	if update.ClearClosed {
		values["closed_at"] = nil
	}

	res := r.db.Model(&ticket.Ticket{}).
		Where("id = ? AND status = ?", id, update.From).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) CreateMessage(m *ticket.Message) error {
	return r.db.Create(m).Error
}

func (r *Repository) MessagesForTicket(ticketID int64, publicOnly bool) ([]*ticket.Message, error) {
	q := r.db.Where("ticket_id = ?", ticketID)
	if publicOnly {
		q = q.Where("type = ?", ticket.MessagePublic)
	}
	var messages []*ticket.Message
	if err := q.Order("created_at").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
