package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	ExpiresAt   *time.Time            `json:"expires_at"`
	AssignedTo  *int64                `json:"assigned_to"`
}

// UpdateTicketRequest payload. Absent fields are left alone; the clear flags
// remove the assignee or the deadline.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	AssignedTo  *int64                 `json:"assigned_to"`
	Unassign    bool                   `json:"unassign"`
	ExpiresAt   *time.Time             `json:"expires_at"`
	ClearExpiry bool                   `json:"clear_expiry"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID             int64                 `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	ExpiresAt      *time.Time            `json:"expires_at"`
	IsExpired      bool                  `json:"is_expired"`
	ExpiryWarnedAt *time.Time            `json:"expiry_warned_at,omitempty"`
	AssignedTo     *int64                `json:"assigned_to"`
	CreatedBy      int64                 `json:"created_by"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		ExpiresAt:      t.ExpiresAt,
		IsExpired:      t.IsExpired,
		ExpiryWarnedAt: t.ExpiryWarnedAt,
		AssignedTo:     t.AssignedTo,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
