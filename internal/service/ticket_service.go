package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	now     func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Now        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	ExpiresAt   *time.Time
	AssignedTo  *int64
}

// TicketUpdateInput carries a partial update. Nil fields stay unchanged.
type TicketUpdateInput struct {
	Title         *string
	Description   *string
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	AssignedTo    *int64
	ClearAssignee bool
	ExpiresAt     *time.Time
	ClearExpiry   bool
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	AssignedTo *int64
	Expired    *bool
	SearchTerm string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{tickets: deps.TicketRepo, users: deps.UserRepo, now: now}
}

// CreateTicket opens a ticket on behalf of actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	if input.AssignedTo != nil {
		if !actor.HasRole(domain.RoleAdmin, domain.RoleITAgent) {
			return nil, apperrors.NewForbidden("only staff can assign tickets")
		}
		if err := s.checkAssignee(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		ExpiresAt:   utcPtr(input.ExpiresAt),
		AssignedTo:  input.AssignedTo,
		CreatedBy:   actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets visible to actor. Staff only see their own.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
		}
	}
	repoFilter := repository.TicketFilter{
		AssignedTo: filter.AssignedTo,
		Statuses:   filter.Statuses,
		Expired:    filter.Expired,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		repoFilter.SearchTerm = &term
	}
	if !isStaff(actor) {
		repoFilter.CreatedBy = &actor.ID
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket fetches a ticket the actor may see.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !isStaff(actor) && ticket.CreatedBy != actor.ID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

// UpdateTicket applies a partial update. The expiry flags belong to the
// sweep; the repository clears them only when the stored deadline changes.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	staff := isStaff(actor)

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title is required", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.Status != nil {
		if !staff {
			return nil, apperrors.NewForbidden("only staff can change status")
		}
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		ticket.Status = *input.Status
	}
	if input.AssignedTo != nil || input.ClearAssignee {
		if !staff {
			return nil, apperrors.NewForbidden("only staff can assign tickets")
		}
		if input.ClearAssignee {
			ticket.AssignedTo = nil
		} else {
			if err := s.checkAssignee(ctx, *input.AssignedTo); err != nil {
				return nil, err
			}
			ticket.AssignedTo = input.AssignedTo
		}
	}
	if input.ExpiresAt != nil || input.ClearExpiry {
		if !staff {
			return nil, apperrors.NewForbidden("only staff can change deadlines")
		}
		if input.ClearExpiry {
			ticket.ExpiresAt = nil
		} else {
			ticket.ExpiresAt = utcPtr(input.ExpiresAt)
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) checkAssignee(ctx context.Context, userID int64) error {
	agent, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError("assignee not found", map[string]any{"assigned_to": userID})
		}
		return apperrors.MapError(err)
	}
	if !agent.Active || !agent.HasRole(domain.RoleAdmin, domain.RoleITAgent) {
		return apperrors.NewValidationError("assignee must be an active agent", map[string]any{"assigned_to": userID})
	}
	return nil
}

func isStaff(user *domain.User) bool {
	return user.HasRole(domain.RoleAdmin, domain.RoleITAgent)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
