package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	ticket.ID = r.s.next("tickets")
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

// InsertTicket stores a ticket as given, keeping a caller-chosen id. It exists for
// fixtures that need specific ids.
func (s *Store) InsertTicket(ticket domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == 0 {
		ticket.ID = s.next("tickets")
	} else if ticket.ID > s.seq["tickets"] {
		s.seq["tickets"] = ticket.ID
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
		ticket.UpdatedAt = ticket.CreatedAt
	}
	s.tickets[ticket.ID] = ticket
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if sameDeadline(stored.ExpiresAt, ticket.ExpiresAt) {
		ticket.IsExpired, ticket.ExpiryWarnedAt = stored.IsExpired, stored.ExpiryWarnedAt
	} else {
		ticket.IsExpired, ticket.ExpiryWarnedAt = false, nil
	}
	ticket.UpdatedAt = time.Now().UTC()
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.s.filterTickets(func(t domain.Ticket) bool {
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			return false
		}
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			return false
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			return false
		}
		if filter.Expired != nil && t.IsExpired != *filter.Expired {
			return false
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if term != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), term) {
				return false
			}
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return page(out, filter.Limit, filter.Offset, 20), nil
}

func (r *ticketRepo) ListOverdue(_ context.Context, now time.Time) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.s.filterTickets(func(t domain.Ticket) bool {
		return t.ExpiresAt != nil && t.ExpiresAt.Before(now) && !t.IsExpired && t.Active()
	})
	sortByExpiry(out)
	return out, nil
}

func (r *ticketRepo) ListExpiringSoon(_ context.Context, now, until time.Time) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.s.filterTickets(func(t domain.Ticket) bool {
		if t.ExpiresAt == nil || t.ExpiryWarnedAt != nil || !t.Active() {
			return false
		}
		return !t.ExpiresAt.Before(now) && !t.ExpiresAt.After(until)
	})
	sortByExpiry(out)
	return out, nil
}

func (r *ticketRepo) MarkExpired(_ context.Context, id int64, entry *domain.OutboxEntry) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.IsExpired {
		return false, nil
	}
	ticket.IsExpired = true
	ticket.UpdatedAt = time.Now().UTC()
	r.s.tickets[id] = ticket
	r.s.appendOutbox(entry)
	return true, nil
}

func (r *ticketRepo) MarkExpiryWarned(_ context.Context, id int64, at time.Time, entry *domain.OutboxEntry) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.ExpiryWarnedAt != nil {
		return false, nil
	}
	ticket.ExpiryWarnedAt = &at
	ticket.UpdatedAt = time.Now().UTC()
	r.s.tickets[id] = ticket
	r.s.appendOutbox(entry)
	return true, nil
}

func (s *Store) filterTickets(keep func(domain.Ticket) bool) []domain.Ticket {
	out := make([]domain.Ticket, 0)
	for _, ticket := range s.tickets {
		if keep(ticket) {
			out = append(out, ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sameDeadline(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sortByExpiry(tickets []domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool { return tickets[i].ExpiresAt.Before(*tickets[j].ExpiresAt) })
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
