package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[n.RecipientID]; !ok {
		return pgx.ErrNoRows
	}
	n.ID = r.s.next("notifications")
	n.CreatedAt = time.Now().UTC()
	n.ReadAt = nil
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) ListByRecipient(_ context.Context, recipientID int64, filter repository.NotificationFilter) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.s.recipientNotifications(recipientID, filter.UnreadOnly)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, filter.Limit, filter.Offset, 20), nil
}

func (r *notificationRepo) CountUnread(_ context.Context, recipientID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.recipientNotifications(recipientID, true))), nil
}

func (r *notificationRepo) MarkRead(_ context.Context, recipientID, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return pgx.ErrNoRows
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
		r.s.notifications[id] = n
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, recipientID int64, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var changed int64
	for id, n := range r.s.notifications {
		if n.RecipientID != recipientID || n.ReadAt != nil {
			continue
		}
		n.ReadAt = &at
		r.s.notifications[id] = n
		changed++
	}
	return changed, nil
}

func (s *Store) recipientNotifications(recipientID int64, unreadOnly bool) []domain.Notification {
	out := make([]domain.Notification, 0)
	for _, n := range s.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
