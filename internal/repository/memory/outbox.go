package memory

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type outboxRepo struct{ s *Store }

// Drain claims entries under the lock, then runs fn without it so handlers
// may use the other repositories.
func (r *outboxRepo) Drain(ctx context.Context, limit, maxAttempts int, fn repository.OutboxHandler) (repository.DrainResult, error) {
	var result repository.DrainResult
	claimed := r.claim(limit, maxAttempts)

	for _, idx := range claimed {
		r.s.mu.Lock()
		entry := r.s.outbox[idx]
		r.s.mu.Unlock()

		handleErr := fn(ctx, entry)

		r.s.mu.Lock()
		entry = r.s.outbox[idx]
		entry.Attempts++
		if handleErr != nil {
			msg := handleErr.Error()
			entry.LastError = &msg
			result.Failed++
		} else {
			now := time.Now().UTC()
			entry.DispatchedAt = &now
			entry.LastError = nil
			result.Dispatched++
		}
		r.s.outbox[idx] = entry
		delete(r.s.outboxClaims, entry.ID)
		r.s.mu.Unlock()
	}
	return result, nil
}

func (r *outboxRepo) claim(limit, maxAttempts int) []int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var idx []int
	for i, entry := range r.s.outbox {
		if len(idx) >= limit {
			break
		}
		if entry.DispatchedAt == nil && entry.Attempts < maxAttempts && !r.s.outboxClaims[entry.ID] {
			r.s.outboxClaims[entry.ID] = true
			idx = append(idx, i)
		}
	}
	return idx
}

func (r *outboxRepo) CountPending(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, entry := range r.s.outbox {
		if entry.DispatchedAt == nil {
			count++
		}
	}
	return count, nil
}

// OutboxEntries returns a copy of every outbox row.
func (s *Store) OutboxEntries() []domain.OutboxEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxEntry(nil), s.outbox...)
}
