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

type inventoryRepo struct{ s *Store }

func (r *inventoryRepo) Create(_ context.Context, item *domain.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.items {
		if strings.EqualFold(existing.SKU, item.SKU) {
			return repository.ErrStateConflict
		}
	}
	now := time.Now().UTC()
	item.ID = r.s.next("items")
	item.CreatedAt, item.UpdatedAt = now, now
	r.s.items[item.ID] = *item
	return nil
}

func (r *inventoryRepo) GetByID(_ context.Context, id int64) (*domain.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &item, nil
}

func (r *inventoryRepo) List(_ context.Context, limit, offset int) ([]domain.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.InventoryItem, 0, len(r.s.items))
	for _, item := range r.s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset, 50), nil
}

func (r *inventoryRepo) AdjustStock(_ context.Context, id int64, delta int, onChange repository.OutboxFunc) (*domain.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.adjustStockLocked(id, delta, onChange)
}

func (s *Store) adjustStockLocked(id int64, delta int, onChange repository.OutboxFunc) (*domain.InventoryItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	before := item.Quantity
	if before+delta < 0 {
		return nil, repository.ErrInsufficientStock
	}
	item.Quantity += delta
	item.UpdatedAt = time.Now().UTC()

	var entry *domain.OutboxEntry
	if onChange != nil {
		var err error
		if entry, err = onChange(item, before); err != nil {
			return nil, err
		}
	}
	s.items[id] = item
	if entry != nil {
		s.appendOutbox(entry)
	}
	return &item, nil
}
