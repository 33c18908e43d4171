package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type requisitionRepo struct{ s *Store }

func (r *requisitionRepo) Create(_ context.Context, req *domain.Requisition, build func(domain.Requisition) (*domain.OutboxEntry, error)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[req.ItemID]; !ok {
		return pgx.ErrNoRows
	}
	draft := *req
	draft.ID = r.s.seq["requisitions"] + 1
	draft.CreatedAt = time.Now().UTC()
	draft.UpdatedAt = draft.CreatedAt

	entry, err := buildEntry(draft, build)
	if err != nil {
		return err
	}
	r.s.next("requisitions")
	*req = draft
	r.s.requisitions[req.ID] = draft
	if entry != nil {
		r.s.appendOutbox(entry)
	}
	return nil
}

func (r *requisitionRepo) GetByID(_ context.Context, id int64) (*domain.Requisition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requisitions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &req, nil
}

func (r *requisitionRepo) List(_ context.Context, filter repository.RequisitionFilter) ([]domain.Requisition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Requisition, 0)
	for _, req := range r.s.requisitions {
		if filter.RequestedBy != nil && req.RequestedBy != *filter.RequestedBy {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, filter.Limit, filter.Offset, 20), nil
}

func (r *requisitionRepo) Decide(_ context.Context, id int64, decision repository.RequisitionDecision, build func(domain.Requisition) (*domain.OutboxEntry, error)) (*domain.Requisition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requisitions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if req.Status != domain.RequisitionPending {
		return nil, repository.ErrStateConflict
	}
	req.Status = decision.Status
	req.DecidedBy = &decision.DecidedBy
	req.DecidedAt = &decision.At
	req.DecisionNote = decision.Note
	req.UpdatedAt = time.Now().UTC()

	entry, err := buildEntry(req, build)
	if err != nil {
		return nil, err
	}
	r.s.requisitions[id] = req
	if entry != nil {
		r.s.appendOutbox(entry)
	}
	return &req, nil
}

func (r *requisitionRepo) Fulfil(_ context.Context, id int64, onStock repository.OutboxFunc) (*domain.Requisition, *domain.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requisitions[id]
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}
	if req.Status != domain.RequisitionApproved {
		return nil, nil, repository.ErrStateConflict
	}
	item, err := r.s.adjustStockLocked(req.ItemID, -req.Quantity, onStock)
	if err != nil {
		return nil, nil, err
	}
	req.Status = domain.RequisitionFulfilled
	req.UpdatedAt = time.Now().UTC()
	r.s.requisitions[id] = req
	return &req, item, nil
}

func buildEntry(req domain.Requisition, build func(domain.Requisition) (*domain.OutboxEntry, error)) (*domain.OutboxEntry, error) {
	if build == nil {
		return nil, nil
	}
	return build(req)
}
