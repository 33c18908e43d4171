package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RequisitionService handles stock requests and their approval flow.
type RequisitionService struct {
	requisitions repository.RequisitionRepository
	items        repository.InventoryRepository
	now          func() time.Time
}

// RequisitionDependencies bundles repositories for the requisition service.
type RequisitionDependencies struct {
	RequisitionRepo repository.RequisitionRepository
	InventoryRepo   repository.InventoryRepository
	Now             func() time.Time
}

// RequisitionListFilter describes listing filters.
type RequisitionListFilter struct {
	Status *domain.RequisitionStatus
	Limit  int
	Offset int
}

// NewRequisitionService constructs the service.
func NewRequisitionService(deps RequisitionDependencies) *RequisitionService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RequisitionService{requisitions: deps.RequisitionRepo, items: deps.InventoryRepo, now: now}
}

// Submit files a pending requisition and queues the admin alert with it.
func (s *RequisitionService) Submit(ctx context.Context, actor *domain.User, itemID int64, quantity int, reason string) (*domain.Requisition, error) {
	if quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be positive", nil)
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError("item not found", map[string]any{"item_id": itemID})
		}
		return nil, apperrors.MapError(err)
	}

	req := &domain.Requisition{
		ItemID:      item.ID,
		RequestedBy: actor.ID,
		Quantity:    quantity,
		Reason:      strings.TrimSpace(reason),
		Status:      domain.RequisitionPending,
	}
	build := func(saved domain.Requisition) (*domain.OutboxEntry, error) {
		entry, err := events.ToOutbox(events.New(events.EventRequisitionSubmitted, saved.ID, events.RequisitionSubmittedPayload{
			RequisitionID: saved.ID,
			ItemName:      item.Name,
			Quantity:      saved.Quantity,
			RequestedBy:   actor.ID,
			RequesterName: actor.Name,
		}))
		return &entry, err
	}
	if err := s.requisitions.Create(ctx, req, build); err != nil {
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

// List returns requisitions visible to actor. Non-admins see their own.
func (s *RequisitionService) List(ctx context.Context, actor *domain.User, filter RequisitionListFilter) ([]domain.Requisition, error) {
	repoFilter := repository.RequisitionFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if !actor.HasRole(domain.RoleAdmin) {
		repoFilter.RequestedBy = &actor.ID
	}
	reqs, err := s.requisitions.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reqs, nil
}

// Decide approves or rejects a pending requisition and queues the
// requester's notification with the decision.
func (s *RequisitionService) Decide(ctx context.Context, actor *domain.User, id int64, approve bool, note string) (*domain.Requisition, error) {
	current, err := s.requisitions.GetByID(ctx, id)
	if err != nil {
		return nil, requisitionError(err, id)
	}
	item, err := s.items.GetByID(ctx, current.ItemID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	status := domain.RequisitionRejected
	if approve {
		status = domain.RequisitionApproved
	}
	decision := repository.RequisitionDecision{
		Status:    status,
		DecidedBy: actor.ID,
		Note:      strings.TrimSpace(note),
		At:        s.now().UTC(),
	}
	build := func(saved domain.Requisition) (*domain.OutboxEntry, error) {
		entry, err := events.ToOutbox(events.New(events.EventRequisitionDecided, saved.ID, events.RequisitionDecidedPayload{
			RequisitionID: saved.ID,
			ItemName:      item.Name,
			Status:        saved.Status,
			RequestedBy:   saved.RequestedBy,
			Note:          saved.DecisionNote,
		}))
		return &entry, err
	}
	req, err := s.requisitions.Decide(ctx, id, decision, build)
	if err != nil {
		return nil, requisitionError(err, id)
	}
	return req, nil
}

// Fulfil hands out an approved requisition, drawing its quantity from stock.
func (s *RequisitionService) Fulfil(ctx context.Context, id int64) (*domain.Requisition, *domain.InventoryItem, error) {
	req, item, err := s.requisitions.Fulfil(ctx, id, LowStockOutbox)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, nil, apperrors.NewConflict("insufficient stock", map[string]any{"requisition_id": id})
		}
		return nil, nil, requisitionError(err, id)
	}
	return req, item, nil
}

func requisitionError(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrStateConflict):
		return apperrors.NewConflict("requisition is not in a state that allows this", map[string]any{"id": id})
	case apperrors.IsNotFound(err):
		return apperrors.NewNotFound("requisition", map[string]any{"id": id})
	default:
		return apperrors.MapError(err)
	}
}
