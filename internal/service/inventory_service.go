package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// InventoryService manages stock levels.
type InventoryService struct {
	items repository.InventoryRepository
}

// InventoryCreateInput describes a new stock item.
type InventoryCreateInput struct {
	Name         string
	SKU          string
	Quantity     int
	ReorderLevel int
	Location     string
}

// NewInventoryService constructs the service.
func NewInventoryService(items repository.InventoryRepository) *InventoryService {
	return &InventoryService{items: items}
}

// CreateItem adds an item to the catalogue.
func (s *InventoryService) CreateItem(ctx context.Context, input InventoryCreateInput) (*domain.InventoryItem, error) {
	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	if name == "" || sku == "" {
		return nil, apperrors.NewValidationError("name and sku are required", nil)
	}
	if input.Quantity < 0 || input.ReorderLevel < 0 {
		return nil, apperrors.NewValidationError("quantity and reorder level must not be negative", nil)
	}
	item := &domain.InventoryItem{
		Name:         name,
		SKU:          sku,
		Quantity:     input.Quantity,
		ReorderLevel: input.ReorderLevel,
		Location:     strings.TrimSpace(input.Location),
	}
	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, apperrors.NewConflict("sku already exists", map[string]any{"sku": sku})
		}
		return nil, apperrors.MapError(err)
	}
	return item, nil
}

// ListItems returns a page of items.
func (s *InventoryService) ListItems(ctx context.Context, limit, offset int) ([]domain.InventoryItem, error) {
	items, err := s.items.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// GetItem fetches one item.
func (s *InventoryService) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("inventory item", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return item, nil
}

// AdjustStock changes the quantity by delta. Crossing the reorder level
// downwards queues a low-stock alert in the same transaction.
func (s *InventoryService) AdjustStock(ctx context.Context, id int64, delta int) (*domain.InventoryItem, error) {
	if delta == 0 {
		return nil, apperrors.NewValidationError("delta must not be zero", nil)
	}
	item, err := s.items.AdjustStock(ctx, id, delta, LowStockOutbox)
	if err != nil {
		return nil, stockError(err, id)
	}
	return item, nil
}

// LowStockOutbox emits an inventory.low entry when a change moves the
// quantity from above the reorder level to at or below it.
func LowStockOutbox(item domain.InventoryItem, before int) (*domain.OutboxEntry, error) {
	if before <= item.ReorderLevel || item.Quantity > item.ReorderLevel {
		return nil, nil
	}
	entry, err := events.ToOutbox(events.New(events.EventInventoryLow, item.ID, events.InventoryLowPayload{
		ItemID:       item.ID,
		Name:         item.Name,
		Quantity:     item.Quantity,
		ReorderLevel: item.ReorderLevel,
	}))
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func stockError(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientStock):
		return apperrors.NewConflict("insufficient stock", map[string]any{"item_id": id})
	case apperrors.IsNotFound(err):
		return apperrors.NewNotFound("inventory item", map[string]any{"id": id})
	default:
		return apperrors.MapError(err)
	}
}
