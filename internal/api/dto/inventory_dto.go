package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateItemRequest payload.
type CreateItemRequest struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorder_level"`
	Location     string `json:"location"`
}

// AdjustStockRequest payload. Delta is signed.
type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

// ItemResponse represents a stock item.
type ItemResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	Location     string    `json:"location"`
	Low          bool      `json:"low"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewItemResponse maps an item.
func NewItemResponse(i *domain.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:           i.ID,
		Name:         i.Name,
		SKU:          i.SKU,
		Quantity:     i.Quantity,
		ReorderLevel: i.ReorderLevel,
		Location:     i.Location,
		Low:          i.Low(),
		UpdatedAt:    i.UpdatedAt,
	}
}

// CreateRequisitionRequest payload.
type CreateRequisitionRequest struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// DecisionRequest payload.
type DecisionRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// RequisitionResponse represents a requisition.
type RequisitionResponse struct {
	ID           int64                    `json:"id"`
	ItemID       int64                    `json:"item_id"`
	RequestedBy  int64                    `json:"requested_by"`
	Quantity     int                      `json:"quantity"`
	Reason       string                   `json:"reason"`
	Status       domain.RequisitionStatus `json:"status"`
	DecidedBy    *int64                   `json:"decided_by"`
	DecidedAt    *time.Time               `json:"decided_at"`
	DecisionNote string                   `json:"decision_note,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}

// NewRequisitionResponse maps a requisition.
func NewRequisitionResponse(r *domain.Requisition) RequisitionResponse {
	return RequisitionResponse{
		ID:           r.ID,
		ItemID:       r.ItemID,
		RequestedBy:  r.RequestedBy,
		Quantity:     r.Quantity,
		Reason:       r.Reason,
		Status:       r.Status,
		DecidedBy:    r.DecidedBy,
		DecidedAt:    r.DecidedAt,
		DecisionNote: r.DecisionNote,
		CreatedAt:    r.CreatedAt,
	}
}
