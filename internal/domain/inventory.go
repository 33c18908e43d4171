package domain

import "time"

// InventoryItem is a stocked hardware or consumable line.
type InventoryItem struct {
	ID           int64
	Name         string
	SKU          string
	Quantity     int
	ReorderLevel int
	Location     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Low reports whether stock is at or below the reorder level.
func (i *InventoryItem) Low() bool {
	return i.Quantity <= i.ReorderLevel
}
