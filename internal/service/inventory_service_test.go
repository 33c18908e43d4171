package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestLowStockAlertFiresOnCrossingOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	item, err := h.inventory.CreateItem(ctx, InventoryCreateInput{Name: "Toner", SKU: "T-1", Quantity: 10, ReorderLevel: 5})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	steps := []struct {
		delta      int
		wantAlerts int
	}{
		{-3, 0}, // 7, still above
		{-2, 1}, // 5, crosses
		{-1, 1}, // 4, already low
		{+6, 1}, // 10, restocked
		{-6, 2}, // 4, crosses again
	}
	for i, step := range steps {
		if _, err := h.inventory.AdjustStock(ctx, item.ID, step.delta); err != nil {
			t.Fatalf("step %d AdjustStock: %v", i, err)
		}
		if _, err := h.relay.Drain(ctx); err != nil {
			t.Fatalf("step %d Drain: %v", i, err)
		}
		if got := len(h.inbox(t, admin.ID)); got != step.wantAlerts {
			t.Errorf("step %d: alerts = %d, want %d", i, got, step.wantAlerts)
		}
	}

	inbox := h.inbox(t, admin.ID)
	payload := payloadOf(t, inbox[0])
	if got, want := payload["message"], "Item 'Toner' is low on stock (4 left, reorder level 5)"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if payload["icon"] != "package" || payload["item_id"] != float64(item.ID) {
		t.Errorf("payload = %v", payload)
	}
}

func TestAdjustStockRejectsNegative(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	item, _ := h.inventory.CreateItem(ctx, InventoryCreateInput{Name: "Cable", SKU: "C-1", Quantity: 1})

	_, err := h.inventory.AdjustStock(ctx, item.ID, -2)
	if de := apperrors.ToDomainError(err); de == nil || de.Code != "CONFLICT" {
		t.Errorf("err = %v, want conflict", err)
	}
	if _, err := h.inventory.AdjustStock(ctx, 404, 1); !apperrors.IsNotFound(err) {
		t.Errorf("unknown item err = %v, want not found", err)
	}
	if _, err := h.inventory.CreateItem(ctx, InventoryCreateInput{Name: "Dup", SKU: "c-1"}); apperrors.ToDomainError(err).Code != "CONFLICT" {
		t.Errorf("duplicate sku err = %v", err)
	}
}
