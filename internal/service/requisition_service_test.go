package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestRequisitionLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	staff := h.user(t, "sam", domain.RoleStaff)
	item, _ := h.inventory.CreateItem(ctx, InventoryCreateInput{Name: "Monitor", SKU: "MON", Quantity: 4, ReorderLevel: 2})

	req, err := h.requisitions.Submit(ctx, &staff, item.ID, 2, "new hire")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.relay.Drain(ctx)
	adminInbox := h.inbox(t, admin.ID)
	if len(adminInbox) != 1 || payloadOf(t, adminInbox[0])["icon"] != "clipboard" {
		t.Fatalf("admin inbox = %+v", adminInbox)
	}
	if got := payloadOf(t, adminInbox[0])["requisition_id"]; got != float64(req.ID) {
		t.Errorf("requisition_id = %v", got)
	}

	if _, _, err := h.requisitions.Fulfil(ctx, req.ID); apperrors.ToDomainError(err).Code != "CONFLICT" {
		t.Errorf("fulfil pending err = %v, want conflict", err)
	}

	decided, err := h.requisitions.Decide(ctx, &admin, req.ID, true, "ok")
	if err != nil || decided.Status != domain.RequisitionApproved {
		t.Fatalf("Decide = %+v, %v", decided, err)
	}
	h.relay.Drain(ctx)
	staffInbox := h.inbox(t, staff.ID)
	if len(staffInbox) != 1 {
		t.Fatalf("staff inbox has %d, want 1", len(staffInbox))
	}
	if got, want := payloadOf(t, staffInbox[0])["message"], "Your requisition #1 for 'Monitor' was approved: ok"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}

	if _, err := h.requisitions.Decide(ctx, &admin, req.ID, false, ""); apperrors.ToDomainError(err).Code != "CONFLICT" {
		t.Errorf("second decision err = %v, want conflict", err)
	}

	fulfilled, stock, err := h.requisitions.Fulfil(ctx, req.ID)
	if err != nil {
		t.Fatalf("Fulfil: %v", err)
	}
	if fulfilled.Status != domain.RequisitionFulfilled || stock.Quantity != 2 {
		t.Errorf("fulfilled = %+v, stock = %d", fulfilled.Status, stock.Quantity)
	}
	h.relay.Drain(ctx)
	if got := len(h.inbox(t, admin.ID)); got != 2 {
		t.Errorf("admin inbox = %d, want submit alert plus low stock", got)
	}
}

func TestRequisitionListScoping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	a := h.user(t, "sam", domain.RoleStaff)
	b := h.user(t, "kim", domain.RoleStaff)
	item, _ := h.inventory.CreateItem(ctx, InventoryCreateInput{Name: "Pen", SKU: "P", Quantity: 50})
	for _, u := range []domain.User{a, a, b} {
		u := u
		if _, err := h.requisitions.Submit(ctx, &u, item.ID, 1, ""); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	own, _ := h.requisitions.List(ctx, &a, RequisitionListFilter{})
	all, _ := h.requisitions.List(ctx, &admin, RequisitionListFilter{})
	if len(own) != 2 || len(all) != 3 {
		t.Errorf("own = %d, all = %d; want 2 and 3", len(own), len(all))
	}
	if _, err := h.requisitions.Submit(ctx, &a, item.ID, 0, ""); err == nil {
		t.Error("zero quantity accepted")
	}
}
