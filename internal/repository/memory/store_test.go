package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func seedUser(t *testing.T, s *Store, name, role string) domain.User {
	t.Helper()
	ctx := context.Background()
	r, err := s.Users().GetRoleByName(ctx, role)
	if err != nil {
		t.Fatalf("role %s: %v", role, err)
	}
	user := domain.User{Name: name, Email: name + "@example.com", RoleID: r.ID, Active: true}
	if err := s.Users().Create(ctx, &user); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func TestMarkExpiredIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	past := time.Now().Add(-time.Hour)
	s.InsertTicket(domain.Ticket{ID: 42, Title: "Printer down", Status: domain.TicketStatusOpen, ExpiresAt: &past})

	first, err := s.Tickets().MarkExpired(ctx, 42, &domain.OutboxEntry{EventID: "a", EventType: "ticket.expired"})
	if err != nil || !first {
		t.Fatalf("first MarkExpired = %v, %v; want true, nil", first, err)
	}
	second, err := s.Tickets().MarkExpired(ctx, 42, &domain.OutboxEntry{EventID: "b", EventType: "ticket.expired"})
	if err != nil || second {
		t.Fatalf("second MarkExpired = %v, %v; want false, nil", second, err)
	}
	if got := len(s.OutboxEntries()); got != 1 {
		t.Errorf("outbox rows = %d, want 1", got)
	}
}

func TestUsersWithUnknownRoleIsEmpty(t *testing.T) {
	s := NewStore()
	users, err := s.Users().UsersWithRole(context.Background(), "Auditor")
	if err != nil {
		t.Fatalf("UsersWithRole: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("users = %v, want empty non-nil slice", users)
	}
}

func TestMarkAllReadOnlyTouchesRecipient(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice", domain.RoleStaff)
	bob := seedUser(t, s, "bob", domain.RoleStaff)
	for _, id := range []int64{alice.ID, alice.ID, bob.ID} {
		n := domain.Notification{RecipientID: id, Message: domain.Message{Kind: domain.KindTest, Title: "t"}}
		if err := s.Notifications().Create(ctx, &n); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	changed, err := s.Notifications().MarkAllRead(ctx, alice.ID, time.Now())
	if err != nil || changed != 2 {
		t.Fatalf("MarkAllRead = %d, %v; want 2, nil", changed, err)
	}
	if n, _ := s.Notifications().CountUnread(ctx, alice.ID); n != 0 {
		t.Errorf("alice unread = %d, want 0", n)
	}
	if n, _ := s.Notifications().CountUnread(ctx, bob.ID); n != 1 {
		t.Errorf("bob unread = %d, want 1", n)
	}
}

func TestMarkReadKeepsFirstTimestamp(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice", domain.RoleStaff)
	n := domain.Notification{RecipientID: alice.ID, Message: domain.Message{Kind: domain.KindTest}}
	if err := s.Notifications().Create(ctx, &n); err != nil {
		t.Fatalf("create: %v", err)
	}
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Notifications().MarkRead(ctx, alice.ID, n.ID, first); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := s.Notifications().MarkRead(ctx, alice.ID, n.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	list, _ := s.Notifications().ListByRecipient(ctx, alice.ID, repository.NotificationFilter{})
	if len(list) != 1 || !list[0].ReadAt.Equal(first) {
		t.Errorf("read_at = %v, want %v", list[0].ReadAt, first)
	}
	if err := s.Notifications().MarkRead(ctx, alice.ID+1, n.ID, first); err == nil {
		t.Error("MarkRead by another user succeeded")
	}
}

func TestDrainRetriesUntilMaxAttempts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.mu.Lock()
	s.appendOutbox(&domain.OutboxEntry{EventID: "x", EventType: "ticket.expired"})
	s.mu.Unlock()

	failing := func(context.Context, domain.OutboxEntry) error { return errors.New("down") }
	for i := 0; i < 3; i++ {
		res, err := s.Outbox().Drain(ctx, 10, 2, failing)
		if err != nil {
			t.Fatalf("Drain: %v", err)
		}
		wantFailed := 1
		if i >= 2 {
			wantFailed = 0
		}
		if res.Failed != wantFailed {
			t.Errorf("pass %d failed = %d, want %d", i, res.Failed, wantFailed)
		}
	}
	entries := s.OutboxEntries()
	if entries[0].Attempts != 2 || entries[0].LastError == nil || entries[0].DispatchedAt != nil {
		t.Errorf("entry = %+v, want 2 attempts, error kept, not dispatched", entries[0])
	}
}

func TestFulfilDrawsStock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice", domain.RoleStaff)
	item := domain.InventoryItem{Name: "Mouse", SKU: "M-1", Quantity: 3}
	if err := s.Inventory().Create(ctx, &item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	req := domain.Requisition{ItemID: item.ID, RequestedBy: alice.ID, Quantity: 5, Status: domain.RequisitionPending}
	if err := s.Requisitions().Create(ctx, &req, nil); err != nil {
		t.Fatalf("create requisition: %v", err)
	}
	if _, _, err := s.Requisitions().Fulfil(ctx, req.ID, nil); !errors.Is(err, repository.ErrStateConflict) {
		t.Fatalf("Fulfil pending = %v, want ErrStateConflict", err)
	}
	if _, err := s.Requisitions().Decide(ctx, req.ID, repository.RequisitionDecision{Status: domain.RequisitionApproved, DecidedBy: alice.ID, At: time.Now()}, nil); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if _, _, err := s.Requisitions().Fulfil(ctx, req.ID, nil); !errors.Is(err, repository.ErrInsufficientStock) {
		t.Fatalf("Fulfil = %v, want ErrInsufficientStock", err)
	}
	stored, _ := s.Requisitions().GetByID(ctx, req.ID)
	if stored.Status != domain.RequisitionApproved {
		t.Errorf("status = %s, want approved after failed fulfil", stored.Status)
	}
}
