package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	return nil
}

type harness struct {
	store         *memory.Store
	dispatcher    events.Dispatcher
	publisher     *recordingPublisher
	notifier      *Notifier
	notifications *NotificationService
	relay         *OutboxRelay
	expiry        *ExpiryService
	tickets       *TicketService
	inventory     *InventoryService
	requisitions  *RequisitionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	clock := func() time.Time { return fixedNow }

	h := &harness{
		store:      memory.NewStore(),
		dispatcher: events.NewInMemoryDispatcher(),
		publisher:  &recordingPublisher{},
	}
	h.notifier = NewNotifier(h.store.Notifications(), h.publisher, logger)
	h.notifications = NewNotificationService(NotificationDependencies{
		Dispatcher:       h.dispatcher,
		Notifier:         h.notifier,
		Roles:            h.store.Users(),
		UserRepo:         h.store.Users(),
		NotificationRepo: h.store.Notifications(),
		Logger:           logger,
		Now:              clock,
	})
	h.notifications.RegisterHandlers()
	h.relay = NewOutboxRelay(h.store.Outbox(), h.dispatcher, 10, 3, nil, logger)
	h.expiry = NewExpiryService(ExpiryDependencies{
		TicketRepo: h.store.Tickets(),
		Relay:      h.relay,
		Lookahead:  time.Hour,
		Logger:     logger,
		Now:        clock,
	})
	h.tickets = NewTicketService(TicketDependencies{TicketRepo: h.store.Tickets(), UserRepo: h.store.Users(), Now: clock})
	h.inventory = NewInventoryService(h.store.Inventory())
	h.requisitions = NewRequisitionService(RequisitionDependencies{
		RequisitionRepo: h.store.Requisitions(),
		InventoryRepo:   h.store.Inventory(),
		Now:             clock,
	})
	return h
}

func (h *harness) user(t *testing.T, name, role string) domain.User {
	t.Helper()
	ctx := context.Background()
	r, err := h.store.Users().GetRoleByName(ctx, role)
	if err != nil {
		t.Fatalf("role %s: %v", role, err)
	}
	u := domain.User{Name: name, Email: name + "@example.com", RoleID: r.ID, Active: true}
	if err := h.store.Users().Create(ctx, &u); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return u
}

func (h *harness) inbox(t *testing.T, userID int64) []domain.Notification {
	t.Helper()
	list, err := h.store.Notifications().ListByRecipient(context.Background(), userID, repository.NotificationFilter{Limit: 100})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return list
}

func (h *harness) sweep(t *testing.T) SweepReport {
	t.Helper()
	report, err := h.expiry.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	return report
}

func payloadOf(t *testing.T, n domain.Notification) map[string]any {
	t.Helper()
	raw, err := json.Marshal(n.Message)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return out
}

func at(offset time.Duration) *time.Time {
	v := fixedNow.Add(offset)
	return &v
}
