package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func TestSweepNotifiesAdminsOfExpiredTicket(t *testing.T) {
	h := newHarness(t)
	admins := []domain.User{h.user(t, "ada", domain.RoleAdmin), h.user(t, "bob", domain.RoleAdmin)}
	staff := h.user(t, "sam", domain.RoleStaff)
	h.store.InsertTicket(domain.Ticket{ID: 42, Title: "Printer down", Status: domain.TicketStatusOpen, ExpiresAt: at(-time.Hour), CreatedBy: staff.ID})

	report := h.sweep(t)
	if report.Expired != 1 || report.Dispatched != 1 {
		t.Fatalf("report = %+v, want 1 expired and dispatched", report)
	}

	for _, admin := range admins {
		inbox := h.inbox(t, admin.ID)
		if len(inbox) != 1 {
			t.Fatalf("%s has %d notifications, want 1", admin.Name, len(inbox))
		}
		payload := payloadOf(t, inbox[0])
		if got, want := payload["message"], "Ticket #42 'Printer down' has expired and needs attention"; got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
		if payload["title"] != "Ticket Expired" || payload["icon"] != "ticket" {
			t.Errorf("payload = %v", payload)
		}
		if payload["ticket_id"] != float64(42) || payload["action_url"] != "/tickets/42" {
			t.Errorf("subject fields = %v", payload)
		}
		if inbox[0].Read() {
			t.Error("new notification already read")
		}
	}
	if got := h.inbox(t, staff.ID); len(got) != 0 {
		t.Errorf("staff got %d notifications", len(got))
	}

	ticket, _ := h.store.Tickets().GetByID(context.Background(), 42)
	if !ticket.IsExpired {
		t.Error("ticket not flagged expired")
	}
	if len(h.publisher.channels) != 2 || h.publisher.channels[0] != NotificationChannel(admins[0].ID) {
		t.Errorf("published channels = %v", h.publisher.channels)
	}
}

func TestSweepTwiceDoesNotRenotify(t *testing.T) {
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	h.store.InsertTicket(domain.Ticket{ID: 1, Title: "VPN", Status: domain.TicketStatusInProgress, ExpiresAt: at(-time.Minute)})
	h.store.InsertTicket(domain.Ticket{ID: 2, Title: "Laptop", Status: domain.TicketStatusOpen, ExpiresAt: at(20 * time.Minute)})

	first := h.sweep(t)
	second := h.sweep(t)
	if first.Expired != 1 || first.ExpiringSoon != 1 {
		t.Errorf("first = %+v", first)
	}
	if second.Expired != 0 || second.ExpiringSoon != 0 || second.Dispatched != 0 {
		t.Errorf("second = %+v, want nothing new", second)
	}
	if got := len(h.inbox(t, admin.ID)); got != 2 {
		t.Errorf("admin has %d notifications, want 2", got)
	}
}

func TestSweepSkipsTerminalAndUndatedTickets(t *testing.T) {
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	h.store.InsertTicket(domain.Ticket{ID: 1, Title: "Done", Status: domain.TicketStatusResolved, ExpiresAt: at(-time.Hour)})
	h.store.InsertTicket(domain.Ticket{ID: 2, Title: "Closed", Status: domain.TicketStatusClosed, ExpiresAt: at(10 * time.Minute)})
	h.store.InsertTicket(domain.Ticket{ID: 3, Title: "No deadline", Status: domain.TicketStatusOpen})
	h.store.InsertTicket(domain.Ticket{ID: 4, Title: "Far away", Status: domain.TicketStatusOpen, ExpiresAt: at(3 * time.Hour)})

	report := h.sweep(t)
	if report.Expired != 0 || report.ExpiringSoon != 0 {
		t.Errorf("report = %+v, want nothing", report)
	}
	if got := len(h.inbox(t, admin.ID)); got != 0 {
		t.Errorf("admin has %d notifications", got)
	}
	resolved, _ := h.store.Tickets().GetByID(context.Background(), 1)
	if resolved.IsExpired {
		t.Error("resolved ticket flagged expired")
	}
}

func TestExpiringSoonGoesToAssignedAgentOnly(t *testing.T) {
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	agent := h.user(t, "agentx", domain.RoleITAgent)
	h.store.InsertTicket(domain.Ticket{ID: 7, Title: "Email", Status: domain.TicketStatusOpen, ExpiresAt: at(30 * time.Minute), AssignedTo: &agent.ID})

	h.sweep(t)
	h.sweep(t)

	inbox := h.inbox(t, agent.ID)
	if len(inbox) != 1 {
		t.Fatalf("agent has %d notifications, want 1", len(inbox))
	}
	payload := payloadOf(t, inbox[0])
	if got, want := payload["message"], "Ticket #7 'Email' will expire in 30 minutes"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if payload["icon"] != "clock" || payload["title"] != "Ticket Expiring Soon" {
		t.Errorf("payload = %v", payload)
	}
	if got := len(h.inbox(t, admin.ID)); got != 0 {
		t.Errorf("admin has %d notifications, want 0", got)
	}
}

func TestExpiringSoonUnassignedGoesToAdmins(t *testing.T) {
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	agent := h.user(t, "agentx", domain.RoleITAgent)
	h.store.InsertTicket(domain.Ticket{ID: 8, Title: "Badge", Status: domain.TicketStatusPending, ExpiresAt: at(time.Minute)})

	h.sweep(t)
	inbox := h.inbox(t, admin.ID)
	if len(inbox) != 1 {
		t.Fatalf("admin has %d notifications, want 1", len(inbox))
	}
	if got := payloadOf(t, inbox[0])["message"]; got != "Ticket #8 'Badge' will expire in 1 minute" {
		t.Errorf("message = %q", got)
	}
	if got := len(h.inbox(t, agent.ID)); got != 0 {
		t.Errorf("unassigned agent got %d notifications", got)
	}
}

func TestSweepWithoutAdminsStillFlags(t *testing.T) {
	h := newHarness(t)
	h.store.InsertTicket(domain.Ticket{ID: 5, Title: "Orphan", Status: domain.TicketStatusOpen, ExpiresAt: at(-time.Hour)})

	report := h.sweep(t)
	if report.Expired != 1 || report.Dispatched != 1 {
		t.Errorf("report = %+v", report)
	}
	ticket, _ := h.store.Tickets().GetByID(context.Background(), 5)
	if !ticket.IsExpired {
		t.Error("ticket not flagged")
	}
}

func TestDeadlineChangeRearmsSweep(t *testing.T) {
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	h.store.InsertTicket(domain.Ticket{ID: 9, Title: "Server", Status: domain.TicketStatusOpen, ExpiresAt: at(-time.Minute)})
	h.sweep(t)

	_, err := h.tickets.UpdateTicket(context.Background(), &admin, 9, TicketUpdateInput{ExpiresAt: at(10 * time.Minute)})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	ticket, _ := h.store.Tickets().GetByID(context.Background(), 9)
	if ticket.IsExpired || ticket.ExpiryWarnedAt != nil {
		t.Fatalf("flags not reset: %+v", ticket)
	}

	report := h.sweep(t)
	if report.ExpiringSoon != 1 {
		t.Errorf("report = %+v, want one warning", report)
	}
	if got := len(h.inbox(t, admin.ID)); got != 2 {
		t.Errorf("admin has %d notifications, want 2", got)
	}
}

// failingMarks rejects the flag writes for one ticket id.
type failingMarks struct {
	repository.TicketRepository
	failID int64
}

func (r failingMarks) MarkExpired(ctx context.Context, id int64, entry *domain.OutboxEntry) (bool, error) {
	if id == r.failID {
		return false, errors.New("deadlock detected")
	}
	return r.TicketRepository.MarkExpired(ctx, id, entry)
}

func (r failingMarks) MarkExpiryWarned(ctx context.Context, id int64, at time.Time, entry *domain.OutboxEntry) (bool, error) {
	if id == r.failID {
		return false, errors.New("deadlock detected")
	}
	return r.TicketRepository.MarkExpiryWarned(ctx, id, at, entry)
}

func TestSweepSkipsTicketWhoseFlagWriteFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	h.store.InsertTicket(domain.Ticket{ID: 1, Title: "Fax", Status: domain.TicketStatusOpen, ExpiresAt: at(-2 * time.Hour)})
	h.store.InsertTicket(domain.Ticket{ID: 2, Title: "Scanner", Status: domain.TicketStatusOpen, ExpiresAt: at(-time.Hour)})
	h.store.InsertTicket(domain.Ticket{ID: 3, Title: "Monitor", Status: domain.TicketStatusOpen, ExpiresAt: at(-time.Minute)})

	expiry := NewExpiryService(ExpiryDependencies{
		TicketRepo: failingMarks{TicketRepository: h.store.Tickets(), failID: 2},
		Relay:      h.relay,
		Lookahead:  time.Hour,
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return fixedNow },
	})
	report, err := expiry.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep = %v, want nil", err)
	}
	if report.Expired != 2 || report.Dispatched != 2 {
		t.Errorf("report = %+v, want 2 expired and dispatched", report)
	}

	for id, want := range map[int64]bool{1: true, 2: false, 3: true} {
		ticket, _ := h.store.Tickets().GetByID(ctx, id)
		if ticket.IsExpired != want {
			t.Errorf("ticket %d is_expired = %v, want %v", id, ticket.IsExpired, want)
		}
	}
	var ids []float64
	for _, n := range h.inbox(t, admin.ID) {
		ids = append(ids, payloadOf(t, n)["ticket_id"].(float64))
	}
	if len(ids) != 2 {
		t.Fatalf("admin notified about %v, want tickets 1 and 3", ids)
	}
	for _, id := range ids {
		if id == 2 {
			t.Errorf("admin notified about ticket 2 whose flag write failed")
		}
	}
}

func TestExpiringSoonSkipsDeactivatedAgent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.user(t, "ada", domain.RoleAdmin)
	role, err := h.store.Users().GetRoleByName(ctx, domain.RoleITAgent)
	if err != nil {
		t.Fatalf("role: %v", err)
	}
	gone := domain.User{Name: "gone", Email: "gone@example.com", RoleID: role.ID, Active: false}
	if err := h.store.Users().Create(ctx, &gone); err != nil {
		t.Fatalf("create: %v", err)
	}
	h.store.InsertTicket(domain.Ticket{ID: 13, Title: "Phone", Status: domain.TicketStatusOpen, ExpiresAt: at(45 * time.Minute), AssignedTo: &gone.ID})

	h.sweep(t)
	if got := len(h.inbox(t, gone.ID)); got != 0 {
		t.Errorf("deactivated agent got %d notifications", got)
	}
	inbox := h.inbox(t, admin.ID)
	if len(inbox) != 1 {
		t.Fatalf("admin has %d notifications, want 1", len(inbox))
	}
	if got := payloadOf(t, inbox[0])["message"]; got != "Ticket #13 'Phone' will expire in 45 minutes" {
		t.Errorf("message = %q", got)
	}
}
