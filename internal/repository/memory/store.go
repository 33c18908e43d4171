// Package memory implements the repository interfaces on process memory. It
// backs the service when no database is configured and serves as the store in
// tests. Transactions are modelled by holding the store lock for the whole
// operation.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store holds every table.
type Store struct {
	mu sync.Mutex

	seq           map[string]int64
	roles         map[int64]domain.Role
	users         map[int64]domain.User
	tickets       map[int64]domain.Ticket
	notifications map[int64]domain.Notification
	items         map[int64]domain.InventoryItem
	requisitions  map[int64]domain.Requisition
	outbox        []domain.OutboxEntry
	outboxClaims  map[int64]bool
}

// NewStore returns an empty store seeded with the standard roles.
func NewStore() *Store {
	s := &Store{
		seq:           make(map[string]int64),
		roles:         make(map[int64]domain.Role),
		users:         make(map[int64]domain.User),
		tickets:       make(map[int64]domain.Ticket),
		notifications: make(map[int64]domain.Notification),
		items:         make(map[int64]domain.InventoryItem),
		requisitions:  make(map[int64]domain.Requisition),
		outboxClaims:  make(map[int64]bool),
	}
	for _, name := range []string{domain.RoleAdmin, domain.RoleITAgent, domain.RoleStaff} {
		id := s.next("roles")
		s.roles[id] = domain.Role{ID: id, Name: name}
	}
	return s
}

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Notifications returns the notification repository view.
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepo{s} }

// Outbox returns the outbox repository view.
func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepo{s} }

// Inventory returns the inventory repository view.
func (s *Store) Inventory() repository.InventoryRepository { return &inventoryRepo{s} }

// Requisitions returns the requisition repository view.
func (s *Store) Requisitions() repository.RequisitionRepository { return &requisitionRepo{s} }

// Stores returns every repository view.
func (s *Store) Stores() repository.Stores {
	return repository.Stores{
		Tickets:       s.Tickets(),
		Users:         s.Users(),
		Notifications: s.Notifications(),
		Outbox:        s.Outbox(),
		Inventory:     s.Inventory(),
		Requisitions:  s.Requisitions(),
	}
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) appendOutbox(entry *domain.OutboxEntry) {
	entry.ID = s.next("outbox")
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.outbox = append(s.outbox, *entry)
}

func page[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrStateConflict
		}
	}
	role, ok := r.s.roles[user.RoleID]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now().UTC()
	user.ID = r.s.next("users")
	user.RoleName = role.Name
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := r.s.sortedUsers(func(domain.User) bool { return true })
	return page(users, limit, offset, 50), nil
}

func (r *userRepo) GetRoleByName(_ context.Context, name string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Name == name {
			return &role, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) UsersWithRole(_ context.Context, roleName string) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedUsers(func(u domain.User) bool { return u.RoleName == roleName }), nil
}

func (s *Store) sortedUsers(keep func(domain.User) bool) []domain.User {
	users := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		if keep(user) {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}
