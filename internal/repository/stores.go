package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Stores bundles every repository the services need.
type Stores struct {
	Tickets       TicketRepository
	Users         UserRepository
	Notifications NotificationRepository
	Outbox        OutboxRepository
	Inventory     InventoryRepository
	Requisitions  RequisitionRepository
}

// NewPostgresStores builds the pgx-backed repositories on one pool.
func NewPostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Tickets:       NewTicketRepository(pool),
		Users:         NewUserRepository(pool),
		Notifications: NewNotificationRepository(pool),
		Outbox:        NewOutboxRepository(pool),
		Inventory:     NewInventoryRepository(pool),
		Requisitions:  NewRequisitionRepository(pool),
	}
}
