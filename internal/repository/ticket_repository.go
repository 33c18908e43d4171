package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures list parameters.
type TicketFilter struct {
	CreatedBy  *int64
	AssignedTo *int64
	Statuses   []domain.TicketStatus
	Expired    *bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes the editable columns. is_expired and expiry_warned_at are
	// never taken from ticket: they are cleared when expires_at differs from
	// the stored deadline and kept otherwise. The stored flags are copied back
	// into ticket.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)

	// ListOverdue returns active tickets whose deadline passed before now and
	// that are not flagged expired yet.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	// ListExpiringSoon returns active tickets with a deadline in [now, until]
	// that have not been warned about.
	ListExpiringSoon(ctx context.Context, now, until time.Time) ([]domain.Ticket, error)
	// MarkExpired flips is_expired and enqueues entry in one transaction.
	// It reports false, and writes nothing, when the ticket was already expired.
	MarkExpired(ctx context.Context, id int64, entry *domain.OutboxEntry) (bool, error)
	// MarkExpiryWarned stamps expiry_warned_at and enqueues entry in one
	// transaction. It reports false when the ticket was already warned.
	MarkExpiryWarned(ctx context.Context, id int64, at time.Time, entry *domain.OutboxEntry) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, status, priority, expires_at, is_expired,
               expiry_warned_at, assigned_to, created_by, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, expires_at, assigned_to, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.ExpiresAt,
		ticket.AssignedTo,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	// SET expressions read the pre-update row, so the CASEs compare against
	// the stored deadline.
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4,
            is_expired = CASE WHEN expires_at IS DISTINCT FROM $5 THEN FALSE ELSE is_expired END,
            expiry_warned_at = CASE WHEN expires_at IS DISTINCT FROM $5 THEN NULL ELSE expiry_warned_at END,
            expires_at=$5, assigned_to=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING is_expired, expiry_warned_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.ExpiresAt,
		ticket.AssignedTo,
		ticket.ID,
	).Scan(&ticket.IsExpired, &ticket.ExpiryWarnedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Expired != nil {
		args = append(args, *filter.Expired)
		clauses = append(clauses, fmt.Sprintf("is_expired=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE expires_at < $1 AND is_expired = FALSE AND status <> ALL($2)
        ORDER BY expires_at`
	rows, err := r.pool.Query(ctx, query, now, terminalStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListExpiringSoon(ctx context.Context, now, until time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE expires_at BETWEEN $1 AND $2 AND expiry_warned_at IS NULL AND status <> ALL($3)
        ORDER BY expires_at`
	rows, err := r.pool.Query(ctx, query, now, until, terminalStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) MarkExpired(ctx context.Context, id int64, entry *domain.OutboxEntry) (bool, error) {
	updated := false
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
            UPDATE tickets SET is_expired=TRUE, updated_at=NOW()
            WHERE id=$1 AND is_expired=FALSE`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return nil
		}
		updated = true
		return insertOutbox(ctx, tx, entry)
	})
	return updated, err
}

func (r *ticketRepository) MarkExpiryWarned(ctx context.Context, id int64, at time.Time, entry *domain.OutboxEntry) (bool, error) {
	updated := false
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
            UPDATE tickets SET expiry_warned_at=$2, updated_at=NOW()
            WHERE id=$1 AND expiry_warned_at IS NULL`, id, at)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return nil
		}
		updated = true
		return insertOutbox(ctx, tx, entry)
	})
	return updated, err
}

func terminalStatuses() []string {
	out := make([]string, len(domain.TerminalTicketStatuses))
	for i, status := range domain.TerminalTicketStatuses {
		out[i] = string(status)
	}
	return out
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.ExpiresAt,
			&ticket.IsExpired,
			&ticket.ExpiryWarnedAt,
			&ticket.AssignedTo,
			&ticket.CreatedBy,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
