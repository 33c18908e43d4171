package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrStateConflict reports that a row was not in the state a conditional
// transition required.
var ErrStateConflict = errors.New("state conflict")

// ErrInsufficientStock reports a stock adjustment that would go negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// OutboxFunc decides, inside the adjusting transaction, whether a stock change
// should emit an outbox entry. before is the quantity prior to the change.
// Returning nil emits nothing.
type OutboxFunc func(item domain.InventoryItem, before int) (*domain.OutboxEntry, error)

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, pool, fn)
}

func insertOutbox(ctx context.Context, tx pgx.Tx, entry *domain.OutboxEntry) error {
	const query = `
        INSERT INTO notification_outbox (event_id, event_type, subject_id, payload)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		entry.EventID,
		entry.EventType,
		entry.SubjectID,
		entry.Payload,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func pageBounds(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// mapWriteError turns constraint violations into the errors the in-memory
// store returns for the same cases.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return ErrStateConflict
	case "23503":
		return pgx.ErrNoRows
	}
	return err
}
