package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// DrainResult summarizes one pass over the outbox.
type DrainResult struct {
	Dispatched int
	Failed     int
}

// OutboxHandler processes one claimed entry.
type OutboxHandler func(ctx context.Context, entry domain.OutboxEntry) error

// OutboxRepository gives access to pending side effects.
type OutboxRepository interface {
	// Drain claims up to limit pending entries with fewer than maxAttempts
	// attempts and hands each to fn. Entries fn accepts are marked
	// dispatched; failures bump attempts and keep the error text.
	Drain(ctx context.Context, limit, maxAttempts int, fn OutboxHandler) (DrainResult, error)
	CountPending(ctx context.Context) (int64, error)
}

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository constructs repository.
func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

func (r *outboxRepository) Drain(ctx context.Context, limit, maxAttempts int, fn OutboxHandler) (DrainResult, error) {
	var result DrainResult
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            SELECT id, event_id::text, event_type, subject_id, payload, attempts, last_error, created_at, dispatched_at
            FROM notification_outbox
            WHERE dispatched_at IS NULL AND attempts < $1
            ORDER BY id
            LIMIT $2
            FOR UPDATE SKIP LOCKED`, maxAttempts, limit)
		if err != nil {
			return err
		}
		entries, err := scanOutbox(rows)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if handleErr := fn(ctx, entry); handleErr != nil {
				result.Failed++
				if _, err := tx.Exec(ctx, `
                    UPDATE notification_outbox SET attempts=attempts+1, last_error=$2
                    WHERE id=$1`, entry.ID, handleErr.Error()); err != nil {
					return err
				}
				continue
			}
			result.Dispatched++
			if _, err := tx.Exec(ctx, `
                UPDATE notification_outbox SET attempts=attempts+1, dispatched_at=NOW(), last_error=NULL
                WHERE id=$1`, entry.ID); err != nil {
				return err
			}
		}
		return nil
	})
	return result, err
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_outbox WHERE dispatched_at IS NULL`).Scan(&count)
	return count, err
}

func scanOutbox(rows pgx.Rows) ([]domain.OutboxEntry, error) {
	defer rows.Close()
	var result []domain.OutboxEntry
	for rows.Next() {
		var entry domain.OutboxEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.EventType,
			&entry.SubjectID,
			&entry.Payload,
			&entry.Attempts,
			&entry.LastError,
			&entry.CreatedAt,
			&entry.DispatchedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
