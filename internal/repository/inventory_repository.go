package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// InventoryRepository persists stock items.
type InventoryRepository interface {
	Create(ctx context.Context, item *domain.InventoryItem) error
	GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error)
	List(ctx context.Context, limit, offset int) ([]domain.InventoryItem, error)
	// AdjustStock applies delta under a row lock. It returns
	// ErrInsufficientStock when the result would be negative. onChange may
	// return an outbox entry that is written in the same transaction.
	AdjustStock(ctx context.Context, id int64, delta int, onChange OutboxFunc) (*domain.InventoryItem, error)
}

type inventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository constructs repository.
func NewInventoryRepository(pool *pgxpool.Pool) InventoryRepository {
	return &inventoryRepository{pool: pool}
}

const inventoryColumns = `id, name, sku, quantity, reorder_level, location, created_at, updated_at`

func (r *inventoryRepository) Create(ctx context.Context, item *domain.InventoryItem) error {
	const query = `
        INSERT INTO inventory_items (name, sku, quantity, reorder_level, location)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		item.Name,
		item.SKU,
		item.Quantity,
		item.ReorderLevel,
		item.Location,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	return mapWriteError(err)
}

func (r *inventoryRepository) GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id=$1`, id))
}

func (r *inventoryRepository) List(ctx context.Context, limit, offset int) ([]domain.InventoryItem, error) {
	limit, offset = pageBounds(limit, offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM inventory_items ORDER BY name LIMIT %d OFFSET %d`, inventoryColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

func (r *inventoryRepository) AdjustStock(ctx context.Context, id int64, delta int, onChange OutboxFunc) (*domain.InventoryItem, error) {
	var item *domain.InventoryItem
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		item, err = adjustStockTx(ctx, tx, id, delta, onChange)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func adjustStockTx(ctx context.Context, tx pgx.Tx, id int64, delta int, onChange OutboxFunc) (*domain.InventoryItem, error) {
	item, err := scanItem(tx.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	before := item.Quantity
	if before+delta < 0 {
		return nil, ErrInsufficientStock
	}
	if err := tx.QueryRow(ctx, `
        UPDATE inventory_items SET quantity=quantity+$2, updated_at=NOW()
        WHERE id=$1
        RETURNING quantity, updated_at`, id, delta).Scan(&item.Quantity, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if onChange == nil {
		return item, nil
	}
	entry, err := onChange(*item, before)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		if err := insertOutbox(ctx, tx, entry); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func scanItem(row pgx.Row) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.SKU,
		&item.Quantity,
		&item.ReorderLevel,
		&item.Location,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
