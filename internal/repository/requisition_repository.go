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

// RequisitionFilter captures list parameters.
type RequisitionFilter struct {
	RequestedBy *int64
	Status      *domain.RequisitionStatus
	Limit       int
	Offset      int
}

// RequisitionDecision describes a pending -> approved/rejected transition.
type RequisitionDecision struct {
	Status    domain.RequisitionStatus
	DecidedBy int64
	Note      string
	At        time.Time
}

// RequisitionRepository persists requisitions.
type RequisitionRepository interface {
	// Create inserts the requisition and, when build is non-nil, the outbox
	// entry it returns, in one transaction.
	Create(ctx context.Context, req *domain.Requisition, build func(domain.Requisition) (*domain.OutboxEntry, error)) error
	GetByID(ctx context.Context, id int64) (*domain.Requisition, error)
	List(ctx context.Context, filter RequisitionFilter) ([]domain.Requisition, error)
	// Decide moves a pending requisition to the decided status. A
	// requisition that is no longer pending yields ErrStateConflict.
	Decide(ctx context.Context, id int64, decision RequisitionDecision, build func(domain.Requisition) (*domain.OutboxEntry, error)) (*domain.Requisition, error)
	// Fulfil moves an approved requisition to fulfilled and draws its
	// quantity from stock in the same transaction.
	Fulfil(ctx context.Context, id int64, onStock OutboxFunc) (*domain.Requisition, *domain.InventoryItem, error)
}

type requisitionRepository struct {
	pool *pgxpool.Pool
}

// NewRequisitionRepository constructs repository.
func NewRequisitionRepository(pool *pgxpool.Pool) RequisitionRepository {
	return &requisitionRepository{pool: pool}
}

const requisitionColumns = `id, item_id, requested_by, quantity, reason, status, decided_by, decided_at,
               decision_note, created_at, updated_at`

func (r *requisitionRepository) Create(ctx context.Context, req *domain.Requisition, build func(domain.Requisition) (*domain.OutboxEntry, error)) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            INSERT INTO requisitions (item_id, requested_by, quantity, reason, status)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			req.ItemID,
			req.RequestedBy,
			req.Quantity,
			req.Reason,
			req.Status,
		).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return err
		}
		return emit(ctx, tx, *req, build)
	})
}

func (r *requisitionRepository) GetByID(ctx context.Context, id int64) (*domain.Requisition, error) {
	return scanRequisition(r.pool.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM requisitions WHERE id=$1`, id))
}

func (r *requisitionRepository) List(ctx context.Context, filter RequisitionFilter) ([]domain.Requisition, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.RequestedBy != nil {
		args = append(args, *filter.RequestedBy)
		clauses = append(clauses, fmt.Sprintf("requested_by=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM requisitions WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		requisitionColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *requisitionRepository) Decide(ctx context.Context, id int64, decision RequisitionDecision, build func(domain.Requisition) (*domain.OutboxEntry, error)) (*domain.Requisition, error) {
	var req *domain.Requisition
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		req, err = lockRequisition(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != domain.RequisitionPending {
			return ErrStateConflict
		}
		if err := tx.QueryRow(ctx, `
            UPDATE requisitions SET status=$2, decided_by=$3, decided_at=$4, decision_note=$5, updated_at=NOW()
            WHERE id=$1
            RETURNING updated_at`,
			id, decision.Status, decision.DecidedBy, decision.At, decision.Note,
		).Scan(&req.UpdatedAt); err != nil {
			return err
		}
		req.Status = decision.Status
		req.DecidedBy = &decision.DecidedBy
		req.DecidedAt = &decision.At
		req.DecisionNote = decision.Note
		return emit(ctx, tx, *req, build)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *requisitionRepository) Fulfil(ctx context.Context, id int64, onStock OutboxFunc) (*domain.Requisition, *domain.InventoryItem, error) {
	var (
		req  *domain.Requisition
		item *domain.InventoryItem
	)
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		req, err = lockRequisition(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != domain.RequisitionApproved {
			return ErrStateConflict
		}
		item, err = adjustStockTx(ctx, tx, req.ItemID, -req.Quantity, onStock)
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `
            UPDATE requisitions SET status=$2, updated_at=NOW()
            WHERE id=$1
            RETURNING updated_at`, id, domain.RequisitionFulfilled,
		).Scan(&req.UpdatedAt); err != nil {
			return err
		}
		req.Status = domain.RequisitionFulfilled
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return req, item, nil
}

func lockRequisition(ctx context.Context, tx pgx.Tx, id int64) (*domain.Requisition, error) {
	return scanRequisition(tx.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM requisitions WHERE id=$1 FOR UPDATE`, id))
}

func emit(ctx context.Context, tx pgx.Tx, req domain.Requisition, build func(domain.Requisition) (*domain.OutboxEntry, error)) error {
	if build == nil {
		return nil
	}
	entry, err := build(req)
	if err != nil || entry == nil {
		return err
	}
	return insertOutbox(ctx, tx, entry)
}

func scanRequisition(row pgx.Row) (*domain.Requisition, error) {
	var req domain.Requisition
	if err := row.Scan(
		&req.ID,
		&req.ItemID,
		&req.RequestedBy,
		&req.Quantity,
		&req.Reason,
		&req.Status,
		&req.DecidedBy,
		&req.DecidedAt,
		&req.DecisionNote,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
