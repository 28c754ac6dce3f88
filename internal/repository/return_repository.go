package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// returnRepository implements ReturnRepository using PostgreSQL.
type returnRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewReturnRepository creates a new PostgreSQL-backed return repository.
func NewReturnRepository(pool *pgxpool.Pool, logger zerolog.Logger) ReturnRepository {
	return &returnRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "return").Logger(),
	}
}

// Create inserts the return, its items and its timeline within tx. A second open
// return for the same order violates returns_one_open_per_order.
func (r *returnRepository) Create(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO returns (id, order_id, user_id, status, return_amount, pickup_address_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ret.ID, ret.OrderID, ret.UserID, ret.Status, ret.ReturnAmount, ret.PickupAddress, ret.CreatedAt, ret.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return model.ErrReturnInProgress
		}
		r.logger.Error().Err(err).Str("order_id", ret.OrderID).Msg("failed to create return")
		return fmt.Errorf("failed to create return: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range ret.Items {
		batch.Queue(`
			INSERT INTO return_items (return_id, order_item_id, product_id, variant_id, quantity, return_reason, item_condition)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, ret.ID, item.OrderItemID, item.ProductID, item.VariantID, item.Quantity, item.ReturnReason, item.Condition)
	}
	for _, entry := range ret.Timeline {
		batch.Queue(`
			INSERT INTO return_timeline (return_id, status, comment, updated_by, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, ret.ID, entry.Status, entry.Comment, entry.UpdatedBy, entry.Timestamp)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().Err(err).Str("return_id", ret.ID.String()).Msg("failed to create return items")
			return fmt.Errorf("failed to create return items: %w", err)
		}
	}

	r.logger.Debug().
		Str("return_id", ret.ID.String()).
		Str("order_id", ret.OrderID).
		Msg("return created successfully")
	return nil
}

// GetByID retrieves a return with items and timeline.
func (r *returnRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Return, error) {
	return r.load(ctx, r.pool, id, false)
}

// GetForUpdate row-locks the return within tx.
func (r *returnRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Return, error) {
	return r.load(ctx, tx, id, true)
}

func (r *returnRepository) load(ctx context.Context, q querier, id uuid.UUID, lock bool) (*model.Return, error) {
	query := `
		SELECT id, order_id, user_id, status, return_amount, pickup_address_id, created_at, updated_at
		FROM returns
		WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var ret model.Return
	err := q.QueryRow(ctx, query, id).Scan(
		&ret.ID, &ret.OrderID, &ret.UserID, &ret.Status, &ret.ReturnAmount,
		&ret.PickupAddress, &ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("return_id", id.String()).Msg("return not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to query return")
		return nil, fmt.Errorf("failed to query return: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT order_item_id, product_id, variant_id, quantity, return_reason, item_condition
		FROM return_items
		WHERE return_id = $1
		ORDER BY order_item_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query return items: %w", err)
	}
	for rows.Next() {
		var item model.ReturnItem
		if err := rows.Scan(&item.OrderItemID, &item.ProductID, &item.VariantID,
			&item.Quantity, &item.ReturnReason, &item.Condition); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan return item: %w", err)
		}
		ret.Items = append(ret.Items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating return items: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT status, comment, updated_by, created_at
		FROM return_timeline
		WHERE return_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query return timeline: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.TimelineEntry
		if err := rows.Scan(&e.Status, &e.Comment, &e.UpdatedBy, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		ret.Timeline = append(ret.Timeline, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating return timeline: %w", err)
	}

	return &ret, nil
}

// HasOpen reports whether orderID has a return outside the terminal statuses.
func (r *returnRepository) HasOpen(ctx context.Context, tx pgx.Tx, orderID string) (bool, error) {
	var open bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM returns
			WHERE order_id = $1 AND status NOT IN ($2, $3, $4)
		)
	`, orderID, model.ReturnRejected, model.ReturnRefundCompleted, model.ReturnCancelled).Scan(&open)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to check open returns")
		return false, fmt.Errorf("failed to check open returns: %w", err)
	}
	return open, nil
}

// UpdateStatus sets the return status and appends the timeline entry.
func (r *returnRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, entry model.TimelineEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	tag, err := tx.Exec(ctx, `
		UPDATE returns SET status = $2, updated_at = $3 WHERE id = $1
	`, id, entry.Status, entry.Timestamp)
	if err != nil {
		r.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to update return status")
		return fmt.Errorf("failed to update return status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrReturnNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO return_timeline (return_id, status, comment, updated_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, entry.Status, entry.Comment, entry.UpdatedBy, entry.Timestamp)
	if err != nil {
		r.logger.Error().Err(err).Str("return_id", id.String()).Msg("failed to append timeline entry")
		return fmt.Errorf("failed to append timeline entry: %w", err)
	}
	return nil
}
