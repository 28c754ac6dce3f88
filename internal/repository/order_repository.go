package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, user_id, address_id, coupon_id,
	subtotal_before_discount, total_discount, coupon_discount, shipping_charge, platform_fee, cart_total,
	payment_method, payment_status, external_order_id, external_payment_id,
	order_status, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create inserts the order row, its item snapshots and its tracking entries within tx.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	s := order.Summary
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		order.ID, order.UserID, order.AddressID, order.CouponID,
		s.SubtotalBeforeDiscount, s.TotalDiscount, s.CouponDiscount, s.ShippingCharge, s.PlatformFee, s.CartTotal,
		order.Payment.Method, order.Payment.Status,
		nullString(order.Payment.ExternalOrderID), nullString(order.Payment.ExternalPaymentID),
		order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, item := range order.Items {
		attrs := item.Attributes
		if attrs == nil {
			attrs = []model.Attribute{}
		}
		batch.Queue(`
			INSERT INTO order_items (id, order_id, position, product_id, variant_id, seller_id, product_name,
			                         attributes, quantity, unit_price, percent_off_bps, unit_discount,
			                         line_subtotal, line_discount, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			item.ID, order.ID, i, item.ProductID, item.VariantID, item.SellerID, item.ProductName,
			attrs, item.Quantity, item.UnitPrice, model.BasisPoints(item.PercentOff), item.UnitDiscount,
			item.LineSubtotal, item.LineDiscount, item.LineTotal,
		)
	}
	for _, entry := range order.TrackingDetails {
		batch.Queue(`
			INSERT INTO order_tracking (order_id, status, description, created_at)
			VALUES ($1, $2, $3, $4)
		`, order.ID, entry.Status, entry.Description, entry.Timestamp)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID).
				Int("statement", i).
				Msg("failed to create order item or tracking entry")
			return fmt.Errorf("failed to create order items: %w", err)
		}
	}

	r.logger.Debug().
		Str("order_id", order.ID).
		Int("item_count", len(order.Items)).
		Msg("order created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items and tracking.
func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	return r.load(ctx, r.pool, `WHERE id = $1`, id)
}

// GetForUpdate locks the order row for the rest of tx.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error) {
	return r.load(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
}

// GetByExternalIDForUpdate locks the order bound to a gateway order id.
func (r *orderRepository) GetByExternalIDForUpdate(ctx context.Context, tx pgx.Tx, externalOrderID string) (*model.Order, error) {
	return r.load(ctx, tx, `WHERE external_order_id = $1 FOR UPDATE`, externalOrderID)
}

func (r *orderRepository) load(ctx context.Context, q querier, where string, arg any) (*model.Order, error) {
	var (
		order       model.Order
		s           = &order.Summary
		externalOID *string
		externalPID *string
	)
	err := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders `+where, arg).Scan(
		&order.ID, &order.UserID, &order.AddressID, &order.CouponID,
		&s.SubtotalBeforeDiscount, &s.TotalDiscount, &s.CouponDiscount, &s.ShippingCharge, &s.PlatformFee, &s.CartTotal,
		&order.Payment.Method, &order.Payment.Status, &externalOID, &externalPID,
		&order.Status, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Interface("key", arg).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	if externalOID != nil {
		order.Payment.ExternalOrderID = *externalOID
	}
	if externalPID != nil {
		order.Payment.ExternalPaymentID = *externalPID
	}

	if order.Items, err = r.loadItems(ctx, q, order.ID); err != nil {
		return nil, err
	}
	if order.TrackingDetails, err = r.loadTracking(ctx, q, order.ID); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, q querier, orderID string) ([]model.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, variant_id, seller_id, product_name, attributes, quantity,
		       unit_price, percent_off_bps, unit_discount, line_subtotal, line_discount, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var (
			item model.OrderItem
			bps  int64
		)
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &item.SellerID, &item.ProductName,
			&item.Attributes, &item.Quantity, &item.UnitPrice, &bps, &item.UnitDiscount,
			&item.LineSubtotal, &item.LineDiscount, &item.LineTotal,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.PercentOff = model.PercentFromBasisPoints(bps)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) loadTracking(ctx context.Context, q querier, orderID string) ([]model.TrackingEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT status, description, created_at
		FROM order_tracking
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order tracking: %w", err)
	}
	defer rows.Close()

	var entries []model.TrackingEntry
	for rows.Next() {
		var e model.TrackingEntry
		if err := rows.Scan(&e.Status, &e.Description, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan tracking entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracking entries: %w", err)
	}
	return entries, nil
}

// UpdateStatus sets the order status and appends the tracking entry.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, entry model.TrackingEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	tag, err := tx.Exec(ctx, `
		UPDATE orders SET order_status = $2, updated_at = $3 WHERE id = $1
	`, id, entry.Status, entry.Timestamp)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Str("status", string(entry.Status)).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_tracking (order_id, status, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, entry.Status, entry.Description, entry.Timestamp)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to append tracking entry")
		return fmt.Errorf("failed to append tracking entry: %w", err)
	}
	return nil
}

// UpdatePayment overwrites the payment columns.
func (r *orderRepository) UpdatePayment(ctx context.Context, tx pgx.Tx, id string, payment model.Payment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET payment_method = $2, payment_status = $3, external_order_id = $4, external_payment_id = $5,
		    updated_at = NOW()
		WHERE id = $1
	`, id, payment.Method, payment.Status, nullString(payment.ExternalOrderID), nullString(payment.ExternalPaymentID))
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to update order payment")
		return fmt.Errorf("failed to update order payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
