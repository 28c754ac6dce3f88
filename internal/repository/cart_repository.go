package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements CartRepository using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// Get retrieves the user's cart, grouped by product in insertion order.
func (r *cartRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{UserID: userID, Items: []model.CartItem{}}

	err := r.pool.QueryRow(ctx, `SELECT updated_at FROM carts WHERE user_id = $1`, userID).Scan(&cart.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ci.product_id, ci.variant_id, ci.quantity, v.attributes
		FROM cart_items ci
		JOIN product_variants v ON v.id = ci.variant_id
		WHERE ci.user_id = $1
		ORDER BY ci.added_at, ci.variant_id
	`, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var (
		lines      []model.CartLine
		attributes = make(map[uuid.UUID][]model.Attribute)
	)
	for rows.Next() {
		var (
			line  model.CartLine
			attrs []model.Attribute
		)
		if err := rows.Scan(&line.ProductID, &line.VariantID, &line.Quantity, &attrs); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		lines = append(lines, line)
		attributes[line.VariantID] = attrs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	cart.Items = model.GroupCartLines(lines)
	for i := range cart.Items {
		for j := range cart.Items[i].Variants {
			v := &cart.Items[i].Variants[j]
			v.Attributes = attributes[v.VariantID]
		}
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}

	return cart, nil
}

// AddQuantity increments a line, lazily creating the cart.
func (r *cartRepository) AddQuantity(ctx context.Context, line model.CartLine, userID uuid.UUID) error {
	return r.write(ctx, userID, line, `
		INSERT INTO cart_items (user_id, product_id, variant_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, variant_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, userID, line.ProductID, line.VariantID, line.Quantity)
}

// SetQuantity replaces a line quantity. Zero deletes the line.
func (r *cartRepository) SetQuantity(ctx context.Context, line model.CartLine, userID uuid.UUID) error {
	if line.Quantity == 0 {
		return r.write(ctx, userID, line, `
			DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2 AND variant_id = $3
		`, userID, line.ProductID, line.VariantID)
	}
	return r.write(ctx, userID, line, `
		INSERT INTO cart_items (user_id, product_id, variant_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, variant_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`, userID, line.ProductID, line.VariantID, line.Quantity)
}

// write ensures the cart row exists and applies one line statement in a single transaction.
func (r *cartRepository) write(ctx context.Context, userID uuid.UUID, line model.CartLine, stmt string, args ...any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
	`, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to upsert cart")
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		r.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("variant_id", line.VariantID.String()).
			Int("quantity", line.Quantity).
			Msg("failed to write cart item")
		return fmt.Errorf("failed to write cart item: %w", err)
	}

	return tx.Commit(ctx)
}

// LockLines reads the cart lines under FOR UPDATE so concurrent edits wait for checkout.
func (r *cartRepository) LockLines(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]model.CartLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT product_id, variant_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY variant_id
		FOR UPDATE
	`, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to lock cart items")
		return nil, fmt.Errorf("failed to lock cart items: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var line model.CartLine
		if err := rows.Scan(&line.ProductID, &line.VariantID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return lines, nil
}

// Clear removes every line from the user's cart within tx.
func (r *cartRepository) Clear(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}
