package repository

import (
	"context"
	"fmt"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	products, err := r.GetByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	product, ok := products[id]
	if !ok {
		r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
		return nil, nil
	}
	return product, nil
}

// GetByIDs retrieves multiple products with their variants and discount tiers.
func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	products := make(map[uuid.UUID]*model.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, seller_id, name, created_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.CreatedAt); err != nil {
			rows.Close()
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = &p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if err := r.loadVariants(ctx, ids, products); err != nil {
		return nil, err
	}
	if err := r.loadTiers(ctx, ids, products); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepository) loadVariants(ctx context.Context, ids []uuid.UUID, products map[uuid.UUID]*model.Product) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, attributes, stock, in_stock, base_price
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, position, id
	`, ids)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query product variants")
		return fmt.Errorf("failed to query product variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Attributes, &v.Stock, &v.InStock, &v.BasePrice); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if p, ok := products[v.ProductID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating variants: %w", err)
	}
	return nil
}

func (r *productRepository) loadTiers(ctx context.Context, ids []uuid.UUID, products map[uuid.UUID]*model.Product) error {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, min_qty, percent_off_bps
		FROM bulk_discount_tiers
		WHERE product_id = ANY($1)
		ORDER BY product_id, min_qty DESC
	`, ids)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query discount tiers")
		return fmt.Errorf("failed to query discount tiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID uuid.UUID
			tier      model.BulkDiscountTier
			bps       int64
		)
		if err := rows.Scan(&productID, &tier.MinQty, &bps); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan discount tier row")
			return fmt.Errorf("failed to scan discount tier: %w", err)
		}
		tier.PercentOff = model.PercentFromBasisPoints(bps)
		if p, ok := products[productID]; ok {
			p.BulkDiscountTiers = append(p.BulkDiscountTiers, tier)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating discount tiers: %w", err)
	}
	return nil
}

// DecrementStock atomically subtracts qty when at least qty units remain.
// in_stock is derived from the pre-update stock in the same statement.
func (r *productRepository) DecrementStock(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE product_variants
		SET stock = stock - $2, in_stock = (stock - $2) > 0
		WHERE id = $1 AND stock >= $2
	`, variantID, qty)
	if err != nil {
		r.logger.Error().Err(err).
			Str("variant_id", variantID.String()).
			Int("quantity", qty).
			Msg("failed to decrement stock")
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug().
			Str("variant_id", variantID.String()).
			Int("quantity", qty).
			Msg("stock guard rejected decrement")
		return false, nil
	}
	return true, nil
}

// IncrementStock atomically adds qty back to a variant.
func (r *productRepository) IncrementStock(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE product_variants
		SET stock = stock + $2, in_stock = (stock + $2) > 0
		WHERE id = $1
	`, variantID, qty)
	if err != nil {
		r.logger.Error().Err(err).
			Str("variant_id", variantID.String()).
			Int("quantity", qty).
			Msg("failed to increment stock")
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrVariantNotFound, variantID)
	}
	return nil
}
