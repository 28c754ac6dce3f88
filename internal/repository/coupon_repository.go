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
	"github.com/shopspring/decimal"
)

// couponRepository implements CouponRepository using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// GetByID retrieves a coupon by its ID.
func (r *couponRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	var (
		c     model.Coupon
		value int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, discount_type, discount_value, min_purchase, max_discount,
		       valid_from, valid_until, is_active, usage_limit, used_count, used_by
		FROM coupons
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Code, &c.DiscountType, &value, &c.MinPurchase, &c.MaxDiscount,
		&c.ValidFrom, &c.ValidUntil, &c.IsActive, &c.UsageLimit, &c.UsedCount, &c.UsedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("coupon_id", id.String()).Msg("coupon not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_id", id.String()).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	c.DiscountValue = decodeDiscountValue(c.DiscountType, value)
	return &c, nil
}

// Consume records one redemption in a single guarded update.
func (r *couponRepository) Consume(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID, now time.Time, singleUse bool) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1,
		    used_by = array_append(used_by, $2),
		    updated_at = NOW()
		WHERE id = $1
		  AND is_active
		  AND valid_from <= $3
		  AND valid_until >= $3
		  AND used_count < usage_limit
		  AND (NOT $4::boolean OR NOT ($2 = ANY(used_by)))
	`, id, userID, now, singleUse)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_id", id.String()).Msg("failed to consume coupon")
		return false, fmt.Errorf("failed to consume coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug().
			Str("coupon_id", id.String()).
			Str("user_id", userID.String()).
			Msg("coupon usage guard rejected redemption")
		return false, nil
	}
	return true, nil
}

// Release gives back one use and removes a single occurrence of userID from used_by.
func (r *couponRepository) Release(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count - 1,
		    used_by = used_by[1:array_position(used_by, $2) - 1] || used_by[array_position(used_by, $2) + 1:],
		    updated_at = NOW()
		WHERE id = $1 AND used_count > 0 AND $2 = ANY(used_by)
	`, id, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_id", id.String()).Msg("failed to release coupon")
		return fmt.Errorf("failed to release coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn().
			Str("coupon_id", id.String()).
			Str("user_id", userID.String()).
			Msg("no recorded coupon use to release")
	}
	return nil
}

// DeactivateExpired switches off every active coupon whose window closed before now.
func (r *couponRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE coupons
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND valid_until < $1
	`, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to deactivate expired coupons")
		return 0, fmt.Errorf("failed to deactivate expired coupons: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Upsert inserts or updates a coupon definition by code. Usage counters are preserved.
func (r *couponRepository) Upsert(ctx context.Context, tx pgx.Tx, c *model.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO coupons (id, code, discount_type, discount_value, min_purchase, max_discount,
		                     valid_from, valid_until, is_active, usage_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			min_purchase = EXCLUDED.min_purchase,
			max_discount = EXCLUDED.max_discount,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			is_active = EXCLUDED.is_active,
			usage_limit = GREATEST(EXCLUDED.usage_limit, coupons.used_count),
			updated_at = NOW()
		RETURNING id, used_count
	`,
		c.ID, c.Code, c.DiscountType, encodeDiscountValue(c.DiscountType, c.DiscountValue),
		c.MinPurchase, c.MaxDiscount, c.ValidFrom, c.ValidUntil, c.IsActive, c.UsageLimit,
	).Scan(&c.ID, &c.UsedCount)
	if err != nil {
		r.logger.Error().Err(err).Str("code", c.Code).Msg("failed to upsert coupon")
		return fmt.Errorf("failed to upsert coupon %s: %w", c.Code, err)
	}
	return nil
}

// Percentage values are stored in basis points, fixed values in minor units.
func decodeDiscountValue(t model.DiscountType, stored int64) decimal.Decimal {
	if t == model.DiscountPercentage {
		return model.PercentFromBasisPoints(stored)
	}
	return decimal.NewFromInt(stored)
}

func encodeDiscountValue(t model.DiscountType, value decimal.Decimal) int64 {
	if t == model.DiscountPercentage {
		return model.BasisPoints(value)
	}
	return value.Round(0).IntPart()
}
