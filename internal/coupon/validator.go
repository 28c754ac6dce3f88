package coupon

import (
	"context"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ValidatorConfig holds configuration for the coupon validator.
type ValidatorConfig struct {
	// SingleUse rejects a second redemption by the same user.
	SingleUse bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// validator implements Validator over a Store.
type validator struct {
	store     Store
	singleUse bool
	now       func() time.Time
	logger    zerolog.Logger
}

// NewValidator creates a new coupon validator.
func NewValidator(store Store, cfg ValidatorConfig, logger zerolog.Logger) Validator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &validator{
		store:     store,
		singleUse: cfg.SingleUse,
		now:       now,
		logger:    logger.With().Str("component", "coupon-validator").Logger(),
	}
}

// Apply checks the coupon, then consumes one use with a guarded update. The guard
// re-checks the window and the usage limit, so a coupon that passes Evaluate can
// still be rejected as exhausted by a concurrent checkout.
func (v *validator) Apply(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID, subtotal model.Money) (model.Money, error) {
	c, err := v.store.GetByID(ctx, couponID)
	if err != nil {
		return 0, err
	}

	now := v.now()
	discount, err := Evaluate(c, userID, subtotal, now, v.singleUse)
	if err != nil {
		v.logger.Debug().
			Err(err).
			Str("coupon_id", couponID.String()).
			Str("user_id", userID.String()).
			Int64("subtotal", int64(subtotal)).
			Msg("coupon rejected")
		return 0, err
	}

	ok, err := v.store.Consume(ctx, tx, couponID, userID, now, v.singleUse)
	if err != nil {
		return 0, err
	}
	if !ok {
		v.logger.Info().
			Str("coupon_id", couponID.String()).
			Msg("coupon exhausted by a concurrent redemption")
		return 0, model.ErrCouponExhausted
	}

	v.logger.Debug().
		Str("coupon_id", couponID.String()).
		Str("code", c.Code).
		Int64("discount", int64(discount)).
		Msg("coupon applied")

	return discount, nil
}

// Release returns one use to the coupon.
func (v *validator) Release(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) error {
	return v.store.Release(ctx, tx, couponID, userID)
}

// Evaluate validates c for userID at now and computes the discount on subtotal.
// Percentage coupons take DiscountValue percent of subtotal, fixed coupons take
// DiscountValue minor units. The result is capped by MaxDiscount when set and
// never exceeds subtotal.
func Evaluate(c *model.Coupon, userID uuid.UUID, subtotal model.Money, now time.Time, singleUse bool) (model.Money, error) {
	switch {
	case c == nil:
		return 0, model.ErrCouponNotFound
	case !c.IsActive:
		return 0, model.ErrCouponInactive
	case now.Before(c.ValidFrom):
		return 0, model.ErrCouponNotStarted
	case now.After(c.ValidUntil):
		return 0, model.ErrCouponExpired
	case c.UsedCount >= c.UsageLimit:
		return 0, model.ErrCouponExhausted
	case subtotal < c.MinPurchase:
		return 0, model.ErrCouponMinPurchase
	case singleUse && c.UsedByUser(userID):
		return 0, model.ErrCouponAlreadyUsed
	}

	var discount model.Money
	switch c.DiscountType {
	case model.DiscountPercentage:
		discount = subtotal.Percent(c.DiscountValue)
	default:
		discount = model.Money(c.DiscountValue.Round(0).IntPart())
	}
	if c.MaxDiscount > 0 {
		discount = discount.Min(c.MaxDiscount)
	}
	if discount < 0 {
		discount = 0
	}
	return discount.Min(subtotal), nil
}
