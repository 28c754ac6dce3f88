// Package coupon validates and redeems discount coupons and imports coupon definitions.
package coupon

import (
	"context"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Validator applies coupons at checkout.
type Validator interface {
	// Apply validates the coupon against subtotal and consumes one use inside tx.
	// It returns the discount to fold into the order summary.
	Apply(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID, subtotal model.Money) (model.Money, error)

	// Release gives back a use consumed by Apply, e.g. when the order is cancelled.
	Release(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) error
}

// Store is the coupon persistence the validator needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	Consume(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID, now time.Time, singleUse bool) (bool, error)
	Release(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) error
}

// Loader reads a gzipped JSON-lines file of coupon definitions.
type Loader interface {
	Load(ctx context.Context, path string) (*Set, error)
}
