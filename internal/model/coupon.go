package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType says how a coupon's DiscountValue is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a code granting a capped discount, limited by total uses and a validity window.
// DiscountValue is a percentage for percentage coupons and minor units for fixed coupons.
// A MaxDiscount of zero means uncapped.
type Coupon struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Code          string          `json:"code" db:"code"`
	DiscountType  DiscountType    `json:"discountType" db:"discount_type"`
	DiscountValue decimal.Decimal `json:"discountValue" db:"discount_value"`
	MinPurchase   Money           `json:"minPurchase" db:"min_purchase"`
	MaxDiscount   Money           `json:"maxDiscount" db:"max_discount"`
	ValidFrom     time.Time       `json:"validFrom" db:"valid_from"`
	ValidUntil    time.Time       `json:"validUntil" db:"valid_until"`
	IsActive      bool            `json:"isActive" db:"is_active"`
	UsageLimit    int             `json:"usageLimit" db:"usage_limit"`
	UsedCount     int             `json:"usedCount" db:"used_count"`
	UsedBy        []uuid.UUID     `json:"usedBy" db:"used_by"`
}

// UsedByUser reports whether userID already redeemed the coupon.
func (c *Coupon) UsedByUser(userID uuid.UUID) bool {
	for _, id := range c.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}
