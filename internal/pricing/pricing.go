// Package pricing computes cart and order totals from canonical catalogue data.
package pricing

import (
	"fmt"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config holds the flat charges applied to every quote.
type Config struct {
	FreeShippingThreshold model.Money
	ShippingCharge        model.Money
	PlatformFee           model.Money
}

// Engine prices carts. It is stateless and safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates a pricing engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// ProductQuote is the per-product breakdown of a quote.
type ProductQuote struct {
	ProductID  uuid.UUID               `json:"productId"`
	SellerID   uuid.UUID               `json:"sellerId"`
	Quantity   int                     `json:"quantity"`
	Tier       *model.BulkDiscountTier `json:"tier,omitempty"`
	Subtotal   model.Money             `json:"productSubtotal"`
	Discount   model.Money             `json:"productDiscount"`
	Total      model.Money             `json:"productTotal"`
	PercentOff decimal.Decimal         `json:"percentOff"`
}

// Quote is an immutable price snapshot of a cart.
type Quote struct {
	Items    []model.OrderItem  `json:"items"`
	Products []ProductQuote     `json:"products"`
	Summary  model.OrderSummary `json:"summary"`
}

// SelectTier returns the tier with the largest MinQty not above qty.
// Equal MinQty values resolve to the larger PercentOff.
func SelectTier(qty int, tiers []model.BulkDiscountTier) *model.BulkDiscountTier {
	var selected *model.BulkDiscountTier
	for i := range tiers {
		tier := tiers[i]
		if tier.MinQty > qty {
			continue
		}
		if selected == nil ||
			tier.MinQty > selected.MinQty ||
			(tier.MinQty == selected.MinQty && tier.PercentOff.GreaterThan(selected.PercentOff)) {
			selected = &tier
		}
	}
	return selected
}

// Quote prices lines against products. Lines for the same variant are merged.
func (e *Engine) Quote(products map[uuid.UUID]*model.Product, lines []model.CartLine) (*Quote, error) {
	if len(lines) == 0 {
		return nil, model.ErrEmptyCart
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
	}

	q := &Quote{}
	for _, group := range model.GroupCartLines(lines) {
		product, ok := products[group.ProductID]
		if !ok || product == nil {
			return nil, fmt.Errorf("%w: %s", model.ErrProductNotFound, group.ProductID)
		}

		pq := ProductQuote{ProductID: product.ID, SellerID: product.SellerID}
		for _, v := range group.Variants {
			pq.Quantity += v.Quantity
		}
		pq.Tier = SelectTier(pq.Quantity, product.BulkDiscountTiers)
		if pq.Tier != nil {
			pq.PercentOff = pq.Tier.PercentOff
		}

		for _, line := range group.Variants {
			variant, ok := product.Variant(line.VariantID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", model.ErrVariantNotFound, line.VariantID)
			}

			// per-unit discount is rounded before scaling so line totals stay integral
			unitDiscount := variant.BasePrice.Percent(pq.PercentOff)
			item := model.OrderItem{
				ProductID:    product.ID,
				VariantID:    variant.ID,
				SellerID:     product.SellerID,
				ProductName:  product.Name,
				Attributes:   variant.Attributes,
				Quantity:     line.Quantity,
				UnitPrice:    variant.BasePrice,
				PercentOff:   pq.PercentOff,
				UnitDiscount: unitDiscount,
				LineSubtotal: variant.BasePrice.Times(line.Quantity),
				LineDiscount: unitDiscount.Times(line.Quantity),
			}
			item.LineTotal = item.LineSubtotal - item.LineDiscount

			pq.Subtotal += item.LineSubtotal
			pq.Discount += item.LineDiscount
			q.Items = append(q.Items, item)
		}
		pq.Total = pq.Subtotal - pq.Discount

		q.Summary.SubtotalBeforeDiscount += pq.Subtotal
		q.Summary.TotalDiscount += pq.Discount
		q.Products = append(q.Products, pq)
	}

	if q.Summary.SubtotalBeforeDiscount-q.Summary.TotalDiscount < e.cfg.FreeShippingThreshold {
		q.Summary.ShippingCharge = e.cfg.ShippingCharge
	}
	q.Summary.PlatformFee = e.cfg.PlatformFee
	q.Summary.CartTotal = q.Summary.ComputeTotal()

	return q, nil
}

// CouponBase is the amount a coupon is evaluated against.
func (q *Quote) CouponBase() model.Money {
	return q.Summary.SubtotalBeforeDiscount - q.Summary.TotalDiscount
}

// WithCoupon folds a coupon discount into the summary, capped at the coupon base.
func (q *Quote) WithCoupon(discount model.Money) {
	if discount < 0 {
		discount = 0
	}
	q.Summary.CouponDiscount = discount.Min(q.CouponBase())
	q.Summary.CartTotal = q.Summary.ComputeTotal()
}
