package model

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is a single (product, variant, quantity) entry as stored or submitted.
type CartLine struct {
	ProductID uuid.UUID `json:"productId" db:"product_id" validate:"required"`
	VariantID uuid.UUID `json:"variantId" db:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" db:"quantity" validate:"gte=0"`
}

// CartVariant is a variant line within a cart item.
type CartVariant struct {
	VariantID  uuid.UUID   `json:"variantId"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Quantity   int         `json:"quantity"`
}

// CartItem groups the cart's variant lines by product.
type CartItem struct {
	ProductID uuid.UUID     `json:"productId"`
	Variants  []CartVariant `json:"variants"`
}

// Cart is a user's cart. One cart per user.
type Cart struct {
	UserID    uuid.UUID  `json:"userId"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// GroupCartLines folds flat lines into per-product items, preserving first-seen order.
// Lines for the same variant are merged.
func GroupCartLines(lines []CartLine) []CartItem {
	index := make(map[uuid.UUID]int)
	var items []CartItem
	for _, line := range lines {
		i, ok := index[line.ProductID]
		if !ok {
			i = len(items)
			index[line.ProductID] = i
			items = append(items, CartItem{ProductID: line.ProductID})
		}
		merged := false
		for v := range items[i].Variants {
			if items[i].Variants[v].VariantID == line.VariantID {
				items[i].Variants[v].Quantity += line.Quantity
				merged = true
				break
			}
		}
		if !merged {
			items[i].Variants = append(items[i].Variants, CartVariant{
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
			})
		}
	}
	return items
}

// Lines flattens the cart back into (product, variant, quantity) lines.
func (c *Cart) Lines() []CartLine {
	var lines []CartLine
	for _, item := range c.Items {
		for _, v := range item.Variants {
			lines = append(lines, CartLine{ProductID: item.ProductID, VariantID: v.VariantID, Quantity: v.Quantity})
		}
	}
	return lines
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines()) == 0
}
