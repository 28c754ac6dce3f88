package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Attribute is one ordered key/value pair describing a variant (color, size).
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Variant is a sellable configuration of a product with its own stock and price.
type Variant struct {
	ID         uuid.UUID   `json:"variantId" db:"id"`
	ProductID  uuid.UUID   `json:"productId" db:"product_id"`
	Attributes []Attribute `json:"attributes" db:"attributes"`
	Stock      int         `json:"stock" db:"stock"`
	InStock    bool        `json:"inStock" db:"in_stock"`
	BasePrice  Money       `json:"basePrice" db:"base_price"`
}

// BulkDiscountTier grants PercentOff once a product's total ordered quantity reaches MinQty.
type BulkDiscountTier struct {
	MinQty     int             `json:"minQty" db:"min_qty"`
	PercentOff decimal.Decimal `json:"percentOff" db:"percent_off_bps"`
}

// Product represents a catalogue product owned by a seller.
type Product struct {
	ID                uuid.UUID          `json:"id" db:"id"`
	SellerID          uuid.UUID          `json:"sellerId" db:"seller_id"`
	Name              string             `json:"name" db:"name"`
	Variants          []Variant          `json:"variants"`
	BulkDiscountTiers []BulkDiscountTier `json:"bulkDiscountTiers"`
	CreatedAt         time.Time          `json:"createdAt" db:"created_at"`
}

// Variant looks up one of the product's variants by id.
func (p *Product) Variant(id uuid.UUID) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Address is a buyer address read from the address book collaborator.
type Address struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"userId" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	Line1      string    `json:"line1" db:"line1"`
	Line2      string    `json:"line2,omitempty" db:"line2"`
	City       string    `json:"city" db:"city"`
	State      string    `json:"state" db:"state"`
	PostalCode string    `json:"postalCode" db:"postal_code"`
	Country    string    `json:"country" db:"country"`
	Phone      string    `json:"phone" db:"phone"`
}
