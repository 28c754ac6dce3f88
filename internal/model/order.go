package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderPending          OrderStatus = "PENDING"
	OrderProcessing       OrderStatus = "PROCESSING"
	OrderShipped          OrderStatus = "SHIPPED"
	OrderDelivered        OrderStatus = "DELIVERED"
	OrderCancelled        OrderStatus = "CANCELLED"
	OrderReturnRequested  OrderStatus = "RETURN-REQUESTED"
	OrderReturnProcessing OrderStatus = "RETURN-PROCESSING"
	OrderReturned         OrderStatus = "RETURNED"
)

// PaymentMethod is how the buyer pays for an order.
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "ONLINE"
	PaymentCOD    PaymentMethod = "COD"
	PaymentWallet PaymentMethod = "WALLET"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentOnline, PaymentCOD, PaymentWallet:
		return true
	}
	return false
}

// PaymentStatus is the state of an order's payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Payment holds the order's payment method and state.
type Payment struct {
	Method            PaymentMethod `json:"method" db:"payment_method"`
	Status            PaymentStatus `json:"status" db:"payment_status"`
	ExternalOrderID   string        `json:"externalOrderId,omitempty" db:"external_order_id"`
	ExternalPaymentID string        `json:"externalPaymentId,omitempty" db:"external_payment_id"`
}

// OrderSummary is the monetary summary of an order, all in minor units.
type OrderSummary struct {
	SubtotalBeforeDiscount Money `json:"subtotalBeforeDiscount" db:"subtotal_before_discount"`
	TotalDiscount          Money `json:"totalDiscount" db:"total_discount"`
	CouponDiscount         Money `json:"couponDiscount" db:"coupon_discount"`
	ShippingCharge         Money `json:"shippingCharge" db:"shipping_charge"`
	PlatformFee            Money `json:"platformFee" db:"platform_fee"`
	CartTotal              Money `json:"cartTotal" db:"cart_total"`
}

// ItemsTotal is the amount attributable to goods: subtotal after bulk and coupon discounts.
func (s OrderSummary) ItemsTotal() Money {
	return s.SubtotalBeforeDiscount - s.TotalDiscount - s.CouponDiscount
}

// ComputeTotal returns subtotal − discounts + shipping + platform fee.
func (s OrderSummary) ComputeTotal() Money {
	return s.ItemsTotal() + s.ShippingCharge + s.PlatformFee
}

// Balanced reports whether CartTotal equals the summary equation exactly.
func (s OrderSummary) Balanced() bool {
	return s.CartTotal == s.ComputeTotal()
}

// OrderItem is an immutable price and quantity snapshot taken at checkout.
type OrderItem struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      string          `json:"-" db:"order_id"`
	ProductID    uuid.UUID       `json:"productId" db:"product_id"`
	VariantID    uuid.UUID       `json:"variantId" db:"variant_id"`
	SellerID     uuid.UUID       `json:"sellerId" db:"seller_id"`
	ProductName  string          `json:"productName" db:"product_name"`
	Attributes   []Attribute     `json:"attributes" db:"attributes"`
	Quantity     int             `json:"quantity" db:"quantity"`
	UnitPrice    Money           `json:"unitPrice" db:"unit_price"`
	PercentOff   decimal.Decimal `json:"percentOff" db:"percent_off_bps"`
	UnitDiscount Money           `json:"unitDiscount" db:"unit_discount"`
	LineSubtotal Money           `json:"lineSubtotal" db:"line_subtotal"`
	LineDiscount Money           `json:"lineDiscount" db:"line_discount"`
	LineTotal    Money           `json:"lineTotal" db:"line_total"`
}

// TrackingEntry is one append-only record of an order status change.
type TrackingEntry struct {
	Status      OrderStatus `json:"status" db:"status"`
	Timestamp   time.Time   `json:"timestamp" db:"created_at"`
	Description string      `json:"description" db:"description"`
}

// Order represents a placed order.
type Order struct {
	ID              string          `json:"orderId" db:"id"`
	UserID          uuid.UUID       `json:"userId" db:"user_id"`
	AddressID       uuid.UUID       `json:"addressId" db:"address_id"`
	CouponID        *uuid.UUID      `json:"couponId,omitempty" db:"coupon_id"`
	Items           []OrderItem     `json:"items"`
	Summary         OrderSummary    `json:"summary"`
	Payment         Payment         `json:"payment"`
	Status          OrderStatus     `json:"orderStatus" db:"order_status"`
	TrackingDetails []TrackingEntry `json:"trackingDetails"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// DeliveredAt returns the timestamp of the first DELIVERED tracking entry. A later
// DELIVERED entry, written when a return is rejected, does not reopen the window.
func (o *Order) DeliveredAt() (time.Time, bool) {
	for _, entry := range o.TrackingDetails {
		if entry.Status == OrderDelivered {
			return entry.Timestamp, true
		}
	}
	return time.Time{}, false
}

// Item finds an order item by id.
func (o *Order) Item(id uuid.UUID) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// HasSeller reports whether any item in the order is sold by sellerID.
func (o *Order) HasSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// CreateOrderRequest is the request payload for checkout.
type CreateOrderRequest struct {
	CartSnapshot  []CartLine    `json:"cartSnapshot" validate:"required,min=1,dive"`
	AddressID     uuid.UUID     `json:"addressId" validate:"required"`
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=ONLINE COD WALLET"`
	CouponID      *uuid.UUID    `json:"couponId,omitempty"`
}

// CreateOrderResponse is returned by a successful checkout.
type CreateOrderResponse struct {
	OrderID         string        `json:"orderId"`
	Total           Money         `json:"total"`
	Status          OrderStatus   `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	ExternalOrderID string        `json:"externalOrderId,omitempty"`
}
