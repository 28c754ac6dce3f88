package model

import "github.com/google/uuid"

// UpdateOrderStatusRequest is the payload for PATCH /orders/status/{orderId}.
type UpdateOrderStatusRequest struct {
	Status      OrderStatus `json:"status" validate:"required"`
	Description string      `json:"description" validate:"max=500"`
}

// OrderStatusResponse is returned by order status changes.
type OrderStatusResponse struct {
	OrderID         string          `json:"orderId"`
	Status          OrderStatus     `json:"status"`
	TrackingDetails []TrackingEntry `json:"trackingDetails"`
}

// ReturnOrderRequest is the payload for PATCH /orders/return/{orderId}.
type ReturnOrderRequest struct {
	ReturnReason string `json:"returnReason" validate:"required,max=500"`
}

// PaymentIntentRequest is the payload for POST /orders/create-razorpay-order.
type PaymentIntentRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Amount  Money  `json:"amount" validate:"required,gt=0"`
}

// PaymentIntent is an external order created with the gateway.
type PaymentIntent struct {
	ID       string `json:"id"`
	Amount   Money  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// PaymentIntentResponse wraps the gateway order.
type PaymentIntentResponse struct {
	Order PaymentIntent `json:"order"`
}

// VerifyPaymentRequest is the signed gateway callback.
type VerifyPaymentRequest struct {
	ExternalOrderID   string `json:"razorpay_order_id" validate:"required"`
	ExternalPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature         string `json:"razorpay_signature" validate:"required"`
}

// VerifyPaymentResponse reports verification of a gateway callback.
type VerifyPaymentResponse struct {
	Verified bool   `json:"verified"`
	OrderID  string `json:"orderId,omitempty"`
}

// WalletPayRequest is the payload for POST /wallet/pay.
type WalletPayRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Amount  Money  `json:"amount" validate:"required,gt=0"`
}

// WalletPayResponse is returned by a wallet payment.
type WalletPayResponse struct {
	RemainingBalance Money     `json:"remainingBalance"`
	TransactionID    uuid.UUID `json:"transactionId"`
}

// WalletRefundRequest is the payload for POST /wallet/refund.
type WalletRefundRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// ReferralRequest is the payload for POST /wallet/referral.
type ReferralRequest struct {
	UserID   uuid.UUID `json:"userId" validate:"required"`
	Amount   Money     `json:"amount" validate:"required,gt=0"`
	Referrer string    `json:"referrer" validate:"required,max=100"`
}

// PromoRequest is the payload for POST /wallet/promo.
type PromoRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Amount Money     `json:"amount" validate:"required,gt=0"`
	Code   string    `json:"code" validate:"required,max=50"`
}

// WalletCreditResponse is returned by wallet credits.
type WalletCreditResponse struct {
	NewBalance    Money     `json:"newBalance"`
	TransactionID uuid.UUID `json:"transactionId"`
}

// PayoutRequest is the payload for POST /admin/payouts.
type PayoutRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}
