package service

import (
	"context"

	"marketplace/internal/model"
	"marketplace/internal/pricing"

	"github.com/google/uuid"
)

// ProductService defines catalogue reads exposed to buyers.
type ProductService interface {
	// GetByID retrieves a single product with its variants and tiers.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves multiple products, keyed by id.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)
}

// CartService defines cart operations.
type CartService interface {
	// Get returns the caller's cart priced on current catalogue data.
	Get(ctx context.Context, userID uuid.UUID) (*CartView, error)

	// AddItem increments a variant line, creating the cart on first use.
	AddItem(ctx context.Context, userID uuid.UUID, line model.CartLine) (*CartView, error)

	// UpdateItem sets a variant line's quantity. Zero removes the line.
	UpdateItem(ctx context.Context, userID uuid.UUID, line model.CartLine) (*CartView, error)
}

// OrderService defines checkout and the order lifecycle.
type OrderService interface {
	// CreateOrder checks out the caller's cart in one transaction.
	CreateOrder(ctx context.Context, actor model.Actor, req *model.CreateOrderRequest) (*model.CreateOrderResponse, error)

	// GetByID retrieves an order visible to actor.
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Order, error)

	// UpdateStatus moves an order along the fulfilment table. Admins may force any transition.
	UpdateStatus(ctx context.Context, actor model.Actor, id string, req *model.UpdateOrderStatusRequest) (*model.OrderStatusResponse, error)

	// Cancel cancels a PENDING or PROCESSING order and restores its stock.
	Cancel(ctx context.Context, actor model.Actor, id string) (*model.OrderStatusResponse, error)

	// RequestReturn moves a DELIVERED order to RETURN-REQUESTED within the return window.
	RequestReturn(ctx context.Context, actor model.Actor, id string, req *model.ReturnOrderRequest) (*model.OrderStatusResponse, error)

	// CreatePaymentIntent creates a fresh gateway order for an unpaid ONLINE order.
	CreatePaymentIntent(ctx context.Context, actor model.Actor, req *model.PaymentIntentRequest) (*model.PaymentIntentResponse, error)

	// VerifyPayment verifies a signed gateway callback and completes the payment once.
	VerifyPayment(ctx context.Context, req *model.VerifyPaymentRequest) (*model.VerifyPaymentResponse, error)
}

// ReturnService defines the return/refund workflow.
type ReturnService interface {
	// Create opens a return for one delivered order item.
	Create(ctx context.Context, actor model.Actor, req *model.CreateReturnRequest) (*model.Return, error)

	// GetByID retrieves a return visible to actor.
	GetByID(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Return, error)

	// UpdateStatus moves a return along its table and applies the refund at REFUND_COMPLETED.
	UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateReturnRequest) (*model.Return, error)
}

// WalletService defines wallet operations.
type WalletService interface {
	// Get returns the wallet with its latest transactions, newest first.
	Get(ctx context.Context, userID uuid.UUID) (*model.Wallet, error)

	// Pay settles an unpaid order from the caller's wallet.
	Pay(ctx context.Context, actor model.Actor, req *model.WalletPayRequest) (*model.WalletPayResponse, error)

	// Refund credits a cancelled, paid order back to the buyer's wallet.
	Refund(ctx context.Context, actor model.Actor, req *model.WalletRefundRequest) (*model.WalletCreditResponse, error)

	// Referral credits a referral bonus.
	Referral(ctx context.Context, req *model.ReferralRequest) (*model.WalletCreditResponse, error)

	// Promo credits a promotional amount.
	Promo(ctx context.Context, req *model.PromoRequest) (*model.WalletCreditResponse, error)
}

// AdminService defines platform ledger operations.
type AdminService interface {
	// Payout records one SELLER_PAYOUT per seller of a delivered, paid order.
	Payout(ctx context.Context, req *model.PayoutRequest) ([]model.PlatformTransaction, error)

	// Balance returns the maintained platform balance.
	Balance(ctx context.Context) (*model.PlatformBalance, error)

	// Reconcile replays the transaction log against the maintained balance.
	Reconcile(ctx context.Context, correct bool) (*model.ReconcileReport, error)
}

// CartView is a cart with a live quote. Quote is nil for an empty cart.
type CartView struct {
	Cart  *model.Cart    `json:"cart"`
	Quote *pricing.Quote `json:"quote,omitempty"`
}
