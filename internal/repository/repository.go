package repository

import (
	"context"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Transactor starts database transactions for multi-step writes.
type Transactor interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// ProductRepository defines catalogue reads and the atomic stock counters.
type ProductRepository interface {
	// GetByID retrieves a product with its variants and tiers. Returns nil when missing.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves products keyed by id. Missing ids are absent from the map.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)

	// DecrementStock subtracts qty from a variant only if enough stock remains.
	// Returns false when the guard rejected the update.
	DecrementStock(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) (bool, error)

	// IncrementStock adds qty back to a variant.
	IncrementStock(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error
}

// AddressRepository reads buyer addresses.
type AddressRepository interface {
	// GetByID retrieves an address owned by userID. Returns nil when missing.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Address, error)
}

// CartRepository defines cart persistence. One cart per user.
type CartRepository interface {
	// Get retrieves the user's cart lines grouped by product. Empty when no cart exists.
	Get(ctx context.Context, userID uuid.UUID) (*model.Cart, error)

	// AddQuantity increments a variant line, creating the cart and line as needed.
	AddQuantity(ctx context.Context, line model.CartLine, userID uuid.UUID) error

	// SetQuantity replaces a line quantity. Zero removes the line.
	SetQuantity(ctx context.Context, line model.CartLine, userID uuid.UUID) error

	// LockLines reads the user's cart lines inside tx, locking them until commit.
	LockLines(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]model.CartLine, error)

	// Clear removes every line from the user's cart within tx.
	Clear(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
}

// CouponRepository defines coupon persistence and the guarded usage counter.
type CouponRepository interface {
	// GetByID retrieves a coupon. Returns nil when missing.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)

	// Consume records one use by userID if the coupon is active, in its window and below
	// its usage limit. With singleUse it also requires userID to be absent from used_by.
	Consume(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID, now time.Time, singleUse bool) (bool, error)

	// Release gives back one use recorded for userID.
	Release(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) error

	// DeactivateExpired flips is_active off for coupons whose window ended before now.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// Upsert inserts a coupon or updates the definition stored under the same code.
	Upsert(ctx context.Context, tx pgx.Tx, c *model.Coupon) error
}

// OrderRepository defines order persistence.
type OrderRepository interface {
	// Create inserts an order with its items and tracking entries within tx.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetByID retrieves an order with items and tracking. Returns nil when missing.
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// GetForUpdate retrieves and row-locks an order within tx. Returns nil when missing.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error)

	// GetByExternalIDForUpdate locks the order bound to a gateway order id. Returns nil when missing.
	GetByExternalIDForUpdate(ctx context.Context, tx pgx.Tx, externalOrderID string) (*model.Order, error)

	// UpdateStatus sets the order status and appends a tracking entry within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, entry model.TrackingEntry) error

	// UpdatePayment overwrites the order's payment fields within tx.
	UpdatePayment(ctx context.Context, tx pgx.Tx, id string, payment model.Payment) error
}

// ReturnRepository defines return request persistence.
type ReturnRepository interface {
	// Create inserts a return with its items and first timeline entry within tx.
	Create(ctx context.Context, tx pgx.Tx, ret *model.Return) error

	// GetByID retrieves a return with items and timeline. Returns nil when missing.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Return, error)

	// GetForUpdate retrieves and row-locks a return within tx. Returns nil when missing.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Return, error)

	// HasOpen reports whether the order has a return that has not reached a terminal status.
	HasOpen(ctx context.Context, tx pgx.Tx, orderID string) (bool, error)

	// UpdateStatus sets the return status and appends a timeline entry within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, entry model.TimelineEntry) error
}

// WalletRepository defines wallet balance and ledger persistence.
type WalletRepository interface {
	// Ensure creates the user's wallet with a zero balance if it does not exist.
	Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error

	// ApplyDelta adds delta to the balance only if the result stays non-negative.
	// Returns the new balance and false when the guard rejected the update.
	ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta model.Money) (model.Money, bool, error)

	// InsertTransaction appends a ledger entry within tx.
	InsertTransaction(ctx context.Context, tx pgx.Tx, txn *model.WalletTxn) error

	// Get retrieves the wallet with its latest transactions, newest first.
	// Returns a zero wallet when none exists yet.
	Get(ctx context.Context, userID uuid.UUID, limit int) (*model.Wallet, error)
}

// TransactionRepository defines platform transaction and balance persistence.
type TransactionRepository interface {
	// Insert appends a platform transaction within tx.
	Insert(ctx context.Context, tx pgx.Tx, txn *model.PlatformTransaction) error

	// FindByOrder returns the order's transactions of the given type, oldest first.
	FindByOrder(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) ([]model.PlatformTransaction, error)

	// UpdateStatus moves a transaction out of PENDING. Returns false if it was not PENDING.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TransactionStatus) (bool, error)

	// ListCompleted returns every COMPLETED transaction, oldest first.
	ListCompleted(ctx context.Context, tx pgx.Tx) ([]model.PlatformTransaction, error)

	// GetBalance reads the maintained platform balance.
	GetBalance(ctx context.Context) (*model.PlatformBalance, error)

	// LockBalance reads and row-locks the maintained platform balance within tx.
	LockBalance(ctx context.Context, tx pgx.Tx) (*model.PlatformBalance, error)

	// AddToBalance applies deltas to the maintained platform balance within tx.
	AddToBalance(ctx context.Context, tx pgx.Tx, held, earnings model.Money) error

	// SetBalance overwrites the maintained platform balance within tx.
	SetBalance(ctx context.Context, tx pgx.Tx, balance model.PlatformBalance) error
}
