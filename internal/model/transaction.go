package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies platform money movement.
type TransactionType string

const (
	TxnOrderPayment TransactionType = "ORDER_PAYMENT"
	TxnSellerPayout TransactionType = "SELLER_PAYOUT"
	TxnRefund       TransactionType = "REFUND"
)

// TransactionStatus is the state of a platform transaction.
type TransactionStatus string

const (
	TxnPending   TransactionStatus = "PENDING"
	TxnCompleted TransactionStatus = "COMPLETED"
	TxnFailed    TransactionStatus = "FAILED"
)

// Party types for the from/to sides of a platform transaction.
const (
	PartyBuyer    = "BUYER"
	PartySeller   = "SELLER"
	PartyPlatform = "PLATFORM"
	PartyWallet   = "WALLET"
	PartyGateway  = "GATEWAY"
)

// PlatformEntity identifies the platform itself as a counterparty.
const PlatformEntity = "platform"

// Party is one side of a platform transaction.
type Party struct {
	Entity string `json:"entity"`
	Type   string `json:"type"`
}

// FeeSplit records the platform's cut on each side of a transaction.
type FeeSplit struct {
	BuyerFee  Money `json:"buyerFee"`
	SellerFee Money `json:"sellerFee"`
}

// PlatformTransaction is an append-only record of buyer/seller/platform money movement.
type PlatformTransaction struct {
	ID          uuid.UUID         `json:"transactionId" db:"id"`
	OrderID     string            `json:"orderId" db:"order_id"`
	Type        TransactionType   `json:"type" db:"type"`
	Amount      Money             `json:"amount" db:"amount"`
	PlatformFee FeeSplit          `json:"platformFee"`
	Status      TransactionStatus `json:"status" db:"status"`
	From        Party             `json:"from"`
	To          Party             `json:"to"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`
}

// PlatformBalance is the admin view of platform money.
// Held is money the platform holds on behalf of sellers and buyers; Earnings is fee income.
type PlatformBalance struct {
	Held      Money     `json:"held" db:"held"`
	Earnings  Money     `json:"earnings" db:"earnings"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Add returns b with the given deltas applied.
func (b PlatformBalance) Add(held, earnings Money) PlatformBalance {
	b.Held += held
	b.Earnings += earnings
	return b
}

// ReconcileReport compares the maintained balance with a full replay of the log.
type ReconcileReport struct {
	Cached       PlatformBalance `json:"cached"`
	Replayed     PlatformBalance `json:"replayed"`
	Transactions int             `json:"transactions"`
	Drift        bool            `json:"drift"`
	Corrected    bool            `json:"corrected"`
}
