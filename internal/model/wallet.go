package model

import (
	"time"

	"github.com/google/uuid"
)

// WalletTxnType classifies a wallet ledger entry.
type WalletTxnType string

const (
	WalletDebitOrder     WalletTxnType = "DEBIT_ORDER"
	WalletCreditRefund   WalletTxnType = "CREDIT_REFUND"
	WalletCreditReturn   WalletTxnType = "CREDIT_RETURN"
	WalletCreditReferral WalletTxnType = "CREDIT_REFERRAL"
	WalletCreditPromo    WalletTxnType = "CREDIT_PROMO"
)

// WalletTxnCompleted is the status of every committed wallet entry.
const WalletTxnCompleted = "COMPLETED"

// WalletTxn is an append-only wallet ledger entry. Amount is signed; Balance is the
// wallet balance after this entry.
type WalletTxn struct {
	ID          uuid.UUID     `json:"transactionId" db:"id"`
	UserID      uuid.UUID     `json:"-" db:"user_id"`
	Type        WalletTxnType `json:"type" db:"type"`
	Amount      Money         `json:"amount" db:"amount"`
	Description string        `json:"description" db:"description"`
	Reference   string        `json:"reference,omitempty" db:"reference"`
	Status      string        `json:"status" db:"status"`
	Balance     Money         `json:"balance" db:"balance_after"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
}

// Wallet is a user's balance plus its ledger, newest entry first.
type Wallet struct {
	UserID       uuid.UUID   `json:"userId" db:"user_id"`
	Balance      Money       `json:"balance" db:"balance"`
	Transactions []WalletTxn `json:"transactions"`
	UpdatedAt    time.Time   `json:"updatedAt" db:"updated_at"`
}

// WalletMeta describes why a wallet entry is being written.
type WalletMeta struct {
	Type        WalletTxnType
	Description string
	Reference   string
}
