// Package wallet applies guarded debits and credits to user wallets.
package wallet

import (
	"context"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Store is the wallet persistence the ledger drives. Implemented by the wallet repository.
type Store interface {
	Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
	ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta model.Money) (model.Money, bool, error)
	InsertTransaction(ctx context.Context, tx pgx.Tx, txn *model.WalletTxn) error
}

// Ledger writes balance changes and their ledger entries in one transaction, so the
// cached balance always equals the balance snapshot of the newest entry.
type Ledger struct {
	store  Store
	logger zerolog.Logger
}

// NewLedger creates a wallet ledger over store.
func NewLedger(store Store, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.With().Str("component", "wallet").Logger(),
	}
}

// Debit removes amount from the wallet. It fails with ErrInsufficientBalance, leaving
// the balance untouched, when amount exceeds the balance.
func (l *Ledger) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount model.Money, meta model.WalletMeta) (*model.WalletTxn, error) {
	return l.apply(ctx, tx, userID, -amount, amount, meta)
}

// Credit adds amount to the wallet, creating it on first use.
func (l *Ledger) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount model.Money, meta model.WalletMeta) (*model.WalletTxn, error) {
	return l.apply(ctx, tx, userID, amount, amount, meta)
}

func (l *Ledger) apply(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta, amount model.Money, meta model.WalletMeta) (*model.WalletTxn, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}
	if err := l.store.Ensure(ctx, tx, userID); err != nil {
		return nil, err
	}

	balance, ok, err := l.store.ApplyDelta(ctx, tx, userID, delta)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.logger.Info().
			Str("user_id", userID.String()).
			Int64("amount", int64(amount)).
			Msg("insufficient wallet balance")
		return nil, model.ErrInsufficientBalance
	}

	txn := &model.WalletTxn{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        meta.Type,
		Amount:      delta,
		Description: meta.Description,
		Reference:   meta.Reference,
		Status:      model.WalletTxnCompleted,
		Balance:     balance,
	}
	if err := l.store.InsertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	l.logger.Debug().
		Str("user_id", userID.String()).
		Str("type", string(meta.Type)).
		Int64("amount", int64(delta)).
		Int64("balance", int64(balance)).
		Msg("wallet updated")

	return txn, nil
}
