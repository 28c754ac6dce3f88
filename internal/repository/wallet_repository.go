package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// walletRepository implements WalletRepository using PostgreSQL.
type walletRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWalletRepository creates a new PostgreSQL-backed wallet repository.
func NewWalletRepository(pool *pgxpool.Pool, logger zerolog.Logger) WalletRepository {
	return &walletRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "wallet").Logger(),
	}
}

// Ensure lazily creates a zero-balance wallet.
func (r *walletRepository) Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to ensure wallet")
		return fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return nil
}

// ApplyDelta changes the balance in one guarded statement so concurrent debits
// can never drive it below zero.
func (r *walletRepository) ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta model.Money) (model.Money, bool, error) {
	var balance model.Money
	err := tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1 AND balance + $2 >= 0
		RETURNING balance
	`, userID, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().
				Str("user_id", userID.String()).
				Int64("delta", int64(delta)).
				Msg("wallet balance guard rejected update")
			return 0, false, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to update wallet balance")
		return 0, false, fmt.Errorf("failed to update wallet balance: %w", err)
	}
	return balance, true, nil
}

// InsertTransaction appends a wallet ledger entry.
func (r *walletRepository) InsertTransaction(ctx context.Context, tx pgx.Tx, txn *model.WalletTxn) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Status == "" {
		txn.Status = model.WalletTxnCompleted
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO wallet_transactions (id, user_id, type, amount, description, reference, status, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, txn.ID, txn.UserID, txn.Type, txn.Amount, txn.Description, txn.Reference, txn.Status, txn.Balance).Scan(&txn.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", txn.UserID.String()).
			Str("type", string(txn.Type)).
			Msg("failed to insert wallet transaction")
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return nil
}

// Get reads the wallet and its latest limit entries.
func (r *walletRepository) Get(ctx context.Context, userID uuid.UUID, limit int) (*model.Wallet, error) {
	wallet := &model.Wallet{UserID: userID, Transactions: []model.WalletTxn{}}

	err := r.pool.QueryRow(ctx, `
		SELECT balance, updated_at FROM wallets WHERE user_id = $1
	`, userID).Scan(&wallet.Balance, &wallet.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query wallet")
		return nil, fmt.Errorf("failed to query wallet: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, amount, description, reference, status, balance_after, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query wallet transactions")
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.WalletTxn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description,
			&t.Reference, &t.Status, &t.Balance, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		wallet.Transactions = append(wallet.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet transactions: %w", err)
	}
	return wallet, nil
}
