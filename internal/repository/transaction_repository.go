package repository

import (
	"context"
	"fmt"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const transactionColumns = `
	id, order_id, type, amount, buyer_fee, seller_fee, status,
	from_entity, from_type, to_entity, to_type, created_at, updated_at`

// transactionRepository implements TransactionRepository using PostgreSQL.
type transactionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewTransactionRepository creates a new PostgreSQL-backed platform transaction repository.
func NewTransactionRepository(pool *pgxpool.Pool, logger zerolog.Logger) TransactionRepository {
	return &transactionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "transaction").Logger(),
	}
}

// Insert appends a platform transaction. A second live payout for the same
// order and seller is reported as ErrDuplicatePayout.
func (r *transactionRepository) Insert(ctx context.Context, tx pgx.Tx, txn *model.PlatformTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO platform_transactions (id, order_id, type, amount, buyer_fee, seller_fee, status,
		                                   from_entity, from_type, to_entity, to_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		txn.ID, txn.OrderID, txn.Type, txn.Amount, txn.PlatformFee.BuyerFee, txn.PlatformFee.SellerFee, txn.Status,
		txn.From.Entity, txn.From.Type, txn.To.Entity, txn.To.Type,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return model.ErrDuplicatePayout
		}
		r.logger.Error().Err(err).
			Str("order_id", txn.OrderID).
			Str("type", string(txn.Type)).
			Msg("failed to insert platform transaction")
		return fmt.Errorf("failed to insert platform transaction: %w", err)
	}
	return nil
}

// FindByOrder returns the order's transactions of typ in insertion order.
func (r *transactionRepository) FindByOrder(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) ([]model.PlatformTransaction, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM platform_transactions
		WHERE order_id = $1 AND type = $2
		ORDER BY seq
	`, orderID, typ)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to query platform transactions")
		return nil, fmt.Errorf("failed to query platform transactions: %w", err)
	}
	return r.collect(rows)
}

// UpdateStatus moves a PENDING transaction to status.
func (r *transactionRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TransactionStatus) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE platform_transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, status, model.TxnPending)
	if err != nil {
		r.logger.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to update platform transaction")
		return false, fmt.Errorf("failed to update platform transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListCompleted returns every COMPLETED transaction in insertion order.
func (r *transactionRepository) ListCompleted(ctx context.Context, tx pgx.Tx) ([]model.PlatformTransaction, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM platform_transactions
		WHERE status = $1
		ORDER BY seq
	`, model.TxnCompleted)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query completed transactions")
		return nil, fmt.Errorf("failed to query completed transactions: %w", err)
	}
	return r.collect(rows)
}

func (r *transactionRepository) collect(rows pgx.Rows) ([]model.PlatformTransaction, error) {
	defer rows.Close()

	var txns []model.PlatformTransaction
	for rows.Next() {
		var t model.PlatformTransaction
		err := rows.Scan(
			&t.ID, &t.OrderID, &t.Type, &t.Amount, &t.PlatformFee.BuyerFee, &t.PlatformFee.SellerFee, &t.Status,
			&t.From.Entity, &t.From.Type, &t.To.Entity, &t.To.Type, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan platform transaction row")
			return nil, fmt.Errorf("failed to scan platform transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform transactions: %w", err)
	}
	return txns, nil
}

// GetBalance reads the maintained platform balance.
func (r *transactionRepository) GetBalance(ctx context.Context) (*model.PlatformBalance, error) {
	return r.readBalance(ctx, r.pool, `SELECT held, earnings, updated_at FROM platform_balance WHERE id = 1`)
}

// LockBalance reads the platform balance under FOR UPDATE.
func (r *transactionRepository) LockBalance(ctx context.Context, tx pgx.Tx) (*model.PlatformBalance, error) {
	return r.readBalance(ctx, tx, `SELECT held, earnings, updated_at FROM platform_balance WHERE id = 1 FOR UPDATE`)
}

func (r *transactionRepository) readBalance(ctx context.Context, q querier, query string) (*model.PlatformBalance, error) {
	var b model.PlatformBalance
	if err := q.QueryRow(ctx, query).Scan(&b.Held, &b.Earnings, &b.UpdatedAt); err != nil {
		r.logger.Error().Err(err).Msg("failed to read platform balance")
		return nil, fmt.Errorf("failed to read platform balance: %w", err)
	}
	return &b, nil
}

// AddToBalance applies held and earnings deltas in one statement.
func (r *transactionRepository) AddToBalance(ctx context.Context, tx pgx.Tx, held, earnings model.Money) error {
	_, err := tx.Exec(ctx, `
		UPDATE platform_balance
		SET held = held + $1, earnings = earnings + $2, updated_at = NOW()
		WHERE id = 1
	`, held, earnings)
	if err != nil {
		r.logger.Error().Err(err).
			Int64("held", int64(held)).
			Int64("earnings", int64(earnings)).
			Msg("failed to update platform balance")
		return fmt.Errorf("failed to update platform balance: %w", err)
	}
	return nil
}

// SetBalance overwrites the platform balance.
func (r *transactionRepository) SetBalance(ctx context.Context, tx pgx.Tx, balance model.PlatformBalance) error {
	_, err := tx.Exec(ctx, `
		UPDATE platform_balance
		SET held = $1, earnings = $2, updated_at = NOW()
		WHERE id = 1
	`, balance.Held, balance.Earnings)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to overwrite platform balance")
		return fmt.Errorf("failed to overwrite platform balance: %w", err)
	}
	return nil
}
