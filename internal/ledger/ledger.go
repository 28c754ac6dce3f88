// Package ledger records platform money movement and maintains the admin balance.
package ledger

import (
	"context"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Store is the transaction persistence the recorder drives.
type Store interface {
	Insert(ctx context.Context, tx pgx.Tx, txn *model.PlatformTransaction) error
	FindByOrder(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) ([]model.PlatformTransaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.TransactionStatus) (bool, error)
	ListCompleted(ctx context.Context, tx pgx.Tx) ([]model.PlatformTransaction, error)
	GetBalance(ctx context.Context) (*model.PlatformBalance, error)
	LockBalance(ctx context.Context, tx pgx.Tx) (*model.PlatformBalance, error)
	AddToBalance(ctx context.Context, tx pgx.Tx, held, earnings model.Money) error
	SetBalance(ctx context.Context, tx pgx.Tx, balance model.PlatformBalance) error
}

// Recorder appends platform transactions and keeps the maintained balance in step
// with every transaction that reaches COMPLETED.
type Recorder struct {
	store      Store
	transactor repository.Transactor
	logger     zerolog.Logger
}

// NewRecorder creates a transaction recorder.
func NewRecorder(store Store, transactor repository.Transactor, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:      store,
		transactor: transactor,
		logger:     logger.With().Str("component", "ledger").Logger(),
	}
}

// Contribution is the signed effect of one COMPLETED transaction on the balance.
func Contribution(t model.PlatformTransaction) (held, earnings model.Money) {
	switch t.Type {
	case model.TxnOrderPayment:
		return t.Amount, t.PlatformFee.BuyerFee
	case model.TxnSellerPayout:
		return -t.Amount, t.PlatformFee.SellerFee
	case model.TxnRefund:
		return -t.Amount, -t.PlatformFee.BuyerFee
	}
	return 0, 0
}

// SellerFee is the platform commission, in basis points, on amount.
func SellerFee(amount model.Money, commissionBPS int64) model.Money {
	return amount.Percent(model.PercentFromBasisPoints(commissionBPS))
}

// Fees splits an order's platform cut: the flat platform fee from the buyer and
// the commission on item totals from the sellers.
func Fees(s model.OrderSummary, commissionBPS int64) model.FeeSplit {
	return model.FeeSplit{
		BuyerFee:  s.PlatformFee,
		SellerFee: SellerFee(s.ItemsTotal(), commissionBPS),
	}
}

// Replay folds Contribution over txns, ignoring anything not COMPLETED.
func Replay(txns []model.PlatformTransaction) model.PlatformBalance {
	var b model.PlatformBalance
	for _, t := range txns {
		if t.Status != model.TxnCompleted {
			continue
		}
		b = b.Add(Contribution(t))
	}
	return b
}

// Record appends txn. A COMPLETED transaction updates the balance in the same tx.
func (r *Recorder) Record(ctx context.Context, tx pgx.Tx, txn *model.PlatformTransaction) error {
	if txn.Amount < 0 {
		return model.ErrInvalidAmount
	}
	if err := r.store.Insert(ctx, tx, txn); err != nil {
		return err
	}
	if txn.Status == model.TxnCompleted {
		held, earnings := Contribution(*txn)
		if err := r.store.AddToBalance(ctx, tx, held, earnings); err != nil {
			return err
		}
	}

	r.logger.Debug().
		Str("order_id", txn.OrderID).
		Str("type", string(txn.Type)).
		Str("status", string(txn.Status)).
		Int64("amount", int64(txn.Amount)).
		Msg("platform transaction recorded")
	return nil
}

// Complete moves the order's PENDING transaction of typ to COMPLETED and applies it
// to the balance. It reports false when no PENDING transaction exists.
func (r *Recorder) Complete(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) (bool, error) {
	return r.settle(ctx, tx, orderID, typ, model.TxnCompleted)
}

// Fail moves the order's PENDING transaction of typ to FAILED.
func (r *Recorder) Fail(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) (bool, error) {
	return r.settle(ctx, tx, orderID, typ, model.TxnFailed)
}

func (r *Recorder) settle(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType, status model.TransactionStatus) (bool, error) {
	txns, err := r.store.FindByOrder(ctx, tx, orderID, typ)
	if err != nil {
		return false, err
	}
	for _, t := range txns {
		if t.Status != model.TxnPending {
			continue
		}
		ok, err := r.store.UpdateStatus(ctx, tx, t.ID, status)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if status == model.TxnCompleted {
			t.Status = status
			held, earnings := Contribution(t)
			if err := r.store.AddToBalance(ctx, tx, held, earnings); err != nil {
				return false, err
			}
		}
		r.logger.Debug().
			Str("order_id", orderID).
			Str("transaction_id", t.ID.String()).
			Str("status", string(status)).
			Msg("platform transaction settled")
		return true, nil
	}
	return false, nil
}

// Balance returns the maintained admin balance.
func (r *Recorder) Balance(ctx context.Context) (*model.PlatformBalance, error) {
	return r.store.GetBalance(ctx)
}

// Reconcile replays every COMPLETED transaction and compares the result with the
// maintained balance. With correct set, drift is overwritten by the replayed figures.
func (r *Recorder) Reconcile(ctx context.Context, correct bool) (*model.ReconcileReport, error) {
	tx, err := r.transactor.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cached, err := r.store.LockBalance(ctx, tx)
	if err != nil {
		return nil, err
	}
	txns, err := r.store.ListCompleted(ctx, tx)
	if err != nil {
		return nil, err
	}

	replayed := Replay(txns)
	report := &model.ReconcileReport{
		Cached:       *cached,
		Replayed:     replayed,
		Transactions: len(txns),
		Drift:        cached.Held != replayed.Held || cached.Earnings != replayed.Earnings,
	}

	if report.Drift {
		r.logger.Warn().
			Int64("cached_held", int64(cached.Held)).
			Int64("replayed_held", int64(replayed.Held)).
			Int64("cached_earnings", int64(cached.Earnings)).
			Int64("replayed_earnings", int64(replayed.Earnings)).
			Msg("platform balance drift detected")

		if correct {
			if err := r.store.SetBalance(ctx, tx, replayed); err != nil {
				return nil, err
			}
			report.Corrected = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	r.logger.Info().
		Int("transactions", report.Transactions).
		Bool("drift", report.Drift).
		Bool("corrected", report.Corrected).
		Msg("platform balance reconciled")

	return report, nil
}
