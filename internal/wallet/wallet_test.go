package wallet

import (
	"context"
	"errors"
	"testing"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore emulates the guarded balance update in memory.
type memStore struct {
	balances map[uuid.UUID]model.Money
	txns     []model.WalletTxn
	insertFn func() error
}

func newMemStore() *memStore {
	return &memStore{balances: map[uuid.UUID]model.Money{}}
}

func (m *memStore) Ensure(_ context.Context, _ pgx.Tx, userID uuid.UUID) error {
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = 0
	}
	return nil
}

func (m *memStore) ApplyDelta(_ context.Context, _ pgx.Tx, userID uuid.UUID, delta model.Money) (model.Money, bool, error) {
	next := m.balances[userID] + delta
	if next < 0 {
		return 0, false, nil
	}
	m.balances[userID] = next
	return next, true, nil
}

func (m *memStore) InsertTransaction(_ context.Context, _ pgx.Tx, txn *model.WalletTxn) error {
	if m.insertFn != nil {
		if err := m.insertFn(); err != nil {
			return err
		}
	}
	m.txns = append(m.txns, *txn)
	return nil
}

func TestLedger_CreditThenDebit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store, zerolog.Nop())
	user := uuid.New()

	credit, err := ledger.Credit(ctx, nil, user, 5000, model.WalletMeta{Type: model.WalletCreditPromo, Description: "Welcome"})
	require.NoError(t, err)
	assert.Equal(t, model.Money(5000), credit.Amount)
	assert.Equal(t, model.Money(5000), credit.Balance)
	assert.Equal(t, model.WalletTxnCompleted, credit.Status)

	debit, err := ledger.Debit(ctx, nil, user, 1200, model.WalletMeta{Type: model.WalletDebitOrder, Reference: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, model.Money(-1200), debit.Amount)
	assert.Equal(t, model.Money(3800), debit.Balance)
	assert.Equal(t, "ORD-1", debit.Reference)
	assert.NotEqual(t, credit.ID, debit.ID)

	var sum model.Money
	for _, txn := range store.txns {
		sum += txn.Amount
	}
	assert.Equal(t, store.balances[user], sum, "balance equals the sum of ledger amounts")
	assert.Equal(t, store.balances[user], store.txns[len(store.txns)-1].Balance, "balance equals the newest snapshot")
}

func TestLedger_Debit_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store, zerolog.Nop())
	user := uuid.New()

	_, err := ledger.Credit(ctx, nil, user, 1000, model.WalletMeta{Type: model.WalletCreditReferral})
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, nil, user, 1001, model.WalletMeta{Type: model.WalletDebitOrder})
	assert.ErrorIs(t, err, model.ErrInsufficientBalance)
	assert.Equal(t, model.Money(1000), store.balances[user])
	assert.Len(t, store.txns, 1)
}

func TestLedger_InvalidAmount(t *testing.T) {
	ledger := NewLedger(newMemStore(), zerolog.Nop())

	for _, amount := range []model.Money{0, -5} {
		_, err := ledger.Credit(context.Background(), nil, uuid.New(), amount, model.WalletMeta{})
		assert.ErrorIs(t, err, model.ErrInvalidAmount)
		_, err = ledger.Debit(context.Background(), nil, uuid.New(), amount, model.WalletMeta{})
		assert.ErrorIs(t, err, model.ErrInvalidAmount)
	}
}

func TestLedger_InsertError(t *testing.T) {
	boom := errors.New("insert failed")
	store := newMemStore()
	store.insertFn = func() error { return boom }

	_, err := NewLedger(store, zerolog.Nop()).Credit(context.Background(), nil, uuid.New(), 100, model.WalletMeta{})
	assert.ErrorIs(t, err, boom)
}
