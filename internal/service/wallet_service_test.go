package service

import (
	"context"
	"testing"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type walletFixture struct {
	catalogue
	tx         *MockTx
	transactor *MockTransactor
	wallets    *MockWalletRepository
	orders     *MockOrderRepository
	wallet     *MockWalletLedger
	recorder   *MockTransactionRecorder
	svc        WalletService
}

func newWalletFixture() *walletFixture {
	f := &walletFixture{
		catalogue:  newCatalogue(),
		tx:         newMockTx(),
		transactor: new(MockTransactor),
		wallets:    new(MockWalletRepository),
		orders:     new(MockOrderRepository),
		wallet:     new(MockWalletLedger),
		recorder:   new(MockTransactionRecorder),
	}
	f.transactor.On("BeginTx", mock.Anything).Return(f.tx, nil).Maybe()

	f.svc = NewWalletService(WalletServiceParams{
		Transactor: f.transactor,
		Wallets:    f.wallets,
		Orders:     f.orders,
		Wallet:     f.wallet,
		Recorder:   f.recorder,
		Config:     testCheckoutConfig(),
		Logger:     zerolog.Nop(),
	})
	return f
}

func (f *walletFixture) buyerActor() model.Actor {
	return model.Actor{UserID: f.buyer, Role: model.RoleUser}
}

func TestWalletService_Get(t *testing.T) {
	f := newWalletFixture()
	f.wallets.On("Get", mock.Anything, f.buyer, walletHistoryLimit).Return(&model.Wallet{UserID: f.buyer, Balance: 1200}, nil)

	w, err := f.svc.Get(context.Background(), f.buyer)

	require.NoError(t, err)
	assert.Equal(t, model.Money(1200), w.Balance)
}

func TestWalletService_Pay(t *testing.T) {
	t.Run("completes the pending payment record", func(t *testing.T) {
		f := newWalletFixture()
		txnID := uuid.New()
		f.orders.On("GetForUpdate", mock.Anything, mock.Anything, "ORD-1").
			Return(f.placedOrder(model.OrderPending, model.PaymentCOD, model.PaymentPending), nil)
		f.wallet.On("Debit", mock.Anything, mock.Anything, f.buyer, model.Money(51000), mock.MatchedBy(func(m model.WalletMeta) bool {
			return m.Type == model.WalletDebitOrder && m.Reference == "ORD-1"
		})).Return(&model.WalletTxn{ID: txnID, Balance: 4000}, nil)
		f.orders.On("UpdatePayment", mock.Anything, mock.Anything, "ORD-1", model.Payment{
			Method: model.PaymentWallet,
			Status: model.PaymentCompleted,
		}).Return(nil)
		f.recorder.On("Complete", mock.Anything, mock.Anything, "ORD-1", model.TxnOrderPayment).Return(true, nil)

		resp, err := f.svc.Pay(context.Background(), f.buyerActor(), &model.WalletPayRequest{OrderID: "ORD-1", Amount: 51000})

		require.NoError(t, err)
		assert.Equal(t, model.Money(4000), resp.RemainingBalance)
		assert.Equal(t, txnID, resp.TransactionID)
		assert.True(t, f.tx.committed)
		f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("records a payment when none is pending", func(t *testing.T) {
		f := newWalletFixture()
		f.orders.On("GetForUpdate", mock.Anything, mock.Anything, "ORD-1").
			Return(f.placedOrder(model.OrderPending, model.PaymentCOD, model.PaymentPending), nil)
		f.wallet.On("Debit", mock.Anything, mock.Anything, f.buyer, model.Money(51000), mock.Anything).
			Return(&model.WalletTxn{ID: uuid.New()}, nil)
		f.orders.On("UpdatePayment", mock.Anything, mock.Anything, "ORD-1", mock.Anything).Return(nil)
		f.recorder.On("Complete", mock.Anything, mock.Anything, "ORD-1", model.TxnOrderPayment).Return(false, nil)
		f.recorder.On("Record", mock.Anything, mock.Anything, mock.MatchedBy(func(txn *model.PlatformTransaction) bool {
			return txn.Status == model.TxnCompleted &&
				txn.From.Type == model.PartyWallet &&
				txn.PlatformFee == model.FeeSplit{BuyerFee: 1000, SellerFee: 2500}
		})).Return(nil)

		_, err := f.svc.Pay(context.Background(), f.buyerActor(), &model.WalletPayRequest{OrderID: "ORD-1", Amount: 51000})

		require.NoError(t, err)
		f.recorder.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		order   func(f *walletFixture) *model.Order
		amount  model.Money
		wantErr error
	}{
		{
			name: "amount differs from the order total",
			order: func(f *walletFixture) *model.Order {
				return f.placedOrder(model.OrderPending, model.PaymentCOD, model.PaymentPending)
			},
			amount:  50000,
			wantErr: model.ErrAmountMismatch,
		},
		{
			name: "gateway intent still open",
			order: func(f *walletFixture) *model.Order {
				return f.placedOrder(model.OrderPending, model.PaymentOnline, model.PaymentPending)
			},
			amount:  51000,
			wantErr: model.ErrPaymentState,
		},
		{
			name: "already paid",
			order: func(f *walletFixture) *model.Order {
				return f.placedOrder(model.OrderPending, model.PaymentOnline, model.PaymentCompleted)
			},
			amount:  51000,
			wantErr: model.ErrPaymentState,
		},
		{
			name: "cancelled order",
			order: func(f *walletFixture) *model.Order {
				return f.placedOrder(model.OrderCancelled, model.PaymentOnline, model.PaymentPending)
			},
			amount:  51000,
			wantErr: model.ErrPaymentState,
		},
		{
			name: "someone else's order",
			order: func(f *walletFixture) *model.Order {
				o := f.placedOrder(model.OrderPending, model.PaymentOnline, model.PaymentPending)
				o.UserID = uuid.New()
				return o
			},
			amount:  51000,
			wantErr: model.ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWalletFixture()
			f.orders.On("GetForUpdate", mock.Anything, mock.Anything, "ORD-1").Return(tt.order(f), nil)

			_, err := f.svc.Pay(context.Background(), f.buyerActor(), &model.WalletPayRequest{OrderID: "ORD-1", Amount: tt.amount})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, f.tx.rolledBack)
			f.wallet.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestWalletService_Refund(t *testing.T) {
	t.Run("credits a cancelled paid order once", func(t *testing.T) {
		f := newWalletFixture()
		f.orders.On("GetForUpdate", mock.Anything, mock.Anything, "ORD-1").
			Return(f.placedOrder(model.OrderCancelled, model.PaymentWallet, model.PaymentCompleted), nil)
		f.wallet.On("Credit", mock.Anything, mock.Anything, f.buyer, model.Money(51000), mock.MatchedBy(func(m model.WalletMeta) bool {
			return m.Type == model.WalletCreditRefund
		})).Return(&model.WalletTxn{ID: uuid.New(), Balance: 51000}, nil)
		f.orders.On("UpdatePayment", mock.Anything, mock.Anything, "ORD-1", mock.MatchedBy(func(p model.Payment) bool {
			return p.Status == model.PaymentRefunded
		})).Return(nil)
		f.recorder.On("Record", mock.Anything, mock.Anything, mock.MatchedBy(func(txn *model.PlatformTransaction) bool {
			return txn.Type == model.TxnRefund && txn.Amount == 51000 && txn.PlatformFee.BuyerFee == 1000
		})).Return(nil)

		resp, err := f.svc.Refund(context.Background(), f.buyerActor(), &model.WalletRefundRequest{OrderID: "ORD-1"})

		require.NoError(t, err)
		assert.Equal(t, model.Money(51000), resp.NewBalance)
		assert.True(t, f.tx.committed)
	})

	t.Run("already refunded", func(t *testing.T) {
		f := newWalletFixture()
		f.orders.On("GetForUpdate", mock.Anything, mock.Anything, "ORD-1").
			Return(f.placedOrder(model.OrderCancelled, model.PaymentWallet, model.PaymentRefunded), nil)

		_, err := f.svc.Refund(context.Background(), f.buyerActor(), &model.WalletRefundRequest{OrderID: "ORD-1"})

		assert.ErrorIs(t, err, model.ErrPaymentState)
		f.wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("order not cancelled", func(t *testing.T) {
		f := newWalletFixture()
		f.orders.On("GetForUpdate", mock.Anything, mock.Anything, "ORD-1").
			Return(f.placedOrder(model.OrderDelivered, model.PaymentWallet, model.PaymentCompleted), nil)

		_, err := f.svc.Refund(context.Background(), f.buyerActor(), &model.WalletRefundRequest{OrderID: "ORD-1"})

		assert.ErrorIs(t, err, model.ErrPaymentState)
	})
}

func TestWalletService_Credits(t *testing.T) {
	f := newWalletFixture()
	user := uuid.New()

	f.wallet.On("Credit", mock.Anything, mock.Anything, user, model.Money(500), mock.MatchedBy(func(m model.WalletMeta) bool {
		return m.Type == model.WalletCreditReferral && m.Reference == "friend-1"
	})).Return(&model.WalletTxn{ID: uuid.New(), Balance: 500}, nil).Once()
	f.wallet.On("Credit", mock.Anything, mock.Anything, user, model.Money(250), mock.MatchedBy(func(m model.WalletMeta) bool {
		return m.Type == model.WalletCreditPromo && m.Reference == "DIWALI"
	})).Return(&model.WalletTxn{ID: uuid.New(), Balance: 750}, nil).Once()

	resp, err := f.svc.Referral(context.Background(), &model.ReferralRequest{UserID: user, Amount: 500, Referrer: "friend-1"})
	require.NoError(t, err)
	assert.Equal(t, model.Money(500), resp.NewBalance)

	resp, err = f.svc.Promo(context.Background(), &model.PromoRequest{UserID: user, Amount: 250, Code: "DIWALI"})
	require.NoError(t, err)
	assert.Equal(t, model.Money(750), resp.NewBalance)

	f.wallet.AssertExpectations(t)
}
