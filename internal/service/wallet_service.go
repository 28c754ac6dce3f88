package service

import (
	"context"
	"fmt"

	"marketplace/internal/ledger"
	"marketplace/internal/metrics"
	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const walletHistoryLimit = 50

// WalletServiceParams wires the wallet service.
type WalletServiceParams struct {
	Transactor repository.Transactor
	Wallets    repository.WalletRepository
	Orders     repository.OrderRepository
	Wallet     WalletLedger
	Recorder   TransactionRecorder
	Metrics    *metrics.Metrics
	Config     CheckoutConfig
	Logger     zerolog.Logger
}

// walletService implements WalletService.
type walletService struct {
	transactor repository.Transactor
	wallets    repository.WalletRepository
	orders     repository.OrderRepository
	wallet     WalletLedger
	recorder   TransactionRecorder
	metrics    *metrics.Metrics
	cfg        CheckoutConfig
	logger     zerolog.Logger
}

// NewWalletService creates a new wallet service.
func NewWalletService(p WalletServiceParams) WalletService {
	return &walletService{
		transactor: p.Transactor,
		wallets:    p.Wallets,
		orders:     p.Orders,
		wallet:     p.Wallet,
		recorder:   p.Recorder,
		metrics:    p.Metrics,
		cfg:        p.Config,
		logger:     p.Logger.With().Str("service", "wallet").Logger(),
	}
}

// Get returns the wallet and its most recent transactions.
func (s *walletService) Get(ctx context.Context, userID uuid.UUID) (*model.Wallet, error) {
	w, err := s.wallets.Get(ctx, userID, walletHistoryLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get wallet")
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// Pay settles a PENDING-payment order from the buyer's wallet. amount must equal
// the stored order total.
func (s *walletService) Pay(ctx context.Context, actor model.Actor, req *model.WalletPayRequest) (resp *model.WalletPayResponse, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pay from wallet: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	order, err := s.orders.GetForUpdate(ctx, tx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || order.UserID != actor.UserID {
		return nil, model.ErrOrderNotFound
	}
	if order.Payment.Status != model.PaymentPending || order.Status == model.OrderCancelled {
		return nil, model.ErrPaymentState
	}
	// A live gateway intent may still be captured; paying it from the wallet too would charge twice.
	if order.Payment.ExternalOrderID != "" {
		return nil, fmt.Errorf("%w: order %s has an open gateway payment", model.ErrPaymentState, order.ID)
	}
	if req.Amount != order.Summary.CartTotal {
		return nil, model.ErrAmountMismatch
	}

	wtxn, err := s.wallet.Debit(ctx, tx, actor.UserID, order.Summary.CartTotal, model.WalletMeta{
		Type:        model.WalletDebitOrder,
		Description: "Payment for order " + order.ID,
		Reference:   order.ID,
	})
	if err != nil {
		return nil, err
	}

	order.Payment = model.Payment{Method: model.PaymentWallet, Status: model.PaymentCompleted}
	if err = s.orders.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
		return nil, err
	}

	completed, err := s.recorder.Complete(ctx, tx, order.ID, model.TxnOrderPayment)
	if err != nil {
		return nil, err
	}
	if !completed {
		if err = s.recorder.Record(ctx, tx, &model.PlatformTransaction{
			OrderID:     order.ID,
			Type:        model.TxnOrderPayment,
			Amount:      order.Summary.CartTotal,
			PlatformFee: ledger.Fees(order.Summary, s.cfg.SellerCommissionBPS),
			Status:      model.TxnCompleted,
			From:        model.Party{Entity: actor.UserID.String(), Type: model.PartyWallet},
			To:          model.Party{Entity: model.PlatformEntity, Type: model.PartyPlatform},
		}); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to pay from wallet: %w", err)
	}
	s.metrics.WalletOp(string(model.WalletDebitOrder))

	s.logger.Info().
		Str("order_id", order.ID).
		Str("user_id", actor.UserID.String()).
		Int64("amount", int64(order.Summary.CartTotal)).
		Msg("order paid from wallet")

	return &model.WalletPayResponse{RemainingBalance: wtxn.Balance, TransactionID: wtxn.ID}, nil
}

// Refund credits the total of a cancelled, paid order back to its buyer once.
func (s *walletService) Refund(ctx context.Context, actor model.Actor, req *model.WalletRefundRequest) (resp *model.WalletCreditResponse, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refund order: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	order, err := s.orders.GetForUpdate(ctx, tx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || (order.UserID != actor.UserID && !actor.IsAdmin()) {
		return nil, model.ErrOrderNotFound
	}
	if order.Status != model.OrderCancelled || order.Payment.Status != model.PaymentCompleted {
		return nil, model.ErrPaymentState
	}

	wtxn, err := s.wallet.Credit(ctx, tx, order.UserID, order.Summary.CartTotal, model.WalletMeta{
		Type:        model.WalletCreditRefund,
		Description: "Refund for cancelled order " + order.ID,
		Reference:   order.ID,
	})
	if err != nil {
		return nil, err
	}

	order.Payment.Status = model.PaymentRefunded
	if err = s.orders.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
		return nil, err
	}
	if err = s.recorder.Record(ctx, tx, &model.PlatformTransaction{
		OrderID:     order.ID,
		Type:        model.TxnRefund,
		Amount:      order.Summary.CartTotal,
		PlatformFee: model.FeeSplit{BuyerFee: order.Summary.PlatformFee},
		Status:      model.TxnCompleted,
		From:        model.Party{Entity: model.PlatformEntity, Type: model.PartyPlatform},
		To:          model.Party{Entity: order.UserID.String(), Type: model.PartyWallet},
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to refund order: %w", err)
	}
	s.metrics.WalletOp(string(model.WalletCreditRefund))

	s.logger.Info().
		Str("order_id", order.ID).
		Int64("amount", int64(order.Summary.CartTotal)).
		Msg("order refunded to wallet")

	return &model.WalletCreditResponse{NewBalance: wtxn.Balance, TransactionID: wtxn.ID}, nil
}

// Referral credits a referral bonus.
func (s *walletService) Referral(ctx context.Context, req *model.ReferralRequest) (*model.WalletCreditResponse, error) {
	return s.credit(ctx, req.UserID, req.Amount, model.WalletMeta{
		Type:        model.WalletCreditReferral,
		Description: "Referral bonus from " + req.Referrer,
		Reference:   req.Referrer,
	})
}

// Promo credits a promotional amount.
func (s *walletService) Promo(ctx context.Context, req *model.PromoRequest) (*model.WalletCreditResponse, error) {
	return s.credit(ctx, req.UserID, req.Amount, model.WalletMeta{
		Type:        model.WalletCreditPromo,
		Description: "Promotional credit " + req.Code,
		Reference:   req.Code,
	})
}

func (s *walletService) credit(ctx context.Context, userID uuid.UUID, amount model.Money, meta model.WalletMeta) (resp *model.WalletCreditResponse, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	wtxn, err := s.wallet.Credit(ctx, tx, userID, amount, meta)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}
	s.metrics.WalletOp(string(meta.Type))

	return &model.WalletCreditResponse{NewBalance: wtxn.Balance, TransactionID: wtxn.ID}, nil
}

