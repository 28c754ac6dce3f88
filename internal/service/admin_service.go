package service

import (
	"context"
	"fmt"

	"marketplace/internal/ledger"
	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// adminService implements AdminService.
type adminService struct {
	transactor    repository.Transactor
	orders        repository.OrderRepository
	recorder      TransactionRecorder
	commissionBPS int64
	logger        zerolog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(transactor repository.Transactor, orders repository.OrderRepository, recorder TransactionRecorder, cfg CheckoutConfig, logger zerolog.Logger) AdminService {
	return &adminService{
		transactor:    transactor,
		orders:        orders,
		recorder:      recorder,
		commissionBPS: cfg.SellerCommissionBPS,
		logger:        logger.With().Str("service", "admin").Logger(),
	}
}

type sellerShare struct {
	sellerID uuid.UUID
	gross    model.Money
}

// Payout records a SELLER_PAYOUT for every seller of a delivered, paid order. Each
// seller receives its item totals less the commission. A second payout for the
// same order and seller is rejected by the store.
func (s *adminService) Payout(ctx context.Context, req *model.PayoutRequest) (txns []model.PlatformTransaction, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record payout: %w", err)
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
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.Status != model.OrderDelivered || order.Payment.Status != model.PaymentCompleted {
		return nil, model.ErrPaymentState
	}

	var shares []sellerShare
	index := make(map[uuid.UUID]int)
	for _, item := range order.Items {
		i, ok := index[item.SellerID]
		if !ok {
			i = len(shares)
			index[item.SellerID] = i
			shares = append(shares, sellerShare{sellerID: item.SellerID})
		}
		shares[i].gross += item.LineTotal
	}

	for _, share := range shares {
		fee := ledger.SellerFee(share.gross, s.commissionBPS)
		txn := model.PlatformTransaction{
			OrderID:     order.ID,
			Type:        model.TxnSellerPayout,
			Amount:      share.gross - fee,
			PlatformFee: model.FeeSplit{SellerFee: fee},
			Status:      model.TxnCompleted,
			From:        model.Party{Entity: model.PlatformEntity, Type: model.PartyPlatform},
			To:          model.Party{Entity: share.sellerID.String(), Type: model.PartySeller},
		}
		if err = s.recorder.Record(ctx, tx, &txn); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to record payout: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Int("sellers", len(txns)).
		Msg("seller payouts recorded")
	return txns, nil
}

// Balance returns the maintained platform balance.
func (s *adminService) Balance(ctx context.Context) (*model.PlatformBalance, error) {
	b, err := s.recorder.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get platform balance: %w", err)
	}
	return b, nil
}

// Reconcile replays the log and optionally corrects drift.
func (s *adminService) Reconcile(ctx context.Context, correct bool) (*model.ReconcileReport, error) {
	return s.recorder.Reconcile(ctx, correct)
}
