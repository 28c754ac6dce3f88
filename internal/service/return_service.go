package service

import (
	"context"
	"fmt"

	"marketplace/internal/metrics"
	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/internal/workflow"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ReturnServiceParams wires the return service.
type ReturnServiceParams struct {
	Transactor repository.Transactor
	Orders     repository.OrderRepository
	Returns    repository.ReturnRepository
	Stock      StockReserver
	Wallet     WalletLedger
	Recorder   TransactionRecorder
	Metrics    *metrics.Metrics
	Config     CheckoutConfig
	Logger     zerolog.Logger
}

// returnService implements ReturnService.
type returnService struct {
	transactor repository.Transactor
	orders     repository.OrderRepository
	returns    repository.ReturnRepository
	stock      StockReserver
	wallet     WalletLedger
	recorder   TransactionRecorder
	metrics    *metrics.Metrics
	cfg        CheckoutConfig
	logger     zerolog.Logger
}

// NewReturnService creates a new return service.
func NewReturnService(p ReturnServiceParams) ReturnService {
	return &returnService{
		transactor: p.Transactor,
		orders:     p.Orders,
		returns:    p.Returns,
		stock:      p.Stock,
		wallet:     p.Wallet,
		recorder:   p.Recorder,
		metrics:    p.Metrics,
		cfg:        p.Config,
		logger:     p.Logger.With().Str("service", "return").Logger(),
	}
}

// Create opens a return for one item of a delivered order. The order moves to
// RETURN-REQUESTED if its buyer has not already requested the return.
func (s *returnService) Create(ctx context.Context, actor model.Actor, req *model.CreateReturnRequest) (ret *model.Return, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create return: %w", err)
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
	if order.Status != model.OrderDelivered && order.Status != model.OrderReturnRequested {
		return nil, fmt.Errorf("%w: order %s cannot be returned", model.ErrInvalidTransition, order.Status)
	}
	now := s.cfg.now()
	if err = checkReturnWindow(order, s.cfg.ReturnWindow, now); err != nil {
		return nil, err
	}

	item, ok := order.Item(req.ItemID)
	if !ok {
		return nil, model.ErrOrderItemNotFound
	}

	open, err := s.returns.HasOpen(ctx, tx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open returns: %w", err)
	}
	if open {
		return nil, model.ErrReturnInProgress
	}

	condition := req.Condition
	if condition == "" {
		condition = model.ConditionUnopened
	}

	ret = &model.Return{
		ID:      uuid.New(),
		OrderID: order.ID,
		UserID:  order.UserID,
		Items: []model.ReturnItem{{
			OrderItemID:  item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Quantity:     item.Quantity,
			ReturnReason: req.ReturnReason,
			Condition:    condition,
		}},
		Status:       model.ReturnRequested,
		ReturnAmount: item.LineTotal.Min(order.Summary.ItemsTotal()),
		Timeline: []model.TimelineEntry{{
			Status:    model.ReturnRequested,
			Comment:   req.ReturnReason,
			UpdatedBy: actor.UserID,
			Timestamp: now,
		}},
		PickupAddress: order.AddressID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = s.returns.Create(ctx, tx, ret); err != nil {
		return nil, err
	}

	if order.Status == model.OrderDelivered {
		if err = s.orders.UpdateStatus(ctx, tx, order.ID, model.TrackingEntry{
			Status:      model.OrderReturnRequested,
			Timestamp:   now,
			Description: "Return requested: " + req.ReturnReason,
		}); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create return: %w", err)
	}

	s.logger.Info().
		Str("return_id", ret.ID.String()).
		Str("order_id", order.ID).
		Int64("amount", int64(ret.ReturnAmount)).
		Msg("return created")
	return ret, nil
}

// GetByID retrieves a return visible to its buyer, a seller of the order, or an admin.
func (s *returnService) GetByID(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Return, error) {
	ret, err := s.returns.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get return: %w", err)
	}
	if ret == nil {
		return nil, model.ErrReturnNotFound
	}
	if actor.IsAdmin() || ret.UserID == actor.UserID {
		return ret, nil
	}
	if actor.Role == model.RoleSeller {
		order, err := s.orders.GetByID(ctx, ret.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		if order != nil && order.HasSeller(actor.UserID) {
			return ret, nil
		}
	}
	return nil, model.ErrReturnNotFound
}

// UpdateStatus applies a return transition. Buyers may only cancel their own
// return. The order becomes RETURNED only after the wallet credit and the REFUND
// record have been written in the same transaction.
func (s *returnService) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateReturnRequest) (ret *model.Return, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update return: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	ret, err = s.returns.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get return: %w", err)
	}
	if ret == nil {
		return nil, model.ErrReturnNotFound
	}

	switch {
	case actor.IsAdmin():
	case ret.UserID == actor.UserID:
		if req.Status != model.ReturnCancelled {
			return nil, model.ErrForbidden
		}
	default:
		return nil, model.ErrReturnNotFound
	}

	if err = workflow.Returns.Check(ret.Status, req.Status, actor.IsAdmin()); err != nil {
		return nil, err
	}

	order, err := s.orders.GetForUpdate(ctx, tx, ret.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	now := s.cfg.now()
	comment := req.Comment
	switch req.Status {
	case model.ReturnApproved:
		if order.Status != model.OrderReturnProcessing {
			err = s.moveOrder(ctx, tx, order, model.OrderReturnProcessing, "Return approved")
		}
	case model.ReturnRejected, model.ReturnCancelled:
		err = s.reopenOrder(ctx, tx, order, "Return "+lowerStatus(req.Status))
	case model.ReturnRefundCompleted:
		comment = description(comment, fmt.Sprintf("Refunded %s to wallet", ret.ReturnAmount))
		err = s.refund(ctx, tx, ret, order)
	}
	if err != nil {
		return nil, err
	}

	entry := model.TimelineEntry{Status: req.Status, Comment: comment, UpdatedBy: actor.UserID, Timestamp: now}
	if err = s.returns.UpdateStatus(ctx, tx, ret.ID, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update return: %w", err)
	}

	if req.Status == model.ReturnRefundCompleted && ret.ReturnAmount > 0 {
		s.metrics.WalletOp(string(model.WalletCreditReturn))
	}

	ret.Status = req.Status
	ret.UpdatedAt = now
	ret.Timeline = append(ret.Timeline, entry)

	s.logger.Info().
		Str("return_id", ret.ID.String()).
		Str("order_id", ret.OrderID).
		Str("status", string(ret.Status)).
		Msg("return status updated")
	return ret, nil
}

// refund credits the buyer, records the REFUND, restocks resaleable items and
// only then marks the order RETURNED. Money is only refunded once it was collected.
// An admin may complete a refund straight from RETURN_REQUESTED, so the order
// moves to RETURNED from either open return status.
func (s *returnService) refund(ctx context.Context, tx pgx.Tx, ret *model.Return, order *model.Order) error {
	if !workflow.InReturn(order.Status) {
		return fmt.Errorf("%w: order %s has no open return", model.ErrInvalidTransition, order.Status)
	}
	if order.Payment.Status != model.PaymentCompleted {
		return fmt.Errorf("%w: order payment is %s", model.ErrPaymentState, order.Payment.Status)
	}

	if ret.ReturnAmount > 0 {
		if _, err := s.wallet.Credit(ctx, tx, ret.UserID, ret.ReturnAmount, model.WalletMeta{
			Type:        model.WalletCreditReturn,
			Description: "Refund for return on order " + order.ID,
			Reference:   ret.ID.String(),
		}); err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, tx, &model.PlatformTransaction{
			OrderID: order.ID,
			Type:    model.TxnRefund,
			Amount:  ret.ReturnAmount,
			Status:  model.TxnCompleted,
			From:    model.Party{Entity: model.PlatformEntity, Type: model.PartyPlatform},
			To:      model.Party{Entity: ret.UserID.String(), Type: model.PartyWallet},
		}); err != nil {
			return err
		}
	}

	var restock []model.CartLine
	for _, item := range ret.Items {
		if item.Condition == model.ConditionDamaged {
			continue
		}
		restock = append(restock, model.CartLine{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity})
	}
	if len(restock) > 0 {
		if err := s.stock.Release(ctx, tx, restock); err != nil {
			return err
		}
	}

	return s.orders.UpdateStatus(ctx, tx, order.ID, model.TrackingEntry{
		Status:      model.OrderReturned,
		Timestamp:   s.cfg.now(),
		Description: "Order returned and refunded",
	})
}

func (s *returnService) moveOrder(ctx context.Context, tx pgx.Tx, order *model.Order, to model.OrderStatus, desc string) error {
	if err := workflow.Orders.Check(order.Status, to, false); err != nil {
		return err
	}
	return s.orders.UpdateStatus(ctx, tx, order.ID, model.TrackingEntry{Status: to, Timestamp: s.cfg.now(), Description: desc})
}

// reopenOrder puts an order whose return ended without a refund back to DELIVERED.
func (s *returnService) reopenOrder(ctx context.Context, tx pgx.Tx, order *model.Order, desc string) error {
	if !workflow.InReturn(order.Status) {
		return nil
	}
	return s.orders.UpdateStatus(ctx, tx, order.ID, model.TrackingEntry{Status: model.OrderDelivered, Timestamp: s.cfg.now(), Description: desc})
}

func lowerStatus(s model.ReturnStatus) string {
	switch s {
	case model.ReturnRejected:
		return "rejected"
	case model.ReturnCancelled:
		return "cancelled"
	}
	return string(s)
}
