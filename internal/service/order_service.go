package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/coupon"
	"marketplace/internal/ledger"
	"marketplace/internal/metrics"
	"marketplace/internal/model"
	"marketplace/internal/payment"
	"marketplace/internal/pricing"
	"marketplace/internal/repository"
	"marketplace/internal/stock"
	"marketplace/internal/workflow"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// StockReserver reserves and releases variant stock inside a transaction.
type StockReserver interface {
	Reserve(ctx context.Context, tx pgx.Tx, lines []model.CartLine) error
	Release(ctx context.Context, tx pgx.Tx, lines []model.CartLine) error
}

// WalletLedger applies guarded wallet debits and credits inside a transaction.
type WalletLedger interface {
	Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount model.Money, meta model.WalletMeta) (*model.WalletTxn, error)
	Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount model.Money, meta model.WalletMeta) (*model.WalletTxn, error)
}

// TransactionRecorder appends platform transactions and settles pending ones.
type TransactionRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, txn *model.PlatformTransaction) error
	Complete(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) (bool, error)
	Fail(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) (bool, error)
	Balance(ctx context.Context) (*model.PlatformBalance, error)
	Reconcile(ctx context.Context, correct bool) (*model.ReconcileReport, error)
}

// CheckoutConfig holds the order rules that are not part of pricing.
type CheckoutConfig struct {
	SellerCommissionBPS int64
	ReturnWindow        time.Duration
	GatewayTimeout      time.Duration
	Currency            string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (c CheckoutConfig) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// OrderServiceParams wires the order service.
type OrderServiceParams struct {
	Transactor repository.Transactor
	Orders     repository.OrderRepository
	Products   repository.ProductRepository
	Addresses  repository.AddressRepository
	Carts      repository.CartRepository
	Stock      StockReserver
	Coupons    coupon.Validator
	Wallet     WalletLedger
	Recorder   TransactionRecorder
	Gateway    payment.Gateway
	Pricing    *pricing.Engine
	Metrics    *metrics.Metrics
	Config     CheckoutConfig
	Logger     zerolog.Logger
}

// orderService implements OrderService.
type orderService struct {
	transactor repository.Transactor
	orders     repository.OrderRepository
	products   repository.ProductRepository
	addresses  repository.AddressRepository
	carts      repository.CartRepository
	stock      StockReserver
	coupons    coupon.Validator
	wallet     WalletLedger
	recorder   TransactionRecorder
	gateway    payment.Gateway
	pricing    *pricing.Engine
	metrics    *metrics.Metrics
	cfg        CheckoutConfig
	logger     zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(p OrderServiceParams) OrderService {
	return &orderService{
		transactor: p.Transactor,
		orders:     p.Orders,
		products:   p.Products,
		addresses:  p.Addresses,
		carts:      p.Carts,
		stock:      p.Stock,
		coupons:    p.Coupons,
		wallet:     p.Wallet,
		recorder:   p.Recorder,
		gateway:    p.Gateway,
		pricing:    p.Pricing,
		metrics:    p.Metrics,
		cfg:        p.Config,
		logger:     p.Logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder runs checkout in one transaction: stored cart check, repricing, stock
// reservation, coupon consumption, the payment branch, order persistence, cart
// clearing and the ORDER_PAYMENT record. Any failure rolls the whole unit back.
func (s *orderService) CreateOrder(ctx context.Context, actor model.Actor, req *model.CreateOrderRequest) (resp *model.CreateOrderResponse, err error) {
	defer func() {
		if err != nil {
			s.metrics.CheckoutFailed(errorCode(err))
		}
	}()

	if err = validateCreateOrder(req); err != nil {
		return nil, err
	}

	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	lines, err := s.carts.LockLines(ctx, tx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, model.ErrEmptyCart
	}
	if !sameLines(lines, req.CartSnapshot) {
		s.logger.Info().Str("user_id", actor.UserID.String()).Msg("cart snapshot does not match stored cart")
		return nil, model.ErrCartMismatch
	}

	address, err := s.addresses.GetByID(ctx, actor.UserID, req.AddressID)
	if err != nil {
		return nil, fmt.Errorf("failed to read address: %w", err)
	}
	if address == nil {
		return nil, model.ErrAddressNotFound
	}

	products, err := s.products.GetByIDs(ctx, productIDs(lines))
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	quote, err := s.pricing.Quote(products, lines)
	if err != nil {
		return nil, err
	}

	if err = s.stock.Reserve(ctx, tx, lines); err != nil {
		return nil, err
	}

	if req.CouponID != nil {
		var discount model.Money
		discount, err = s.coupons.Apply(ctx, tx, *req.CouponID, actor.UserID, quote.CouponBase())
		if err != nil {
			return nil, err
		}
		quote.WithCoupon(discount)
	}

	now := s.cfg.now()
	order := &model.Order{
		ID:        NewOrderID(now),
		UserID:    actor.UserID,
		AddressID: address.ID,
		CouponID:  req.CouponID,
		Items:     quote.Items,
		Summary:   quote.Summary,
		Payment:   model.Payment{Method: req.PaymentMethod, Status: model.PaymentPending},
		Status:    model.OrderPending,
		TrackingDetails: []model.TrackingEntry{
			{Status: model.OrderPending, Timestamp: now, Description: "Order placed"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}

	txn := &model.PlatformTransaction{
		OrderID:     order.ID,
		Type:        model.TxnOrderPayment,
		Amount:      order.Summary.CartTotal,
		PlatformFee: ledger.Fees(order.Summary, s.cfg.SellerCommissionBPS),
		Status:      model.TxnPending,
		From:        model.Party{Entity: actor.UserID.String(), Type: model.PartyBuyer},
		To:          model.Party{Entity: model.PlatformEntity, Type: model.PartyPlatform},
	}

	switch req.PaymentMethod {
	case model.PaymentWallet:
		if _, err = s.wallet.Debit(ctx, tx, actor.UserID, order.Summary.CartTotal, model.WalletMeta{
			Type:        model.WalletDebitOrder,
			Description: "Payment for order " + order.ID,
			Reference:   order.ID,
		}); err != nil {
			return nil, err
		}
		order.Payment.Status = model.PaymentCompleted
		txn.Status = model.TxnCompleted
		txn.From.Type = model.PartyWallet
	case model.PaymentOnline:
		var externalID string
		externalID, err = s.createIntent(ctx, order.Summary.CartTotal, order.ID)
		if err != nil {
			return nil, err
		}
		order.Payment.ExternalOrderID = externalID
		txn.From.Type = model.PartyGateway
	}

	if err = s.orders.Create(ctx, tx, order); err != nil {
		return nil, err
	}
	if err = s.carts.Clear(ctx, tx, actor.UserID); err != nil {
		return nil, err
	}
	if err = s.recorder.Record(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.metrics.OrderCreated(string(req.PaymentMethod))
	if req.CouponID != nil {
		s.metrics.CouponRedeemed()
	}
	if req.PaymentMethod == model.PaymentWallet {
		s.metrics.WalletOp(string(model.WalletDebitOrder))
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("user_id", actor.UserID.String()).
		Str("payment_method", string(req.PaymentMethod)).
		Int64("total", int64(order.Summary.CartTotal)).
		Int("item_count", len(order.Items)).
		Msg("order created successfully")

	return &model.CreateOrderResponse{
		OrderID:         order.ID,
		Total:           order.Summary.CartTotal,
		Status:          order.Status,
		PaymentStatus:   order.Payment.Status,
		ExternalOrderID: order.Payment.ExternalOrderID,
	}, nil
}

// createIntent calls the gateway under the checkout timeout. Any failure is
// reported as ErrGatewayUnavailable so the caller retries the whole checkout.
func (s *orderService) createIntent(ctx context.Context, amount model.Money, receipt string) (string, error) {
	ictx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	id, err := s.gateway.CreateIntent(ictx, amount, receipt)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", receipt).Msg("payment gateway unavailable")
		return "", fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err)
	}
	return id, nil
}

// GetByID retrieves an order visible to the actor: its buyer, a seller of one of
// its items, or an admin.
func (s *orderService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !canView(actor, order) {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus applies a fulfilment transition. Sellers must sell at least one
// item of the order and follow the table; return-family statuses belong to the
// return workflow. Admins may force any known status.
func (s *orderService) UpdateStatus(ctx context.Context, actor model.Actor, id string, req *model.UpdateOrderStatusRequest) (resp *model.OrderStatusResponse, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	order, err := s.lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsAdmin():
	case actor.Role == model.RoleSeller && order.HasSeller(actor.UserID):
		if workflow.ReturnFamily(req.Status) {
			return nil, fmt.Errorf("%w: %s is driven by the return workflow", model.ErrInvalidTransition, req.Status)
		}
		if awaitingOnlinePayment(order) && req.Status != model.OrderCancelled {
			return nil, fmt.Errorf("%w: order %s is not paid yet", model.ErrPaymentState, order.ID)
		}
	default:
		return nil, model.ErrForbidden
	}

	if err = workflow.Orders.Check(order.Status, req.Status, actor.IsAdmin()); err != nil {
		return nil, err
	}

	if req.Status == model.OrderCancelled {
		err = s.cancel(ctx, tx, order, description(req.Description, "Order cancelled"))
	} else {
		err = s.transition(ctx, tx, order, req.Status, description(req.Description, "Order "+strings.ToLower(string(req.Status))))
	}
	if err != nil {
		return nil, err
	}

	if req.Status == model.OrderDelivered && order.Payment.Method == model.PaymentCOD && order.Payment.Status == model.PaymentPending {
		order.Payment.Status = model.PaymentCompleted
		if err = s.orders.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
			return nil, err
		}
		if _, err = s.recorder.Complete(ctx, tx, order.ID, model.TxnOrderPayment); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("status", string(order.Status)).
		Str("actor", actor.UserID.String()).
		Bool("forced", actor.IsAdmin()).
		Msg("order status updated")

	return statusResponse(order), nil
}

// Cancel cancels an order on behalf of its buyer or an admin.
func (s *orderService) Cancel(ctx context.Context, actor model.Actor, id string) (resp *model.OrderStatusResponse, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	order, err := s.lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, model.ErrOrderNotFound
	}
	if !workflow.Cancellable(order.Status) {
		return nil, fmt.Errorf("%w: order %s cannot be cancelled", model.ErrInvalidTransition, order.Status)
	}

	if err = s.cancel(ctx, tx, order, "Order cancelled by customer"); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	s.logger.Info().Str("order_id", order.ID).Msg("order cancelled")
	return statusResponse(order), nil
}

// cancel restores stock and returns the coupon use while the order still holds
// its reservation, and fails a pending payment. Completed payments stay COMPLETED
// until an explicit refund.
func (s *orderService) cancel(ctx context.Context, tx pgx.Tx, order *model.Order, desc string) error {
	if workflow.HoldsStock(order.Status) {
		if err := s.stock.Release(ctx, tx, stock.LinesFromItems(order.Items)); err != nil {
			return err
		}
		if order.CouponID != nil {
			if err := s.coupons.Release(ctx, tx, *order.CouponID, order.UserID); err != nil {
				return err
			}
		}
	}
	if order.Payment.Status == model.PaymentPending {
		order.Payment.Status = model.PaymentFailed
		if err := s.orders.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
			return err
		}
		if _, err := s.recorder.Fail(ctx, tx, order.ID, model.TxnOrderPayment); err != nil {
			return err
		}
	}
	return s.transition(ctx, tx, order, model.OrderCancelled, desc)
}

// RequestReturn moves a delivered order to RETURN-REQUESTED.
func (s *orderService) RequestReturn(ctx context.Context, actor model.Actor, id string, req *model.ReturnOrderRequest) (resp *model.OrderStatusResponse, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to request return: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	order, err := s.lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		return nil, model.ErrOrderNotFound
	}
	if err = workflow.Orders.Check(order.Status, model.OrderReturnRequested, false); err != nil {
		return nil, err
	}
	if err = checkReturnWindow(order, s.cfg.ReturnWindow, s.cfg.now()); err != nil {
		return nil, err
	}

	if err = s.transition(ctx, tx, order, model.OrderReturnRequested, "Return requested: "+req.ReturnReason); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to request return: %w", err)
	}
	return statusResponse(order), nil
}

// CreatePaymentIntent replaces the gateway order of an unpaid ONLINE order. The
// submitted amount must equal the stored total.
func (s *orderService) CreatePaymentIntent(ctx context.Context, actor model.Actor, req *model.PaymentIntentRequest) (resp *model.PaymentIntentResponse, err error) {
	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	order, err := s.lockOrder(ctx, tx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		return nil, model.ErrOrderNotFound
	}
	if order.Payment.Method != model.PaymentOnline || order.Payment.Status != model.PaymentPending || order.Status == model.OrderCancelled {
		return nil, model.ErrPaymentState
	}
	if req.Amount != order.Summary.CartTotal {
		return nil, model.ErrAmountMismatch
	}

	externalID, err := s.createIntent(ctx, order.Summary.CartTotal, order.ID)
	if err != nil {
		return nil, err
	}
	order.Payment.ExternalOrderID = externalID
	if err = s.orders.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &model.PaymentIntentResponse{Order: model.PaymentIntent{
		ID:       externalID,
		Amount:   order.Summary.CartTotal,
		Currency: s.cfg.Currency,
		Receipt:  order.ID,
	}}, nil
}

// VerifyPayment rejects a bad signature before touching any state. A verified
// callback for an already COMPLETED payment succeeds without side effects.
func (s *orderService) VerifyPayment(ctx context.Context, req *model.VerifyPaymentRequest) (resp *model.VerifyPaymentResponse, err error) {
	if !s.gateway.Verify(req.ExternalOrderID, req.ExternalPaymentID, req.Signature) {
		s.logger.Warn().
			Str("external_order_id", req.ExternalOrderID).
			Str("external_payment_id", req.ExternalPaymentID).
			Msg("payment signature verification failed")
		return nil, model.ErrSignatureInvalid
	}

	tx, err := s.transactor.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, s.logger)
		}
	}()

	order, err := s.orders.GetByExternalIDForUpdate(ctx, tx, req.ExternalOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	switch order.Payment.Status {
	case model.PaymentCompleted:
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to verify payment: %w", err)
		}
		return &model.VerifyPaymentResponse{Verified: true, OrderID: order.ID}, nil
	case model.PaymentPending:
	default:
		return nil, model.ErrPaymentState
	}

	order.Payment.Status = model.PaymentCompleted
	order.Payment.ExternalPaymentID = req.ExternalPaymentID
	if err = s.orders.UpdatePayment(ctx, tx, order.ID, order.Payment); err != nil {
		return nil, err
	}
	if _, err = s.recorder.Complete(ctx, tx, order.ID, model.TxnOrderPayment); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("external_payment_id", req.ExternalPaymentID).
		Msg("payment verified")

	return &model.VerifyPaymentResponse{Verified: true, OrderID: order.ID}, nil
}

func (s *orderService) lockOrder(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error) {
	order, err := s.orders.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) transition(ctx context.Context, tx pgx.Tx, order *model.Order, to model.OrderStatus, desc string) error {
	entry := model.TrackingEntry{Status: to, Timestamp: s.cfg.now(), Description: desc}
	if err := s.orders.UpdateStatus(ctx, tx, order.ID, entry); err != nil {
		return err
	}
	order.Status = to
	order.TrackingDetails = append(order.TrackingDetails, entry)
	return nil
}

// awaitingOnlinePayment reports whether an ONLINE order has not been paid at the gateway yet.
func awaitingOnlinePayment(order *model.Order) bool {
	return order.Payment.Method == model.PaymentOnline && order.Payment.Status != model.PaymentCompleted
}

// rollback aborts tx after a failed step. A closed tx is not an error.
func rollback(ctx context.Context, tx pgx.Tx, logger zerolog.Logger) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Error().Err(err).Msg("failed to rollback transaction")
	}
}

// NewOrderID returns a human-readable order id: ORD-YYYYMMDD-XXXXXXXX.
func NewOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + now.Format("20060102") + "-" + suffix
}

func validateCreateOrder(req *model.CreateOrderRequest) error {
	if req == nil || len(req.CartSnapshot) == 0 {
		return model.ErrEmptyCart
	}
	if !req.PaymentMethod.Valid() {
		return model.ErrInvalidPayment
	}
	for _, line := range req.CartSnapshot {
		if line.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
	}
	return nil
}

type lineKey struct {
	product uuid.UUID
	variant uuid.UUID
}

func lineTotals(lines []model.CartLine) map[lineKey]int {
	totals := make(map[lineKey]int, len(lines))
	for _, line := range lines {
		totals[lineKey{line.ProductID, line.VariantID}] += line.Quantity
	}
	return totals
}

// sameLines reports whether both carts hold the same quantity of every variant.
func sameLines(stored, submitted []model.CartLine) bool {
	a, b := lineTotals(stored), lineTotals(submitted)
	if len(a) != len(b) {
		return false
	}
	for k, qty := range a {
		if b[k] != qty {
			return false
		}
	}
	return true
}

func productIDs(lines []model.CartLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

func canView(actor model.Actor, order *model.Order) bool {
	switch {
	case actor.IsAdmin():
		return true
	case order.UserID == actor.UserID:
		return true
	case actor.Role == model.RoleSeller:
		return order.HasSeller(actor.UserID)
	}
	return false
}

// checkReturnWindow requires a delivery event no older than window.
func checkReturnWindow(order *model.Order, window time.Duration, now time.Time) error {
	delivered, ok := order.DeliveredAt()
	if !ok {
		return fmt.Errorf("%w: order has no delivery event", model.ErrInvalidTransition)
	}
	if now.Sub(delivered) > window {
		return model.ErrReturnWindowClosed
	}
	return nil
}

func statusResponse(order *model.Order) *model.OrderStatusResponse {
	return &model.OrderStatusResponse{
		OrderID:         order.ID,
		Status:          order.Status,
		TrackingDetails: order.TrackingDetails,
	}
}

func description(given, fallback string) string {
	if strings.TrimSpace(given) == "" {
		return fallback
	}
	return given
}

// errorCode is the metrics label for a failed operation.
func errorCode(err error) string {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return model.ErrCodeInternalError
}
