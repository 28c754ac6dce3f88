package service

import (
	"context"
	"time"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// newMockTx expects a commit and tolerates the deferred rollback.
func newMockTx() *MockTx {
	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(nil).Maybe()
	tx.On("Rollback", mock.Anything).Return(nil).Maybe()
	return tx
}

// MockTransactor is a mock implementation of repository.Transactor.
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*model.Product), args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) (bool, error) {
	args := m.Called(ctx, tx, variantID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) IncrementStock(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error {
	args := m.Called(ctx, tx, variantID, qty)
	return args.Error(0)
}

// MockAddressRepository is a mock implementation of AddressRepository.
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*model.Address, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) AddQuantity(ctx context.Context, line model.CartLine, userID uuid.UUID) error {
	args := m.Called(ctx, line, userID)
	return args.Error(0)
}

func (m *MockCartRepository) SetQuantity(ctx context.Context, line model.CartLine, userID uuid.UUID) error {
	args := m.Called(ctx, line, userID)
	return args.Error(0)
}

func (m *MockCartRepository) LockLines(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]model.CartLine, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) Clear(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByExternalIDForUpdate(ctx context.Context, tx pgx.Tx, externalOrderID string) (*model.Order, error) {
	args := m.Called(ctx, tx, externalOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, entry model.TrackingEntry) error {
	args := m.Called(ctx, tx, id, entry)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePayment(ctx context.Context, tx pgx.Tx, id string, payment model.Payment) error {
	args := m.Called(ctx, tx, id, payment)
	return args.Error(0)
}

// MockReturnRepository is a mock implementation of ReturnRepository.
type MockReturnRepository struct {
	mock.Mock
}

func (m *MockReturnRepository) Create(ctx context.Context, tx pgx.Tx, ret *model.Return) error {
	args := m.Called(ctx, tx, ret)
	return args.Error(0)
}

func (m *MockReturnRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Return, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Return), args.Error(1)
}

func (m *MockReturnRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Return, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Return), args.Error(1)
}

func (m *MockReturnRepository) HasOpen(ctx context.Context, tx pgx.Tx, orderID string) (bool, error) {
	args := m.Called(ctx, tx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReturnRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, entry model.TimelineEntry) error {
	args := m.Called(ctx, tx, id, entry)
	return args.Error(0)
}

// MockWalletRepository is a mock implementation of WalletRepository.
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Ensure(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

func (m *MockWalletRepository) ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta model.Money) (model.Money, bool, error) {
	args := m.Called(ctx, tx, userID, delta)
	return args.Get(0).(model.Money), args.Bool(1), args.Error(2)
}

func (m *MockWalletRepository) InsertTransaction(ctx context.Context, tx pgx.Tx, txn *model.WalletTxn) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockWalletRepository) Get(ctx context.Context, userID uuid.UUID, limit int) (*model.Wallet, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

// MockStockReserver is a mock implementation of StockReserver.
type MockStockReserver struct {
	mock.Mock
}

func (m *MockStockReserver) Reserve(ctx context.Context, tx pgx.Tx, lines []model.CartLine) error {
	args := m.Called(ctx, tx, lines)
	return args.Error(0)
}

func (m *MockStockReserver) Release(ctx context.Context, tx pgx.Tx, lines []model.CartLine) error {
	args := m.Called(ctx, tx, lines)
	return args.Error(0)
}

// MockCouponValidator is a mock implementation of coupon.Validator.
type MockCouponValidator struct {
	mock.Mock
}

func (m *MockCouponValidator) Apply(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID, subtotal model.Money) (model.Money, error) {
	args := m.Called(ctx, tx, couponID, userID, subtotal)
	return args.Get(0).(model.Money), args.Error(1)
}

func (m *MockCouponValidator) Release(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) error {
	args := m.Called(ctx, tx, couponID, userID)
	return args.Error(0)
}

// MockWalletLedger is a mock implementation of WalletLedger.
type MockWalletLedger struct {
	mock.Mock
}

func (m *MockWalletLedger) Debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount model.Money, meta model.WalletMeta) (*model.WalletTxn, error) {
	args := m.Called(ctx, tx, userID, amount, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletTxn), args.Error(1)
}

func (m *MockWalletLedger) Credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount model.Money, meta model.WalletMeta) (*model.WalletTxn, error) {
	args := m.Called(ctx, tx, userID, amount, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletTxn), args.Error(1)
}

// MockTransactionRecorder is a mock implementation of TransactionRecorder.
type MockTransactionRecorder struct {
	mock.Mock
}

func (m *MockTransactionRecorder) Record(ctx context.Context, tx pgx.Tx, txn *model.PlatformTransaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockTransactionRecorder) Complete(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) (bool, error) {
	args := m.Called(ctx, tx, orderID, typ)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRecorder) Fail(ctx context.Context, tx pgx.Tx, orderID string, typ model.TransactionType) (bool, error) {
	args := m.Called(ctx, tx, orderID, typ)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRecorder) Balance(ctx context.Context) (*model.PlatformBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformBalance), args.Error(1)
}

func (m *MockTransactionRecorder) Reconcile(ctx context.Context, correct bool) (*model.ReconcileReport, error) {
	args := m.Called(ctx, correct)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReconcileReport), args.Error(1)
}

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, amount model.Money, receipt string) (string, error) {
	args := m.Called(ctx, amount, receipt)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Verify(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

// fixedNow is the clock every service test runs against.
var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func testCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		SellerCommissionBPS: 500,
		ReturnWindow:        7 * 24 * time.Hour,
		GatewayTimeout:      time.Second,
		Currency:            "INR",
		Now:                 func() time.Time { return fixedNow },
	}
}
