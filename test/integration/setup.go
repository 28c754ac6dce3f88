package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"marketplace/internal/coupon"
	"marketplace/internal/database"
	"marketplace/internal/handler"
	"marketplace/internal/ledger"
	"marketplace/internal/metrics"
	"marketplace/internal/middleware"
	"marketplace/internal/model"
	"marketplace/internal/payment"
	"marketplace/internal/pricing"
	"marketplace/internal/repository"
	"marketplace/internal/router"
	"marketplace/internal/service"
	"marketplace/internal/stock"
	"marketplace/internal/wallet"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	gatewaySecret = "gateway-test-secret"
	commissionBPS = 500
)

var testAuth = middleware.AuthConfig{Secret: "integration-secret", Issuer: "auth-service"}

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container migrated to the current schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.MaxConns = 20
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, "up", zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// fakeGateway serves the gateway's order-creation endpoint.
func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	var seq atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("order_test_%d", seq.Add(1))})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupTestServer wires the full stack against the test database.
func setupTestServer(t *testing.T, testDB *TestDB) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	pool := testDB.Pool

	// Initialize repositories
	transactor := repository.NewTransactor(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	walletRepo := repository.NewWalletRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)

	stockLedger := stock.NewLedger(productRepo, logger)
	walletLedger := wallet.NewLedger(walletRepo, logger)
	recorder := ledger.NewRecorder(repository.NewTransactionRepository(pool, logger), transactor, logger)
	engine := pricing.NewEngine(pricing.Config{FreeShippingThreshold: 50000, ShippingCharge: 4000, PlatformFee: 1000})
	m := metrics.New(prometheus.NewRegistry())

	gw := fakeGateway(t)
	gateway := payment.NewHTTPGateway(payment.Config{
		BaseURL:   gw.URL,
		KeyID:     "key",
		KeySecret: gatewaySecret,
		Currency:  "INR",
		Timeout:   2 * time.Second,
	}, gw.Client(), logger)

	cfg := service.CheckoutConfig{
		SellerCommissionBPS: commissionBPS,
		ReturnWindow:        7 * 24 * time.Hour,
		GatewayTimeout:      2 * time.Second,
		Currency:            "INR",
	}

	orderService := service.NewOrderService(service.OrderServiceParams{
		Transactor: transactor,
		Orders:     orderRepo,
		Products:   productRepo,
		Addresses:  repository.NewAddressRepository(pool, logger),
		Carts:      cartRepo,
		Stock:      stockLedger,
		Coupons:    coupon.NewValidator(couponRepo, coupon.ValidatorConfig{}, logger),
		Wallet:     walletLedger,
		Recorder:   recorder,
		Gateway:    gateway,
		Pricing:    engine,
		Metrics:    m,
		Config:     cfg,
		Logger:     logger,
	})
	returnService := service.NewReturnService(service.ReturnServiceParams{
		Transactor: transactor,
		Orders:     orderRepo,
		Returns:    repository.NewReturnRepository(pool, logger),
		Stock:      stockLedger,
		Wallet:     walletLedger,
		Recorder:   recorder,
		Metrics:    m,
		Config:     cfg,
		Logger:     logger,
	})
	walletService := service.NewWalletService(service.WalletServiceParams{
		Transactor: transactor,
		Wallets:    walletRepo,
		Orders:     orderRepo,
		Wallet:     walletLedger,
		Recorder:   recorder,
		Metrics:    m,
		Config:     cfg,
		Logger:     logger,
	})

	// Create router
	return router.New(router.Handlers{
		Product: handler.NewProductHandler(service.NewProductService(productRepo, logger), logger),
		Cart:    handler.NewCartHandler(service.NewCartService(cartRepo, productRepo, engine, logger), logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		Return:  handler.NewReturnHandler(returnService, logger),
		Wallet:  handler.NewWalletHandler(walletService, logger),
		Admin:   handler.NewAdminHandler(service.NewAdminService(transactor, orderRepo, recorder, cfg, logger), logger),
	}, router.Options{Auth: testAuth, DB: pool}, logger)
}

// User is a caller with a signed access token.
type User struct {
	ID    uuid.UUID
	Role  model.Role
	Token string
}

// NewUser mints an access token for a fresh user with role.
func NewUser(t *testing.T, role model.Role) User {
	t.Helper()
	id := uuid.New()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Issuer:    testAuth.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testAuth.Secret))
	require.NoError(t, err)
	return User{ID: id, Role: role, Token: token}
}

// SeedProduct inserts a product sold by sellerID with one variant.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, sellerID uuid.UUID, price model.Money, stock int) (productID, variantID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	productID, variantID = uuid.New(), uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO products (id, seller_id, name) VALUES ($1, $2, $3)`, productID, sellerID, "Integration Tee")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		INSERT INTO product_variants (id, product_id, position, attributes, stock, in_stock, base_price)
		VALUES ($1, $2, 0, '[{"key":"size","value":"M"}]', $3, $4, $5)
	`, variantID, productID, stock, stock > 0, price)
	require.NoError(t, err)
	return productID, variantID
}

// SeedAddress inserts an address owned by userID.
func SeedAddress(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO addresses (id, user_id, name, line1, city, state, postal_code, country)
		VALUES ($1, $2, 'Buyer', '1 Test Street', 'Pune', 'MH', '411001', 'IN')
	`, id, userID)
	require.NoError(t, err)
	return id
}

// VariantStock reads a variant's stock.
func VariantStock(t *testing.T, pool *pgxpool.Pool, variantID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT stock FROM product_variants WHERE id = $1`, variantID).Scan(&n))
	return n
}
