package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/config"
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
	"marketplace/internal/sweep"
	"marketplace/internal/wallet"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting marketplace API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, "up", logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize repositories
	transactor := repository.NewTransactor(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	returnRepo := repository.NewReturnRepository(pool, logger)
	walletRepo := repository.NewWalletRepository(pool, logger)
	txnRepo := repository.NewTransactionRepository(pool, logger)

	// Ledgers shared by the services
	stockLedger := stock.NewLedger(productRepo, logger)
	walletLedger := wallet.NewLedger(walletRepo, logger)
	recorder := ledger.NewRecorder(txnRepo, transactor, logger)
	couponValidator := coupon.NewValidator(couponRepo, coupon.ValidatorConfig{SingleUse: cfg.Checkout.CouponSingleUse}, logger)
	engine := pricing.NewEngine(pricing.Config{
		FreeShippingThreshold: model.Money(cfg.Checkout.FreeShippingThreshold),
		ShippingCharge:        model.Money(cfg.Checkout.ShippingCharge),
		PlatformFee:           model.Money(cfg.Checkout.PlatformFee),
	})
	gateway := payment.NewHTTPGateway(payment.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
		Currency:  cfg.Gateway.Currency,
		Timeout:   cfg.Checkout.GatewayTimeout,
	}, &http.Client{Timeout: cfg.Checkout.GatewayTimeout}, logger)

	checkoutCfg := service.CheckoutConfig{
		SellerCommissionBPS: cfg.Checkout.SellerCommissionBPS,
		ReturnWindow:        cfg.Checkout.ReturnWindow,
		GatewayTimeout:      cfg.Checkout.GatewayTimeout,
		Currency:            cfg.Gateway.Currency,
	}

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, engine, logger)
	orderService := service.NewOrderService(service.OrderServiceParams{
		Transactor: transactor,
		Orders:     orderRepo,
		Products:   productRepo,
		Addresses:  addressRepo,
		Carts:      cartRepo,
		Stock:      stockLedger,
		Coupons:    couponValidator,
		Wallet:     walletLedger,
		Recorder:   recorder,
		Gateway:    gateway,
		Pricing:    engine,
		Metrics:    m,
		Config:     checkoutCfg,
		Logger:     logger,
	})
	returnService := service.NewReturnService(service.ReturnServiceParams{
		Transactor: transactor,
		Orders:     orderRepo,
		Returns:    returnRepo,
		Stock:      stockLedger,
		Wallet:     walletLedger,
		Recorder:   recorder,
		Metrics:    m,
		Config:     checkoutCfg,
		Logger:     logger,
	})
	walletService := service.NewWalletService(service.WalletServiceParams{
		Transactor: transactor,
		Wallets:    walletRepo,
		Orders:     orderRepo,
		Wallet:     walletLedger,
		Recorder:   recorder,
		Metrics:    m,
		Config:     checkoutCfg,
		Logger:     logger,
	})
	adminService := service.NewAdminService(transactor, orderRepo, recorder, checkoutCfg, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Product: handler.NewProductHandler(productService, logger),
		Cart:    handler.NewCartHandler(cartService, logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		Return:  handler.NewReturnHandler(returnService, logger),
		Wallet:  handler.NewWalletHandler(walletService, logger),
		Admin:   handler.NewAdminHandler(adminService, logger),
	}, router.Options{
		Auth:    middleware.AuthConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.JWTIssuer},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		DB:      pool,
	}, logger)

	// Coupon expiry sweep
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}
	if cfg.Sweep.Enabled {
		sweeper, err := newSweeper(cfg.Sweep, redisClient, couponRepo, m, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize coupon sweep: %w", err)
		}
		go func() {
			if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("coupon sweep exited")
			}
		}()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Stop the sweep before draining requests
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			return multierr.Combine(fmt.Errorf("server shutdown failed: %w", err), server.Close())
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

func newSweeper(cfg config.SweepConfig, client *redis.Client, coupons sweep.Expirer, m *metrics.Metrics, logger zerolog.Logger) (*sweep.Service, error) {
	var lock sweep.Lock = sweep.NewLocalLock()
	if client != nil {
		redisLock, err := sweep.NewRedisLock(client, cfg.LockKey, cfg.LockTTL)
		if err != nil {
			return nil, err
		}
		lock = redisLock
	}
	return sweep.NewService(sweep.ServiceParams{
		Coupons:  coupons,
		Lock:     lock,
		Metrics:  m,
		Interval: cfg.Interval,
		Logger:   logger,
	})
}
