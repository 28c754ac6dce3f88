package router

import (
	"context"
	"net/http"
	"time"

	"marketplace/internal/handler"
	"marketplace/internal/middleware"
	"marketplace/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Product *handler.ProductHandler
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Return  *handler.ReturnHandler
	Wallet  *handler.WalletHandler
	Admin   *handler.AdminHandler
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	Auth middleware.AuthConfig
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// DB backs the readiness probe when set.
	DB Pinger
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> CORS
	r.Use(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.CORS,
	)

	// Health check endpoints (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	r.Get("/health/ready", ready(opts.DB))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	// Gateway callbacks are authenticated by their signature.
	r.Post("/orders/verify-payment", h.Order.VerifyPayment)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Auth, logger))

		r.Get("/products/{productId}", h.Product.GetByID)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Post("/items", h.Cart.AddItem)
			r.Patch("/items", h.Cart.UpdateItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/create", h.Order.Create)
			r.Post("/create-razorpay-order", h.Order.CreatePaymentIntent)
			r.Get("/{orderId}", h.Order.GetByID)
			r.With(middleware.RequireRole(model.RoleSeller, model.RoleAdmin)).
				Patch("/status/{orderId}", h.Order.UpdateStatus)
			r.Patch("/cancel/{orderId}", h.Order.Cancel)
			r.Patch("/return/{orderId}", h.Order.RequestReturn)
		})

		r.Route("/return", func(r chi.Router) {
			r.Post("/create", h.Return.Create)
			r.Get("/{returnId}", h.Return.GetByID)
			r.Patch("/update/{returnId}", h.Return.Update)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", h.Wallet.Get)
			r.Post("/pay", h.Wallet.Pay)
			r.Post("/refund", h.Wallet.Refund)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin))
				r.Post("/referral", h.Wallet.Referral)
				r.Post("/promo", h.Wallet.Promo)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Post("/payouts", h.Admin.Payout)
			r.Get("/ledger/balance", h.Admin.Balance)
			r.Post("/ledger/reconcile", h.Admin.Reconcile)
		})
	})

	return r
}

func ready(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ready"}`))
	}
}
