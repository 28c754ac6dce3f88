// Package metrics exposes checkout and ledger counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the marketplace counters. A nil *Metrics, or one built with a nil
// registerer, records nothing.
type Metrics struct {
	ordersCreated     *prometheus.CounterVec
	checkoutFailures  *prometheus.CounterVec
	walletOps         *prometheus.CounterVec
	couponRedemptions prometheus.Counter
	sweepRuns         *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
}

// New registers the marketplace metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Orders created, by payment method.",
		}, []string{"method"}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_checkout_failures_total",
			Help: "Rejected or failed checkouts, by error code.",
		}, []string{"code"}),
		walletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_wallet_operations_total",
			Help: "Wallet ledger entries written, by type.",
		}, []string{"type"}),
		couponRedemptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_coupon_redemptions_total",
			Help: "Coupon uses consumed at checkout.",
		}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_sweep_runs_total",
			Help: "Coupon expiry sweep runs, by result.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketplace_sweep_duration_seconds",
			Help:    "Duration of coupon expiry sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.ordersCreated, m.checkoutFailures, m.walletOps, m.couponRedemptions, m.sweepRuns, m.sweepDuration)
	return m
}

// OrderCreated counts a committed checkout.
func (m *Metrics) OrderCreated(method string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(label(method)).Inc()
}

// CheckoutFailed counts a checkout that was rolled back.
func (m *Metrics) CheckoutFailed(code string) {
	if m == nil || m.checkoutFailures == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(label(code)).Inc()
}

// WalletOp counts a wallet ledger entry.
func (m *Metrics) WalletOp(typ string) {
	if m == nil || m.walletOps == nil {
		return
	}
	m.walletOps.WithLabelValues(label(typ)).Inc()
}

// CouponRedeemed counts a consumed coupon use.
func (m *Metrics) CouponRedeemed() {
	if m == nil || m.couponRedemptions == nil {
		return
	}
	m.couponRedemptions.Inc()
}

// SweepRun records one sweep cycle.
func (m *Metrics) SweepRun(result string, duration time.Duration) {
	if m == nil || m.sweepRuns == nil {
		return
	}
	m.sweepRuns.WithLabelValues(label(result)).Inc()
	m.sweepDuration.Observe(duration.Seconds())
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
