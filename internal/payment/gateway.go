// Package payment adapts the external payment gateway: intent creation and
// verification of signed payment callbacks.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketplace/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Gateway creates external payment intents and verifies their callbacks.
type Gateway interface {
	// CreateIntent registers amount with the gateway and returns the external order id.
	CreateIntent(ctx context.Context, amount model.Money, receipt string) (string, error)

	// Verify reports whether signature authenticates the (orderID, paymentID) pair.
	Verify(orderID, paymentID, signature string) bool
}

// Config holds gateway adapter settings.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
}

// HTTPGateway talks to a Razorpay-style orders API behind a circuit breaker.
type HTTPGateway struct {
	cfg    Config
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	logger zerolog.Logger
}

// NewHTTPGateway creates a gateway adapter. A nil client uses one with cfg.Timeout.
func NewHTTPGateway(cfg Config, client *http.Client, logger zerolog.Logger) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger = logger.With().Str("component", "payment-gateway").Logger()

	settings := gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &HTTPGateway{
		cfg:    cfg,
		client: client,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateIntent posts a new order to the gateway.
func (g *HTTPGateway) CreateIntent(ctx context.Context, amount model.Money, receipt string) (string, error) {
	if amount <= 0 {
		return "", model.ErrInvalidAmount
	}

	id, err := execute(g.cb, func() (string, error) {
		return g.createOrder(ctx, amount, receipt)
	})
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("receipt", receipt).
			Int64("amount", int64(amount)).
			Msg("failed to create payment intent")
		return "", err
	}

	g.logger.Info().
		Str("receipt", receipt).
		Str("external_order_id", id).
		Int64("amount", int64(amount)).
		Msg("payment intent created")
	return id, nil
}

func (g *HTTPGateway) createOrder(ctx context.Context, amount model.Money, receipt string) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   int64(amount),
		Currency: g.cfg.Currency,
		Receipt:  receipt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode gateway request: %w", err)
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/v1/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("gateway response missing order id")
	}
	return out.ID, nil
}

// Verify checks the callback signature with the shared key secret.
func (g *HTTPGateway) Verify(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, g.cfg.KeySecret)
}

// Sign returns hex(HMAC-SHA256(orderID + "|" + paymentID, secret)).
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature with Sign in constant time.
// Empty inputs never verify.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return *new(T), err
	}
	return res.(T), nil
}
