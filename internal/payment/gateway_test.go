package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"marketplace/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*HTTPGateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gw := NewHTTPGateway(Config{
		BaseURL:   server.URL,
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		Currency:  "INR",
		Timeout:   time.Second,
	}, nil, zerolog.Nop())
	return gw, server
}

func TestHTTPGateway_CreateIntent(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(61000), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "ORD-20260101-ABCDEF12", body.Receipt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Abc123","status":"created"}`))
	})

	id, err := gw.CreateIntent(context.Background(), 61000, "ORD-20260101-ABCDEF12")
	require.NoError(t, err)
	assert.Equal(t, "order_Abc123", id)
}

func TestHTTPGateway_CreateIntent_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: "gateway returned 500"},
		{name: "missing id", status: http.StatusOK, body: `{"status":"created"}`, wantErr: "missing order id"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := gw.CreateIntent(context.Background(), 100, "r")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPGateway_CreateIntent_InvalidAmount(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called")
	})

	_, err := gw.CreateIntent(context.Background(), 0, "r")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestHTTPGateway_CreateIntent_ContextTimeout(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gw.CreateIntent(ctx, 100, "r")
	require.Error(t, err)
}

func TestHTTPGateway_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := gw.CreateIntent(context.Background(), 100, "r")
		require.Error(t, err)
	}

	_, err := gw.CreateIntent(context.Background(), 100, "r")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), calls.Load(), "open breaker short-circuits the request")
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("order_1", "pay_1", "secret")

	assert.True(t, VerifySignature("order_1", "pay_1", sig, "secret"))
	assert.False(t, VerifySignature("order_1", "pay_2", sig, "secret"))
	assert.False(t, VerifySignature("order_1", "pay_1", sig, "other"))
	assert.False(t, VerifySignature("order_1", "pay_1", "deadbeef", "secret"))
	assert.False(t, VerifySignature("", "pay_1", sig, "secret"))
	assert.False(t, VerifySignature("order_1", "pay_1", "", "secret"))
}

func TestSign_Deterministic(t *testing.T) {
	sig := Sign("a", "b", "key")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Sign("a", "b", "key"))
	assert.NotEqual(t, sig, Sign("a", "b", "key2"))
	assert.NotEqual(t, sig, Sign("a|b", "", "key"), "separator is part of the signed message")
}

func TestHTTPGateway_Verify(t *testing.T) {
	gw := NewHTTPGateway(Config{KeySecret: "secret"}, nil, zerolog.Nop())
	sig := Sign("order_1", "pay_1", "secret")

	assert.True(t, gw.Verify("order_1", "pay_1", sig))
	assert.False(t, gw.Verify("order_1", "pay_1", sig+"0"))
}
