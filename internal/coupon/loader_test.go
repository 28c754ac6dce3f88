package coupon

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marketplace/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	saveTen  = `{"code":"save10","discountType":"percentage","discountValue":"10","maxDiscount":20000,"validFrom":"2026-01-01T00:00:00Z","validUntil":"2026-12-31T23:59:59Z","usageLimit":100}`
	flatTwo  = `{"code":"FLAT200","discountType":"fixed","discountValue":20000,"minPurchase":100000,"validFrom":"2026-01-01T00:00:00Z","validUntil":"2026-06-30T00:00:00Z","usageLimit":5,"isActive":false}`
	badType  = `{"code":"BROKEN","discountType":"bogo","discountValue":1,"validFrom":"2026-01-01T00:00:00Z","validUntil":"2026-02-01T00:00:00Z","usageLimit":1}`
	bigPct   = `{"code":"HUGE","discountType":"percentage","discountValue":"150","validFrom":"2026-01-01T00:00:00Z","validUntil":"2026-02-01T00:00:00Z","usageLimit":1}`
	badRange = `{"code":"BACKWARDS","discountType":"fixed","discountValue":100,"validFrom":"2026-02-01T00:00:00Z","validUntil":"2026-01-01T00:00:00Z","usageLimit":1}`
)

func gzipLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// createTestCouponFile writes a gzipped JSON-lines coupon file.
func createTestCouponFile(t *testing.T, filename string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(path, gzipLines(t, lines...), 0o600))
	return path
}

func TestFileLoader_Load_Success(t *testing.T) {
	path := createTestCouponFile(t, "coupons.gz", saveTen, "", flatTwo)

	set, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Size())

	pct, ok := set.Get("SAVE10")
	require.True(t, ok)
	assert.Equal(t, "SAVE10", pct.Code)
	assert.Equal(t, model.DiscountPercentage, pct.DiscountType)
	assert.True(t, decimal.NewFromInt(10).Equal(pct.DiscountValue))
	assert.Equal(t, model.Money(20000), pct.MaxDiscount)
	assert.True(t, pct.IsActive, "isActive defaults to true")
	assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), pct.ValidUntil.UTC())

	fixed, ok := set.Get("flat200")
	require.True(t, ok)
	assert.False(t, fixed.IsActive)
	assert.Equal(t, model.Money(100000), fixed.MinPurchase)
}

func TestFileLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		errMatch string
	}{
		{
			name:     "missing file",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.gz") },
			errMatch: "failed to open coupon file",
		},
		{
			name: "not gzipped",
			path: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "plain.gz")
				require.NoError(t, os.WriteFile(p, []byte(saveTen), 0o600))
				return p
			},
			errMatch: "failed to create gzip reader",
		},
		{
			name:     "invalid json",
			path:     func(t *testing.T) string { return createTestCouponFile(t, "bad.gz", saveTen, "{not json") },
			errMatch: ":2: invalid coupon definition",
		},
		{
			name:     "unknown discount type",
			path:     func(t *testing.T) string { return createTestCouponFile(t, "type.gz", badType) },
			errMatch: "unknown discount type",
		},
		{
			name:     "percentage above 100",
			path:     func(t *testing.T) string { return createTestCouponFile(t, "pct.gz", bigPct) },
			errMatch: "percentage above 100",
		},
		{
			name:     "window reversed",
			path:     func(t *testing.T) string { return createTestCouponFile(t, "range.gz", badRange) },
			errMatch: "validUntil must be after validFrom",
		},
		{
			name:     "duplicate code within a file",
			path:     func(t *testing.T) string { return createTestCouponFile(t, "dup.gz", saveTen, saveTen) },
			errMatch: "duplicate coupon code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), tt.path(t))
			require.Error(t, err)
			assert.Nil(t, set)
			assert.Contains(t, err.Error(), tt.errMatch)
		})
	}
}

func TestFileLoader_Load_ContextCancelled(t *testing.T) {
	lines := make([]string, 0, 10_000)
	for i := 0; i < 10_000; i++ {
		lines = append(lines, "")
	}
	path := createTestCouponFile(t, "blank.gz", lines...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileLoader(zerolog.Nop()).Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSet(t *testing.T) {
	def := func(code string) *model.Coupon { return &model.Coupon{Code: code} }

	set := NewSet(2)
	require.NoError(t, set.Add(def(" alpha ")))
	require.NoError(t, set.Add(def("BETA")))
	assert.Error(t, set.Add(def("Alpha")))

	assert.True(t, set.Contains("ALPHA"))
	assert.True(t, set.Contains("beta"))
	assert.False(t, set.Contains("GAMMA"))
	assert.Equal(t, 2, set.Size())

	other := NewSet(1)
	require.NoError(t, other.Add(def("GAMMA")))
	require.NoError(t, set.Merge(other))
	assert.Equal(t, []string{"ALPHA", "BETA", "GAMMA"}, codes(set))

	assert.Error(t, set.Merge(other), "merging the same codes twice must fail")
}

func codes(s *Set) []string {
	var out []string
	for _, c := range s.Coupons() {
		out = append(out, c.Code)
	}
	return out
}
