package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"marketplace/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Definition is one line of a coupon import file.
type Definition struct {
	Code          string             `json:"code"`
	DiscountType  model.DiscountType `json:"discountType"`
	DiscountValue decimal.Decimal    `json:"discountValue"`
	MinPurchase   model.Money        `json:"minPurchase"`
	MaxDiscount   model.Money        `json:"maxDiscount"`
	ValidFrom     time.Time          `json:"validFrom"`
	ValidUntil    time.Time          `json:"validUntil"`
	UsageLimit    int                `json:"usageLimit"`
	IsActive      *bool              `json:"isActive,omitempty"`
}

var hundredPercent = decimal.NewFromInt(100)

// Coupon validates d and converts it into a coupon. IsActive defaults to true.
func (d Definition) Coupon() (*model.Coupon, error) {
	code := NormaliseCode(d.Code)
	switch {
	case code == "":
		return nil, errors.New("code is required")
	case d.DiscountType != model.DiscountPercentage && d.DiscountType != model.DiscountFixed:
		return nil, fmt.Errorf("coupon %s: unknown discount type %q", code, d.DiscountType)
	case !d.DiscountValue.IsPositive():
		return nil, fmt.Errorf("coupon %s: discount value must be positive", code)
	case d.DiscountType == model.DiscountPercentage && d.DiscountValue.GreaterThan(hundredPercent):
		return nil, fmt.Errorf("coupon %s: percentage above 100", code)
	case d.MinPurchase < 0 || d.MaxDiscount < 0:
		return nil, fmt.Errorf("coupon %s: amounts must not be negative", code)
	case d.ValidFrom.IsZero() || !d.ValidUntil.After(d.ValidFrom):
		return nil, fmt.Errorf("coupon %s: validUntil must be after validFrom", code)
	case d.UsageLimit < 0:
		return nil, fmt.Errorf("coupon %s: usage limit must not be negative", code)
	}

	active := true
	if d.IsActive != nil {
		active = *d.IsActive
	}
	return &model.Coupon{
		Code:          code,
		DiscountType:  d.DiscountType,
		DiscountValue: d.DiscountValue,
		MinPurchase:   d.MinPurchase,
		MaxDiscount:   d.MaxDiscount,
		ValidFrom:     d.ValidFrom,
		ValidUntil:    d.ValidUntil,
		IsActive:      active,
		UsageLimit:    d.UsageLimit,
	}, nil
}

// fileLoader implements Loader for gzipped files on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based coupon loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-loader").Logger(),
	}
}

// Load reads the gzipped JSON-lines file at path.
func (l *fileLoader) Load(ctx context.Context, path string) (*Set, error) {
	l.logger.Info().Str("file", path).Msg("loading coupon file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open coupon file")
		return nil, fmt.Errorf("failed to open coupon file %s: %w", path, err)
	}
	defer file.Close()

	set, err := readDefinitions(ctx, file, path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read coupon file")
		return nil, err
	}

	l.logger.Info().
		Str("file", path).
		Int("coupons_loaded", set.Size()).
		Msg("coupon file loaded successfully")

	return set, nil
}

// readDefinitions decodes one definition per non-blank line of the gzipped stream r.
func readDefinitions(ctx context.Context, r io.Reader, source string) (*Set, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	set := NewSet(1024)
	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var def Definition
		if err := json.Unmarshal([]byte(line), &def); err != nil {
			return nil, fmt.Errorf("%s:%d: invalid coupon definition: %w", source, lineNo, err)
		}
		c, err := def.Coupon()
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
		if err := set.Add(c); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading coupon file %s: %w", source, err)
	}

	return set, nil
}
