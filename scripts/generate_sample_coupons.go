package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"marketplace/internal/coupon"
	"marketplace/internal/model"

	"github.com/shopspring/decimal"
)

// generateSampleCoupons writes gzipped JSON-lines coupon files for cmd/coupon-import.
// Codes are unique across files; the importer rejects a code found twice.
// EXPIRED5 has already run out and is deactivated by the next sweep.
func main() {
	dataDir := "data/coupons"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	month := now.AddDate(0, 1, 0)

	files := map[string][]coupon.Definition{
		"seasonal.jsonl.gz": {
			{
				Code:          "SUMMER10",
				DiscountType:  model.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(10),
				MinPurchase:   20000,
				MaxDiscount:   10000,
				ValidFrom:     now,
				ValidUntil:    month,
				UsageLimit:    1000,
			},
			{
				Code:          "FLAT500",
				DiscountType:  model.DiscountFixed,
				DiscountValue: decimal.NewFromInt(500),
				MinPurchase:   5000,
				ValidFrom:     now,
				ValidUntil:    month,
				UsageLimit:    500,
			},
			{
				Code:          "EXPIRED5",
				DiscountType:  model.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(5),
				ValidFrom:     now.AddDate(0, -2, 0),
				ValidUntil:    now.AddDate(0, -1, 0),
			},
		},
		"partners.jsonl.gz": {
			{
				Code:          "PARTNER15",
				DiscountType:  model.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(15),
				MinPurchase:   20000,
				MaxDiscount:   15000,
				ValidFrom:     now,
				ValidUntil:    month,
				UsageLimit:    200,
			},
			{
				Code:          "WELCOME",
				DiscountType:  model.DiscountFixed,
				DiscountValue: decimal.NewFromInt(1000),
				MinPurchase:   10000,
				ValidFrom:     now,
				ValidUntil:    now.AddDate(1, 0, 0),
			},
		},
	}

	for filename, defs := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := createCouponFile(filePath, defs); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d coupons\n", filePath, len(defs))
	}

	fmt.Println("\nImport with:")
	fmt.Printf("  go run ./cmd/coupon-import %s %s\n",
		filepath.Join(dataDir, "seasonal.jsonl.gz"),
		filepath.Join(dataDir, "partners.jsonl.gz"))
}

func createCouponFile(filePath string, defs []coupon.Definition) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	enc := json.NewEncoder(gzipWriter)
	for _, def := range defs {
		if err := enc.Encode(def); err != nil {
			return fmt.Errorf("failed to write coupon %s: %w", def.Code, err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}
