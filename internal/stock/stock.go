// Package stock reserves and releases per-variant inventory.
package stock

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Store is the atomic counter pair the ledger drives. Implemented by the product repository.
type Store interface {
	DecrementStock(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) (bool, error)
	IncrementStock(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error
}

// Ledger applies stock reservations inside the caller's transaction.
type Ledger struct {
	store  Store
	logger zerolog.Logger
}

// NewLedger creates a stock ledger over store.
func NewLedger(store Store, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.With().Str("component", "stock").Logger(),
	}
}

// Reserve decrements every variant in lines by its total quantity. Variants are
// touched in id order so concurrent checkouts lock rows in the same sequence.
// The first short variant aborts with ErrInsufficientStock; the caller rolls back tx.
func (l *Ledger) Reserve(ctx context.Context, tx pgx.Tx, lines []model.CartLine) error {
	for _, r := range aggregate(lines) {
		ok, err := l.store.DecrementStock(ctx, tx, r.variantID, r.qty)
		if err != nil {
			return err
		}
		if !ok {
			l.logger.Info().
				Str("variant_id", r.variantID.String()).
				Int("quantity", r.qty).
				Msg("insufficient stock")
			return fmt.Errorf("%w: variant %s", model.ErrInsufficientStock, r.variantID)
		}
	}
	return nil
}

// Release adds every variant's quantity back.
func (l *Ledger) Release(ctx context.Context, tx pgx.Tx, lines []model.CartLine) error {
	for _, r := range aggregate(lines) {
		if err := l.store.IncrementStock(ctx, tx, r.variantID, r.qty); err != nil {
			return err
		}
	}
	return nil
}

type reservation struct {
	variantID uuid.UUID
	qty       int
}

func aggregate(lines []model.CartLine) []reservation {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Quantity > 0 {
			totals[line.VariantID] += line.Quantity
		}
	}
	out := make([]reservation, 0, len(totals))
	for id, qty := range totals {
		out = append(out, reservation{variantID: id, qty: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].variantID[:], out[j].variantID[:]) < 0
	})
	return out
}

// LinesFromItems converts order item snapshots into stock lines.
func LinesFromItems(items []model.OrderItem) []model.CartLine {
	lines := make([]model.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, model.CartLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return lines
}
