package coupon

import (
	"context"
	"fmt"

	"marketplace/internal/model"
	"marketplace/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Upserter persists coupon definitions by code.
type Upserter interface {
	Upsert(ctx context.Context, tx pgx.Tx, c *model.Coupon) error
}

// Importer loads coupon files and upserts their definitions.
type Importer struct {
	loader     Loader
	store      Upserter
	transactor repository.Transactor
	logger     zerolog.Logger
}

// NewImporter creates a coupon importer.
func NewImporter(loader Loader, store Upserter, transactor repository.Transactor, logger zerolog.Logger) *Importer {
	return &Importer{
		loader:     loader,
		store:      store,
		transactor: transactor,
		logger:     logger.With().Str("component", "coupon-importer").Logger(),
	}
}

// LoadAll reads every path concurrently and merges the results. A code that
// appears in more than one file is rejected.
func (i *Importer) LoadAll(ctx context.Context, paths []string) (*Set, error) {
	sets := make([]*Set, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for idx, path := range paths {
		g.Go(func() error {
			set, err := i.loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load coupon file %s: %w", path, err)
			}
			sets[idx] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewSet(0)
	for idx, set := range sets {
		if err := merged.Merge(set); err != nil {
			return nil, fmt.Errorf("%s: %w", paths[idx], err)
		}
	}
	return merged, nil
}

// Import loads paths and upserts every definition in a single transaction.
// It returns the number of coupons written.
func (i *Importer) Import(ctx context.Context, paths []string) (int, error) {
	set, err := i.LoadAll(ctx, paths)
	if err != nil {
		return 0, err
	}

	tx, err := i.transactor.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range set.Coupons() {
		if err := i.store.Upsert(ctx, tx, c); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit coupon import: %w", err)
	}

	i.logger.Info().
		Int("files", len(paths)).
		Int("coupons", set.Size()).
		Msg("coupon import completed")

	return set.Size(), nil
}
