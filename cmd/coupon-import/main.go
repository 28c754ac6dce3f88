package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"marketplace/internal/config"
	"marketplace/internal/coupon"
	"marketplace/internal/database"
	"marketplace/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dryRun := flag.Bool("dry-run", false, "load and validate the files without writing")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-dry-run] couponfile.jsonl.gz [...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		return fmt.Errorf("at least one coupon file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize coupon loader with S3 and local fallback
	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		s3Loader, err = coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}
	loader := coupon.NewFallbackLoader(s3Loader, coupon.NewFileLoader(logger), cfg.S3.Prefix, logger)

	if *dryRun {
		importer := coupon.NewImporter(loader, nil, nil, logger)
		set, err := importer.LoadAll(ctx, paths)
		if err != nil {
			return err
		}
		logger.Info().Int("coupons", set.Size()).Msg("coupon files are valid")
		return nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	importer := coupon.NewImporter(
		loader,
		repository.NewCouponRepository(pool, logger),
		repository.NewTransactor(pool, logger),
		logger,
	)
	n, err := importer.Import(ctx, paths)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d coupons\n", n)
	return nil
}
