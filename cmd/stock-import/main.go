package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/repository"
	"github.com/xenking/kart-backoffice/internal/stockfeed"
)

func main() {
	var (
		databaseURL   string
		expectedItems uint
		dryRun        bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&expectedItems, "expected-items", 1_000_000, "expected products per feed, sizes the duplicate filters")
	flag.BoolVar(&dryRun, "dry-run", false, "parse feeds and report without writing")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] feed.gz [feed.gz ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	_ = godotenv.Load()
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, databaseURL, flag.Args(), stockfeed.Options{ExpectedItems: expectedItems}, dryRun); err != nil {
		lg.Fatal("Stock import failed", zap.Error(err))
	}

	lg.Info("Stock import completed")
}

func run(ctx context.Context, databaseURL string, feeds []string, opts stockfeed.Options, dryRun bool) error {
	lg := zctx.From(ctx)

	lg.Info("Reading feeds", zap.Strings("feeds", feeds))
	res, err := stockfeed.Read(ctx, feeds, opts)
	if err != nil {
		return errors.Wrap(err, "read feeds")
	}
	lg.Info("Feeds merged",
		zap.Int("products", len(res.Levels)),
		zap.Int("duplicates", len(res.Duplicates)),
		zap.Int("skipped", res.Skipped),
	)

	if dryRun || len(res.Levels) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	products := repository.NewProductRepository(pool)
	tx := repository.NewTxManager(pool)

	var missing []string
	if err := tx.WithinTx(ctx, func(ctx context.Context) error {
		missing, err = products.ApplyStock(ctx, res.Levels)
		return err
	}); err != nil {
		return errors.Wrap(err, "apply stock")
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		lg.Warn("Feed lists unknown products", zap.Strings("product_ids", missing))
	}
	lg.Info("Stock levels applied", zap.Int("updated", len(res.Levels)-len(missing)))
	return nil
}
