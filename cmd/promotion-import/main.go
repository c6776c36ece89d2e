// Command promotion-import loads gzip NDJSON promotion exports into
// PostgreSQL, skipping codes that are already stored.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cache"
	"github.com/xenking/storefront/internal/importer"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		redisURL    string
		pattern     string
		opts        importer.Options
		verbose     bool
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&redisURL, "redis-url", "", "Redis URL whose catalog snapshots are dropped after import (or REDIS_URL env)")
	flag.StringVar(&pattern, "files", "data/promotions*.ndjson.gz", "glob of gzip NDJSON export files")
	flag.BoolVar(&opts.Overwrite, "overwrite", false, "update promotions whose code already exists")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "read and filter without writing")
	flag.BoolVar(&verbose, "v", false, "log skipped lines")
	flag.Parse()

	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	lg := zap.Must(cfg.Build())
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, redisURL, pattern, opts); err != nil {
		lg.Fatal("Promotion import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, redisURL, pattern string, opts importer.Options) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "match files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}
	lg.Info("Importing promotions", zap.Strings("files", files), zap.Bool("overwrite", opts.Overwrite))

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	stats, err := importer.New(postgres.NewPromotionRepository(pool), lg).Run(ctx, files, opts)
	if err != nil {
		return err
	}
	lg.Info("Promotion import completed",
		zap.Int("lines", stats.Lines),
		zap.Int("invalid", stats.Invalid),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("existing", stats.Existing),
		zap.Int("imported", stats.Imported),
	)

	if redisURL == "" || stats.Imported == 0 {
		return nil
	}
	client, err := cache.Connect(ctx, redisURL)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() { _ = client.Close() }()
	if err := cache.Invalidate(ctx, cache.NewRedisCache(client, cache.DefaultTTL)); err != nil {
		return errors.Wrap(err, "invalidate catalog cache")
	}
	lg.Info("Catalog cache invalidated")
	return nil
}
