// Command seed-db loads the sample catalog and promotions into PostgreSQL.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cache"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/wire"
)

func main() {
	var (
		databaseURL    string
		redisURL       string
		productsFile   string
		promotionsFile string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&redisURL, "redis-url", "", "Redis URL whose catalog snapshots are dropped after seeding (or REDIS_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&promotionsFile, "promotions-file", "db/seed/promotions.json", "path to promotions JSON file")
	flag.Parse()

	lg := zap.Must(zap.NewProduction())
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

	if err := run(ctx, lg, databaseURL, redisURL, productsFile, promotionsFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, redisURL, productsFile, promotionsFile string) error {
	productsData, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	products, err := wire.DecodeProducts(productsData)
	if err != nil {
		return errors.Wrap(err, "parse products")
	}

	promotionsData, err := os.ReadFile(promotionsFile)
	if err != nil {
		return errors.Wrap(err, "read promotions file")
	}
	promos, err := wire.DecodePromotions(promotionsData)
	if err != nil {
		return errors.Wrap(err, "parse promotions")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := postgres.NewProductRepository(pool).Upsert(ctx, products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	lg.Info("Products seeded", zap.Int("count", len(products)))

	if err := postgres.NewPromotionRepository(pool).Upsert(ctx, promos); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	lg.Info("Promotions seeded", zap.Int("count", len(promos)))

	if redisURL == "" {
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
