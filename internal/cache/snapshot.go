package cache

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/wire"
)

// snapshot serves a list through the cache, falling back to load on a miss or
// on any cache failure.
func snapshot[T any](
	ctx context.Context,
	c Cache,
	key string,
	ttl time.Duration,
	decode func([]byte) ([]T, error),
	encode func([]T) []byte,
	load func(context.Context) ([]T, error),
) ([]T, error) {
	lg := zctx.From(ctx).With(zap.String("cache_key", key))

	data, ok, err := c.Get(ctx, key)
	switch {
	case err != nil:
		lg.Warn("Cache read failed", zap.Error(err))
	case ok:
		items, err := decode(data)
		if err == nil {
			return items, nil
		}
		lg.Warn("Cache entry corrupt", zap.Error(err))
	}

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, encode(items), ttl); err != nil {
		lg.Warn("Cache write failed", zap.Error(err))
	}
	return items, nil
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository caches the product list. Single-product lookups go
// straight to the underlying repository so stock checks stay fresh.
type ProductRepository struct {
	next  product.Repository
	cache Cache
	ttl   time.Duration
}

// NewProductRepository wraps next with a snapshot cache.
func NewProductRepository(next product.Repository, c Cache, ttl time.Duration) *ProductRepository {
	return &ProductRepository{next: next, cache: c, ttl: ttl}
}

// List returns the cached catalog.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	return snapshot(ctx, r.cache, KeyProducts, r.ttl, wire.DecodeProducts, wire.EncodeProducts, r.next.List)
}

// GetByID is not cached.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.next.GetByID(ctx, id)
}

// GetByIDs is not cached.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	return r.next.GetByIDs(ctx, ids)
}

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository caches the promotion list.
type PromotionRepository struct {
	next  promotion.Repository
	cache Cache
	ttl   time.Duration
}

// NewPromotionRepository wraps next with a snapshot cache.
func NewPromotionRepository(next promotion.Repository, c Cache, ttl time.Duration) *PromotionRepository {
	return &PromotionRepository{next: next, cache: c, ttl: ttl}
}

// List returns the cached promotion list.
func (r *PromotionRepository) List(ctx context.Context) ([]promotion.Promotion, error) {
	return snapshot(ctx, r.cache, KeyPromotions, r.ttl, wire.DecodePromotions, wire.EncodePromotions, r.next.List)
}

// Invalidate drops both catalog snapshots.
func Invalidate(ctx context.Context, c Cache) error {
	return c.Delete(ctx, KeyProducts, KeyPromotions)
}
