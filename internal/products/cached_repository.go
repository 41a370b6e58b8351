package products

import (
	"context"
	"time"

	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/cacheutil"
	"github.com/lggm33/DUAD/internal/observability"
)

// CachedRepository decorates a Repository with read-through caching for the
// listing and single-product lookups. The catalog is the hottest read path,
// so the listing and each product get long TTLs; every write clears both.
type CachedRepository struct {
	underlying Repository
	cache      cache.Store
	hooks      *observability.Registry
	listTTL    time.Duration
	itemTTL    time.Duration
}

// NewCachedRepository wraps a repository with the shared cache. listTTL
// bounds the full listing, itemTTL the per-product entries; non-positive
// values fall back to thirty minutes and one hour.
func NewCachedRepository(underlying Repository, store cache.Store, hooks *observability.Registry, listTTL, itemTTL time.Duration) *CachedRepository {
	if listTTL <= 0 {
		listTTL = 30 * time.Minute
	}
	if itemTTL <= 0 {
		itemTTL = time.Hour
	}
	return &CachedRepository{
		underlying: underlying,
		cache:      store,
		hooks:      hooks,
		listTTL:    listTTL,
		itemTTL:    itemTTL,
	}
}

func (r *CachedRepository) List(ctx context.Context) ([]Product, error) {
	return cacheutil.ReadThrough(ctx, r.cache, r.hooks, cache.KeyProductList, r.listTTL,
		func(ctx context.Context) ([]Product, error) {
			return r.underlying.List(ctx)
		})
}

func (r *CachedRepository) GetByID(ctx context.Context, id int64) (Product, error) {
	return cacheutil.ReadThrough(ctx, r.cache, r.hooks, cache.ProductKey(id), r.itemTTL,
		func(ctx context.Context) (Product, error) {
			return r.underlying.GetByID(ctx, id)
		})
}

// GetByName always hits the store; only the admin create path uses it.
func (r *CachedRepository) GetByName(ctx context.Context, name string) (Product, error) {
	return r.underlying.GetByName(ctx, name)
}

func (r *CachedRepository) Create(ctx context.Context, p Product) (Product, error) {
	created, err := r.underlying.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	r.invalidate(ctx)
	return created, nil
}

func (r *CachedRepository) Update(ctx context.Context, p Product) (Product, error) {
	updated, err := r.underlying.Update(ctx, p)
	if err != nil {
		return Product{}, err
	}
	r.invalidate(ctx)
	return updated, nil
}

func (r *CachedRepository) Delete(ctx context.Context, id int64) (Product, error) {
	deleted, err := r.underlying.Delete(ctx, id)
	if err != nil {
		return Product{}, err
	}
	r.invalidate(ctx)
	return deleted, nil
}

// Invalidate clears every catalog entry. Checkout calls it after committing
// a stock debit so cached stock numbers do not outlive the sale.
func (r *CachedRepository) Invalidate(ctx context.Context) {
	r.invalidate(ctx)
}

func (r *CachedRepository) invalidate(ctx context.Context) {
	cacheutil.Invalidate(ctx, r.cache, r.hooks, []string{cache.KeyProductList}, cache.PatternProducts)
}
