// Package datastore binds the raw upstream datasets to the cache: each
// dataset has a stable key, and all reads go through the memoization layer so
// that independent consumers (controller, aggregator, coordinator) share one
// fetch per dataset.
package datastore

import (
	"context"

	"gestionar/internal/cache"
	"gestionar/internal/model"
)

// Cache keys, one per dataset.
const (
	KeyRegisterStatus = "register_status"
	KeySalesToday     = "sales_today"
	KeyProducts       = "products"
	KeyClients        = "clients"
	KeyDailyReport    = "report_daily"
)

// Source is the upstream read surface consumed through the cache.
// *ledger.Client implements it.
type Source interface {
	RegisterStatus(ctx context.Context) (*model.RegisterSession, error)
	TodaySales(ctx context.Context, sessionID string) ([]model.Sale, error)
	Products(ctx context.Context) ([]model.Product, error)
	Clients(ctx context.Context) ([]model.Client, error)
	DailyReport(ctx context.Context) ([]model.DailyReportRow, error)
}

// Datasets is the typed facade over the cache.
type Datasets struct {
	cache  *cache.Cache
	source Source
}

func New(c *cache.Cache, source Source) *Datasets {
	return &Datasets{cache: c, source: source}
}

func get[T any](ctx context.Context, c *cache.Cache, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (d *Datasets) RegisterStatus(ctx context.Context) (*model.RegisterSession, error) {
	return get(ctx, d.cache, KeyRegisterStatus, d.source.RegisterStatus)
}

func (d *Datasets) TodaySales(ctx context.Context, sessionID string) ([]model.Sale, error) {
	return get(ctx, d.cache, KeySalesToday, func(ctx context.Context) ([]model.Sale, error) {
		return d.source.TodaySales(ctx, sessionID)
	})
}

func (d *Datasets) Products(ctx context.Context) ([]model.Product, error) {
	return get(ctx, d.cache, KeyProducts, d.source.Products)
}

func (d *Datasets) Clients(ctx context.Context) ([]model.Client, error) {
	return get(ctx, d.cache, KeyClients, d.source.Clients)
}

func (d *Datasets) DailyReport(ctx context.Context) ([]model.DailyReportRow, error) {
	return get(ctx, d.cache, KeyDailyReport, d.source.DailyReport)
}

// Invalidate forwards to the cache. With no keys it clears everything.
func (d *Datasets) Invalidate(keys ...string) {
	d.cache.Invalidate(keys...)
}
