package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tablescout/tablescout/internal/store"
	"github.com/tablescout/tablescout/pkg/geocode"
)

// openStore opens the configured store driver.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newGeocodeCache builds the Mapbox-backed geocode cache over an open store.
func newGeocodeCache(st store.Store) *geocode.Cache {
	provider := geocode.NewMapbox(cfg.Geocode.AccessToken,
		geocode.WithRateLimit(cfg.Geocode.RateLimitRPS),
	)
	return geocode.New(st, provider,
		geocode.WithDailyLimit(cfg.Geocode.DailyLimit),
		geocode.WithBatchConcurrency(cfg.Geocode.BatchConcurrency),
	)
}
