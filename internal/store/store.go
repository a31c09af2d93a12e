// Package store persists the geocode cache, its daily quota counters,
// and the search log, with SQLite and Postgres drivers.
package store

import (
	"context"

	"github.com/tablescout/tablescout/internal/model"
)

// Store defines the persistence interface for the geocode cache and
// search log.
type Store interface {
	// Quota counters, one row per calendar day. IncrementQuota must be a
	// single atomic upsert-with-increment; rows are never deleted.
	IncrementQuota(ctx context.Context, date string) error
	QuotaUsed(ctx context.Context, date string) (int, error)

	// Geocode cache entries keyed by normalized query. PutGeocode is an
	// atomic insert-or-overwrite; lookups return (nil, nil) on a miss.
	GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error)
	GetGeocodeByPrefix(ctx context.Context, prefix string) (*model.GeocodeEntry, error)
	PutGeocode(ctx context.Context, entry *model.GeocodeEntry) error
	CountGeocodes(ctx context.Context) (int, error)

	// ImportGeocodes bulk-loads pre-resolved entries, overwriting on key
	// collision. Seeding the cache this way spends no provider quota.
	ImportGeocodes(ctx context.Context, entries []model.GeocodeEntry) (int64, error)

	// Search log
	RecordSearch(ctx context.Context, query string, loc model.Coordinate, results int) (*model.SearchRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
