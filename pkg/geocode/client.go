// Package geocode resolves free-text location queries to coordinates
// through a normalization-aware persistent cache gated by a daily
// provider quota.
package geocode

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tablescout/tablescout/internal/model"
)

// Result sources. An unmatched result carries SourceQuota when the daily
// budget is spent; provider failures and provider no-results are both
// reported as a plain unmatched result.
const (
	SourceCacheExact  = "cache-exact"
	SourceCachePrefix = "cache-prefix"
	SourceQuota       = "quota"
)

const dateLayout = "2006-01-02"

// Store is the persistence the cache needs. Both store drivers satisfy it.
type Store interface {
	IncrementQuota(ctx context.Context, date string) error
	QuotaUsed(ctx context.Context, date string) (int, error)
	GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error)
	GetGeocodeByPrefix(ctx context.Context, prefix string) (*model.GeocodeEntry, error)
	PutGeocode(ctx context.Context, entry *model.GeocodeEntry) error
	CountGeocodes(ctx context.Context) (int, error)
}

// Provider represents an external geocoding backend. A nil-error result
// with Matched=false means the provider answered "no results" — that
// call is still billable. An error means the call never completed and is
// not billable.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*ProviderResult, error)
	Available() bool
}

// ProviderResult is the outcome of one provider call.
type ProviderResult struct {
	Coordinate model.Coordinate
	Matched    bool
}

// Result holds the outcome of a resolution.
type Result struct {
	Coordinate model.Coordinate `json:"coordinate"`
	Matched    bool             `json:"matched"`
	Source     string           `json:"source,omitempty"`
}

// Cache maps address strings to coordinates, minimizing provider calls
// through cached lookups and a hard daily quota.
type Cache struct {
	store            Store
	provider         Provider
	dailyLimit       int
	batchConcurrency int
	now              func() time.Time
}

// Option configures the cache.
type Option func(*Cache)

// WithDailyLimit sets the daily provider-call budget.
func WithDailyLimit(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.dailyLimit = n
		}
	}
}

// WithBatchConcurrency sets the max parallel resolutions for BatchResolve.
func WithBatchConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.batchConcurrency = n
		}
	}
}

// WithClock overrides the wall clock used for quota day keys.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// DefaultDailyLimit is the Mapbox free tier's 50,000 requests/month
// spread over 30 days.
const DefaultDailyLimit = 1667

// New creates a Cache over the given store and provider.
func New(store Store, provider Provider, opts ...Option) *Cache {
	c := &Cache{
		store:            store,
		provider:         provider,
		dailyLimit:       DefaultDailyLimit,
		batchConcurrency: 4,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve maps a query to a coordinate: cached lookup first, then one
// quota-gated provider call. Unresolvable queries yield an unmatched
// result, never an error; errors are reserved for store failures.
func (c *Cache) Resolve(ctx context.Context, query string) (*Result, error) {
	key := Normalize(query)

	hit, err := c.lookup(ctx, query, key)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		return hit, nil
	}

	today := c.today()
	used, err := c.store.QuotaUsed(ctx, today)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: check quota")
	}
	if used >= c.dailyLimit {
		zap.L().Warn("geocode quota exhausted",
			zap.String("date", today),
			zap.Int("used", used),
			zap.Int("limit", c.dailyLimit),
		)
		return &Result{Matched: false, Source: SourceQuota}, nil
	}

	if !c.provider.Available() {
		zap.L().Error("geocode provider not configured",
			zap.String("provider", c.provider.Name()),
		)
		return &Result{Matched: false}, nil
	}

	// The provider gets the raw query; normalization is a cache concern.
	pr, err := c.provider.Geocode(ctx, query)
	if err != nil {
		zap.L().Warn("geocode provider call failed",
			zap.String("provider", c.provider.Name()),
			zap.String("query", query),
			zap.Error(err),
		)
		return &Result{Matched: false}, nil
	}

	// The call reached the provider, so it counts against the quota even
	// when it found nothing.
	if err := c.store.IncrementQuota(ctx, today); err != nil {
		return nil, eris.Wrap(err, "geocode: increment quota")
	}

	if !pr.Matched {
		zap.L().Warn("geocode found no results",
			zap.String("provider", c.provider.Name()),
			zap.String("query", query),
		)
		return &Result{Matched: false}, nil
	}

	entry := &model.GeocodeEntry{
		NormalizedQuery: key,
		OriginalQuery:   query,
		Lat:             pr.Coordinate.Lat,
		Lng:             pr.Coordinate.Lng,
		CreatedAt:       c.now().UTC(),
	}
	if err := c.store.PutGeocode(ctx, entry); err != nil {
		// The coordinate is still good; losing the cache write only
		// costs a future provider call.
		zap.L().Warn("geocode cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	zap.L().Info("geocode resolved",
		zap.String("provider", c.provider.Name()),
		zap.String("query", query),
		zap.Float64("lat", pr.Coordinate.Lat),
		zap.Float64("lng", pr.Coordinate.Lng),
		zap.Int("quota_used", used+1),
	)

	return &Result{Coordinate: pr.Coordinate, Matched: true, Source: c.provider.Name()}, nil
}

// lookup tries an exact match on the normalized key, then a prefix match
// picking the shortest stored key the query key prefixes. The prefix hit
// is a deliberate cache-hit-maximizing heuristic and may return a nearby
// rather than exact location.
func (c *Cache) lookup(ctx context.Context, query, key string) (*Result, error) {
	entry, err := c.store.GetGeocode(ctx, key)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: cache lookup")
	}
	if entry != nil {
		zap.L().Debug("geocode cache hit (exact)",
			zap.String("query", query),
			zap.String("key", key),
		)
		return &Result{Coordinate: entry.Coordinate(), Matched: true, Source: SourceCacheExact}, nil
	}

	entry, err = c.store.GetGeocodeByPrefix(ctx, key)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: prefix lookup")
	}
	if entry != nil {
		zap.L().Debug("geocode cache hit (prefix)",
			zap.String("query", query),
			zap.String("key", key),
			zap.String("matched_key", entry.NormalizedQuery),
		)
		return &Result{Coordinate: entry.Coordinate(), Matched: true, Source: SourceCachePrefix}, nil
	}

	return nil, nil
}

// BatchResolve resolves queries in parallel. Individual failures yield
// unmatched entries and never fail the batch.
//
// The quota check and the post-call increment are separate statements, so
// workers racing near the daily limit can each pass the check and overshoot
// the counter by up to the batch concurrency. The increment itself never
// loses updates; the limit is a budget, not a hard ceiling.
func (c *Cache) BatchResolve(ctx context.Context, queries []string) ([]Result, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([]Result, len(queries))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchConcurrency)

	for i, q := range queries {
		i, q := i, q
		eg.Go(func() error {
			r, err := c.Resolve(gCtx, q)
			if err != nil || r == nil {
				results[i] = Result{Matched: false}
				return nil //nolint:nilerr // individual failures don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	return results, nil
}

// QuotaStats reports today's provider usage against the daily limit.
func (c *Cache) QuotaStats(ctx context.Context) (model.QuotaStats, error) {
	today := c.today()
	used, err := c.store.QuotaUsed(ctx, today)
	if err != nil {
		return model.QuotaStats{}, eris.Wrap(err, "geocode: quota stats")
	}
	return model.QuotaStats{Date: today, Used: used, Limit: c.dailyLimit}, nil
}

// CacheStats reports the number of cached entries.
func (c *Cache) CacheStats(ctx context.Context) (model.CacheStats, error) {
	n, err := c.store.CountGeocodes(ctx)
	if err != nil {
		return model.CacheStats{}, eris.Wrap(err, "geocode: cache stats")
	}
	return model.CacheStats{TotalCached: n}, nil
}

func (c *Cache) today() string {
	return c.now().UTC().Format(dateLayout)
}
