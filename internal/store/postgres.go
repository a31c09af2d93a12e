package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tablescout/tablescout/internal/db"
	"github.com/tablescout/tablescout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; tests use this with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocode_quota (
	date          TEXT PRIMARY KEY,
	request_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	normalized_query TEXT PRIMARY KEY,
	original_query   TEXT NOT NULL,
	lat              DOUBLE PRECISION NOT NULL,
	lng              DOUBLE PRECISION NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	results    INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// IncrementQuota bumps the day's request counter in a single statement so
// concurrent resolvers cannot lose updates.
func (s *PostgresStore) IncrementQuota(ctx context.Context, date string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO geocode_quota (date, request_count) VALUES ($1, 1)
		 ON CONFLICT (date) DO UPDATE SET request_count = geocode_quota.request_count + 1`,
		date,
	)
	return eris.Wrapf(err, "postgres: increment quota %s", date)
}

func (s *PostgresStore) QuotaUsed(ctx context.Context, date string) (int, error) {
	var used int
	err := s.pool.QueryRow(ctx,
		`SELECT request_count FROM geocode_quota WHERE date = $1`, date,
	).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: quota used %s", date)
	}
	return used, nil
}

func (s *PostgresStore) GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT normalized_query, original_query, lat, lng, created_at
		 FROM geocode_cache WHERE normalized_query = $1`,
		key,
	)
	return scanPgGeocode(row)
}

// GetGeocodeByPrefix returns the entry with the shortest stored key that
// has the given normalized key as a prefix, if any.
func (s *PostgresStore) GetGeocodeByPrefix(ctx context.Context, prefix string) (*model.GeocodeEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT normalized_query, original_query, lat, lng, created_at
		 FROM geocode_cache
		 WHERE normalized_query LIKE $1 || '%'
		 ORDER BY LENGTH(normalized_query) ASC
		 LIMIT 1`,
		prefix,
	)
	return scanPgGeocode(row)
}

func (s *PostgresStore) PutGeocode(ctx context.Context, entry *model.GeocodeEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO geocode_cache (normalized_query, original_query, lat, lng, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (normalized_query) DO UPDATE SET
			original_query = EXCLUDED.original_query,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			created_at = EXCLUDED.created_at`,
		entry.NormalizedQuery, entry.OriginalQuery, entry.Lat, entry.Lng, createdAt,
	)
	return eris.Wrapf(err, "postgres: put geocode %s", entry.NormalizedQuery)
}

// ImportGeocodes bulk-loads entries through a temp-table COPY plus a
// single merge, overwriting on key collision.
func (s *PostgresStore) ImportGeocodes(ctx context.Context, entries []model.GeocodeEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows = append(rows, []any{e.NormalizedQuery, e.OriginalQuery, e.Lat, e.Lng, createdAt})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "geocode_cache",
		Columns:      []string{"normalized_query", "original_query", "lat", "lng", "created_at"},
		ConflictKeys: []string{"normalized_query"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import geocodes")
}

func (s *PostgresStore) CountGeocodes(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM geocode_cache`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count geocodes")
}

func (s *PostgresStore) RecordSearch(ctx context.Context, query string, loc model.Coordinate, results int) (*model.SearchRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO searches (id, query, lat, lng, results, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, query, loc.Lat, loc.Lng, results, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: record search")
	}

	return &model.SearchRecord{
		ID:        id,
		Query:     query,
		Location:  loc,
		Results:   results,
		CreatedAt: now,
	}, nil
}

func scanPgGeocode(row pgx.Row) (*model.GeocodeEntry, error) {
	var e model.GeocodeEntry
	err := row.Scan(&e.NormalizedQuery, &e.OriginalQuery, &e.Lat, &e.Lng, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan geocode entry")
	}
	return &e, nil
}
