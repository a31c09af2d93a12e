package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tablescout/tablescout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_quota (
	date          TEXT PRIMARY KEY,
	request_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	normalized_query TEXT PRIMARY KEY,
	original_query   TEXT NOT NULL,
	lat              REAL NOT NULL,
	lng              REAL NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	results    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// IncrementQuota bumps the day's request counter in a single statement so
// concurrent resolvers cannot lose updates.
func (s *SQLiteStore) IncrementQuota(ctx context.Context, date string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_quota (date, request_count) VALUES (?, 1)
		 ON CONFLICT(date) DO UPDATE SET request_count = request_count + 1`,
		date,
	)
	return eris.Wrapf(err, "sqlite: increment quota %s", date)
}

func (s *SQLiteStore) QuotaUsed(ctx context.Context, date string) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx,
		`SELECT request_count FROM geocode_quota WHERE date = ?`, date,
	).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: quota used %s", date)
	}
	return used, nil
}

func (s *SQLiteStore) GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT normalized_query, original_query, lat, lng, created_at
		 FROM geocode_cache WHERE normalized_query = ?`,
		key,
	)
	return scanGeocode(row)
}

// GetGeocodeByPrefix returns the entry with the shortest stored key that
// has the given normalized key as a prefix, if any.
func (s *SQLiteStore) GetGeocodeByPrefix(ctx context.Context, prefix string) (*model.GeocodeEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT normalized_query, original_query, lat, lng, created_at
		 FROM geocode_cache
		 WHERE normalized_query LIKE ? || '%'
		 ORDER BY LENGTH(normalized_query) ASC
		 LIMIT 1`,
		prefix,
	)
	return scanGeocode(row)
}

func (s *SQLiteStore) PutGeocode(ctx context.Context, entry *model.GeocodeEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (normalized_query, original_query, lat, lng, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(normalized_query) DO UPDATE SET
			original_query = excluded.original_query,
			lat = excluded.lat,
			lng = excluded.lng,
			created_at = excluded.created_at`,
		entry.NormalizedQuery, entry.OriginalQuery, entry.Lat, entry.Lng, createdAt,
	)
	return eris.Wrapf(err, "sqlite: put geocode %s", entry.NormalizedQuery)
}

// ImportGeocodes loads entries in one transaction, overwriting on key
// collision.
func (s *SQLiteStore) ImportGeocodes(ctx context.Context, entries []model.GeocodeEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO geocode_cache (normalized_query, original_query, lat, lng, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(normalized_query) DO UPDATE SET
			original_query = excluded.original_query,
			lat = excluded.lat,
			lng = excluded.lng,
			created_at = excluded.created_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, e.NormalizedQuery, e.OriginalQuery, e.Lat, e.Lng, createdAt); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import %s", e.NormalizedQuery)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import: commit")
	}
	return n, nil
}

func (s *SQLiteStore) CountGeocodes(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geocode_cache`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count geocodes")
}

func (s *SQLiteStore) RecordSearch(ctx context.Context, query string, loc model.Coordinate, results int) (*model.SearchRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, lat, lng, results, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, query, loc.Lat, loc.Lng, results, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: record search")
	}

	return &model.SearchRecord{
		ID:        id,
		Query:     query,
		Location:  loc,
		Results:   results,
		CreatedAt: now,
	}, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanGeocode(row scannable) (*model.GeocodeEntry, error) {
	var e model.GeocodeEntry
	err := row.Scan(&e.NormalizedQuery, &e.OriginalQuery, &e.Lat, &e.Lng, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan geocode entry")
	}
	return &e, nil
}
