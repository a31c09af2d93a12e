package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablescout/tablescout/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_IncrementQuota(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO geocode_quota`).
		WithArgs("2025-06-15").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.IncrementQuota(context.Background(), "2025-06-15"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QuotaUsed(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT request_count FROM geocode_quota`).
		WithArgs("2025-06-15").
		WillReturnRows(pgxmock.NewRows([]string{"request_count"}).AddRow(42))

	used, err := s.QuotaUsed(context.Background(), "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, 42, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QuotaUsed_MissingDayIsZero(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT request_count FROM geocode_quota`).
		WithArgs("2025-06-16").
		WillReturnError(pgx.ErrNoRows)

	used, err := s.QuotaUsed(context.Background(), "2025-06-16")
	require.NoError(t, err)
	assert.Zero(t, used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetGeocode(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM geocode_cache WHERE normalized_query =`).
		WithArgs("hayes valley sf").
		WillReturnRows(pgxmock.
			NewRows([]string{"normalized_query", "original_query", "lat", "lng", "created_at"}).
			AddRow("hayes valley sf", "Hayes Valley, San Francisco", 37.7759, -122.4245, created))

	entry, err := s.GetGeocode(context.Background(), "hayes valley sf")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Hayes Valley, San Francisco", entry.OriginalQuery)
	assert.InDelta(t, 37.7759, entry.Lat, 0.0001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetGeocode_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM geocode_cache WHERE normalized_query =`).
		WithArgs("nowhere").
		WillReturnError(pgx.ErrNoRows)

	entry, err := s.GetGeocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetGeocodeByPrefix(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`ORDER BY LENGTH\(normalized_query\) ASC`).
		WithArgs("sf").
		WillReturnRows(pgxmock.
			NewRows([]string{"normalized_query", "original_query", "lat", "lng", "created_at"}).
			AddRow("sf soma", "SoMa, SF", 37.7785, -122.3975, time.Now()))

	entry, err := s.GetGeocodeByPrefix(context.Background(), "sf")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "sf soma", entry.NormalizedQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutGeocode(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO geocode_cache .* ON CONFLICT`).
		WithArgs("valencia st", "Valencia Street", 37.76, -122.42, created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutGeocode(context.Background(), &model.GeocodeEntry{
		NormalizedQuery: "valencia st",
		OriginalQuery:   "Valencia Street",
		Lat:             37.76,
		Lng:             -122.42,
		CreatedAt:       created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ImportGeocodes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_geocode_cache"},
		[]string{"normalized_query", "original_query", "lat", "lng", "created_at"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "geocode_cache" .* ON CONFLICT`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after commit is a no-op

	n, err := s.ImportGeocodes(context.Background(), []model.GeocodeEntry{
		{NormalizedQuery: "brooklyn", OriginalQuery: "Brooklyn, NY", Lat: 40.6782, Lng: -73.9442},
		{NormalizedQuery: "queens", OriginalQuery: "Queens, NY", Lat: 40.7282, Lng: -73.7949},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ImportGeocodes_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.ImportGeocodes(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountGeocodes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM geocode_cache`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountGeocodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordSearch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO searches`).
		WithArgs(pgxmock.AnyArg(), "san francisco", 37.7577, -122.4376, 12, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.RecordSearch(context.Background(), "san francisco", model.Coordinate{Lat: 37.7577, Lng: -122.4376}, 12)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 12, rec.Results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS geocode_quota`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
