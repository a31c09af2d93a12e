package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "geocode_cache",
		Columns:      []string{"normalized_query", "lat", "lng"},
		ConflictKeys: []string{"normalized_query"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "geocode_cache",
		ConflictKeys: []string{"normalized_query"},
	}, [][]any{{"sf"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:   "geocode_cache",
		Columns: []string{"normalized_query", "lat"},
	}, [][]any{{"sf", 37.7}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_ConflictKeyNotInColumns(t *testing.T) {
	_, err := BulkUpsert(nil, nil, UpsertConfig{
		Table:        "geocode_cache",
		Columns:      []string{"lat", "lng"},
		ConflictKeys: []string{"normalized_query"},
	}, [][]any{{37.7, -122.4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `conflict key "normalized_query" not in columns`)
}

func TestDedupeRows_LastWriteWins(t *testing.T) {
	rows := [][]any{
		{"valencia st", "Valencia Street", 1.0},
		{"brooklyn", "Brooklyn", 2.0},
		{"valencia st", "valencia st.", 3.0},
	}

	got := dedupeRows(rows, []int{0})
	require.Len(t, got, 2)
	// Last occurrence's values, first occurrence's position.
	assert.Equal(t, []any{"valencia st", "valencia st.", 3.0}, got[0])
	assert.Equal(t, []any{"brooklyn", "Brooklyn", 2.0}, got[1])
}

func TestDedupeRows_CompositeKey(t *testing.T) {
	rows := [][]any{
		{"2025-06-15", "mapbox", 1},
		{"2025-06-15", "nominatim", 2},
		{"2025-06-15", "mapbox", 3},
	}

	got := dedupeRows(rows, []int{0, 1})
	require.Len(t, got, 2)
	assert.Equal(t, []any{"2025-06-15", "mapbox", 3}, got[0])
	assert.Equal(t, []any{"2025-06-15", "nominatim", 2}, got[1])
}

func TestDedupeRows_NoDuplicates(t *testing.T) {
	rows := [][]any{{"a", 1}, {"b", 2}}
	got := dedupeRows(rows, []int{0})
	assert.Equal(t, rows, got)
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"normalized_query", "lat", "lng"})
	assert.Equal(t, `"normalized_query", "lat", "lng"`, result)
}
