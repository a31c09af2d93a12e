package model

import "time"

// GeocodeEntry is one cached resolution keyed by normalized query.
// Re-resolving the same normalized key overwrites the coordinate and
// timestamp (last write wins).
type GeocodeEntry struct {
	NormalizedQuery string    `json:"normalized_query"`
	OriginalQuery   string    `json:"original_query"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	CreatedAt       time.Time `json:"created_at"`
}

// Coordinate returns the entry's coordinate pair.
func (e *GeocodeEntry) Coordinate() Coordinate {
	return Coordinate{Lat: e.Lat, Lng: e.Lng}
}

// QuotaStats reports provider usage for a single calendar day.
type QuotaStats struct {
	Date  string `json:"date"`
	Used  int    `json:"used"`
	Limit int    `json:"limit"`
}

// Available reports whether another provider call fits in the budget.
func (q QuotaStats) Available() bool {
	return q.Used < q.Limit
}

// CacheStats reports the size of the geocode cache.
type CacheStats struct {
	TotalCached int `json:"total_cached"`
}

// SearchRecord is one logged search run.
type SearchRecord struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	Location  Coordinate `json:"location"`
	Results   int        `json:"results"`
	CreatedAt time.Time  `json:"created_at"`
}
