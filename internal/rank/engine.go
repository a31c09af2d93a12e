// Package rank filters, sorts, and formats venue batches. Everything
// here is a pure derivation over a read-only batch; the source slice is
// never mutated, so an Engine is safe for concurrent use.
package rank

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tablescout/tablescout/internal/model"
)

// SortMode selects a venue ordering.
type SortMode string

const (
	SortRating       SortMode = "rating"
	SortDistance     SortMode = "distance"
	SortAvailability SortMode = "availability"
	SortDefault      SortMode = "default"
)

// ParseSortMode validates a user-supplied sort mode string.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case SortRating, SortDistance, SortAvailability, SortDefault:
		return SortMode(s), nil
	}
	return "", eris.Errorf("rank: unknown sort mode %q", s)
}

// Engine derives filtered and sorted views from a venue batch plus an
// optional reference coordinate.
type Engine struct {
	venues []model.Venue
	ref    *model.Coordinate
}

// Option configures the engine.
type Option func(*Engine)

// WithReference sets the coordinate used as the origin for distance
// sorting, typically the searched area's resolved location.
func WithReference(c model.Coordinate) Option {
	return func(e *Engine) {
		e.ref = &c
	}
}

// New creates an Engine over the given batch. The batch is treated as a
// read-only snapshot.
func New(venues []model.Venue, opts ...Option) *Engine {
	e := &Engine{venues: venues}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Venues returns a copy of the full batch.
func (e *Engine) Venues() []model.Venue {
	out := make([]model.Venue, len(e.venues))
	copy(out, e.venues)
	return out
}

// WithAvailability keeps venues whose slot list is non-empty.
func (e *Engine) WithAvailability() []model.Venue {
	var out []model.Venue
	for _, v := range e.venues {
		if v.SlotCount() > 0 {
			out = append(out, v)
		}
	}
	return out
}

// ByPriceTier keeps venues whose price tier is in the given set. An
// empty set means no selection was made and everything passes.
func (e *Engine) ByPriceTier(tiers []int) []model.Venue {
	return filterByTier(e.venues, tiers)
}

// ByTimeWindow keeps venues with at least one slot overlapping the
// [startMin, endMin) window, in minutes since midnight of the slot's
// local wall clock.
func (e *Engine) ByTimeWindow(startMin, endMin int) []model.Venue {
	return filterByWindow(e.venues, startMin, endMin)
}

// CombinedFilter applies the time-window filter, then the price-tier
// filter.
func (e *Engine) CombinedFilter(startMin, endMin int, tiers []int) []model.Venue {
	return filterByTier(filterByWindow(e.venues, startMin, endMin), tiers)
}

// SortBy returns the full batch in the given order.
func (e *Engine) SortBy(mode SortMode) []model.Venue {
	return e.Sort(e.venues, mode)
}

// Sort orders a (typically pre-filtered) venue slice by the given mode.
// The sort is stable and operates on a copy; the input order is
// untouched.
func (e *Engine) Sort(venues []model.Venue, mode SortMode) []model.Venue {
	out := make([]model.Venue, len(venues))
	copy(out, venues)

	switch mode {
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool {
			return ratingOf(&out[i]) > ratingOf(&out[j])
		})

	case SortDistance:
		if e.ref == nil {
			zap.L().Warn("rank: no reference coordinate for distance sort")
			return out
		}
		sort.SliceStable(out, func(i, j int) bool {
			return e.distanceTo(&out[i]) < e.distanceTo(&out[j])
		})

	case SortAvailability:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].SlotCount() > out[j].SlotCount()
		})

	default:
		// The default order is ascending by slot count, the inverse of
		// SortAvailability. Kept as-is; see the known-quirk note in
		// DESIGN.md.
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].SlotCount() < out[j].SlotCount()
		})
	}

	return out
}

// distanceTo returns the haversine distance in miles from the reference
// coordinate; venues without a coordinate sort as infinitely far.
func (e *Engine) distanceTo(v *model.Venue) float64 {
	if v.Geo == nil {
		return math.Inf(1)
	}
	return Haversine(*e.ref, *v.Geo)
}

const earthRadiusMiles = 3959

// Haversine returns the great-circle distance in miles between two
// coordinates on a spherical Earth.
func Haversine(a, b model.Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMiles * c
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}

func filterByTier(venues []model.Venue, tiers []int) []model.Venue {
	if len(tiers) == 0 {
		out := make([]model.Venue, len(venues))
		copy(out, venues)
		return out
	}

	want := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		want[t] = true
	}

	var out []model.Venue
	for _, v := range venues {
		if v.PriceRangeID != 0 && want[v.PriceRangeID] {
			out = append(out, v)
		}
	}
	return out
}

func filterByWindow(venues []model.Venue, startMin, endMin int) []model.Venue {
	var out []model.Venue
	for _, v := range venues {
		for _, s := range v.Slots() {
			if overlaps(s, startMin, endMin) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// overlaps applies strict half-open interval overlap: a slot touching
// the window boundary does not count.
func overlaps(s model.Slot, startMin, endMin int) bool {
	slotStart := minutesSinceMidnight(s.Date.Start)
	slotEnd := minutesSinceMidnight(s.Date.End)
	return slotStart < endMin && slotEnd > startMin
}

func minutesSinceMidnight(t model.SlotTime) int {
	return t.Hour()*60 + t.Minute()
}

func ratingOf(v *model.Venue) float64 {
	if v.Rating == nil {
		return 0
	}
	return v.Rating.Average
}
