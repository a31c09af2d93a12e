package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablescout/tablescout/internal/model"
)

// slotAt builds a slot spanning [startHour:startMin, endHour:endMin) on a
// fixed test date.
func slotAt(startHour, startMin, endHour, endMin int) model.Slot {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	return model.Slot{
		Date: model.SlotWindow{
			Start: model.SlotTime{Time: day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute)},
			End:   model.SlotTime{Time: day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute)},
		},
	}
}

func venueWithSlots(name string, slots ...model.Slot) model.Venue {
	v := model.Venue{Name: name}
	if len(slots) > 0 {
		v.Availability = &model.Availability{Slots: slots}
	}
	return v
}

func names(venues []model.Venue) []string {
	out := make([]string, len(venues))
	for i, v := range venues {
		out[i] = v.Name
	}
	return out
}

func TestParseSortMode(t *testing.T) {
	for _, valid := range []string{"rating", "distance", "availability", "default"} {
		mode, err := ParseSortMode(valid)
		require.NoError(t, err)
		assert.Equal(t, SortMode(valid), mode)
	}

	_, err := ParseSortMode("popularity")
	assert.Error(t, err)
}

func TestByTimeWindow(t *testing.T) {
	// Query window is 20:00-22:00 = [1200, 1320).
	venues := []model.Venue{
		venueWithSlots("inside", slotAt(20, 30, 21, 30)),
		venueWithSlots("straddles-start", slotAt(19, 0, 20, 30)),
		venueWithSlots("straddles-end", slotAt(21, 30, 23, 0)),
		venueWithSlots("before", slotAt(18, 0, 20, 0)),   // ends exactly at window start
		venueWithSlots("after", slotAt(22, 0, 23, 30)),   // starts exactly at window end
		venueWithSlots("one-of-many", slotAt(12, 0, 13, 0), slotAt(20, 45, 22, 15)),
		venueWithSlots("no-slots"),
	}

	got := New(venues).ByTimeWindow(20*60, 22*60)
	assert.Equal(t, []string{"inside", "straddles-start", "straddles-end", "one-of-many"}, names(got))
}

func TestByTimeWindow_BoundaryIsExclusive(t *testing.T) {
	venues := []model.Venue{
		venueWithSlots("touching", slotAt(22, 0, 23, 20)),
	}
	// [1230, 1400): the slot starts at 1320, inside the window.
	assert.Len(t, New(venues).ByTimeWindow(1230, 1400), 1)
	// [1200, 1320): the slot starts exactly where the window ends.
	assert.Empty(t, New(venues).ByTimeWindow(1200, 1320))
}

func TestByPriceTier(t *testing.T) {
	venues := []model.Venue{
		{Name: "cheap", PriceRangeID: 1},
		{Name: "mid", PriceRangeID: 2},
		{Name: "fancy", PriceRangeID: 3},
		{Name: "unknown"},
	}
	e := New(venues)

	got := e.ByPriceTier([]int{1, 3})
	assert.Equal(t, []string{"cheap", "fancy"}, names(got))

	// Venues without a tier never match, even a zero selector.
	got = e.ByPriceTier([]int{0})
	assert.Empty(t, got)
}

func TestByPriceTier_EmptySetIsIdentity(t *testing.T) {
	venues := []model.Venue{
		{Name: "a", PriceRangeID: 2},
		{Name: "b"},
	}
	got := New(venues).ByPriceTier(nil)
	assert.Equal(t, []string{"a", "b"}, names(got))

	// Identity still means copy, not alias.
	got[0].Name = "mutated"
	assert.Equal(t, "a", venues[0].Name)
}

func TestCombinedFilter(t *testing.T) {
	venues := []model.Venue{
		{Name: "match", PriceRangeID: 2, Availability: &model.Availability{Slots: []model.Slot{slotAt(20, 0, 21, 30)}}},
		{Name: "wrong-tier", PriceRangeID: 3, Availability: &model.Availability{Slots: []model.Slot{slotAt(20, 0, 21, 30)}}},
		{Name: "wrong-time", PriceRangeID: 2, Availability: &model.Availability{Slots: []model.Slot{slotAt(12, 0, 13, 0)}}},
	}

	got := New(venues).CombinedFilter(19*60, 22*60, []int{2})
	assert.Equal(t, []string{"match"}, names(got))
}

func TestWithAvailability(t *testing.T) {
	venues := []model.Venue{
		venueWithSlots("open", slotAt(19, 0, 20, 30)),
		venueWithSlots("closed"),
	}
	got := New(venues).WithAvailability()
	assert.Equal(t, []string{"open"}, names(got))
}

func TestSortBy_Rating(t *testing.T) {
	venues := []model.Venue{
		{Name: "mid", Rating: &model.Rating{Average: 4.2}},
		{Name: "unrated"},
		{Name: "top", Rating: &model.Rating{Average: 4.9}},
		{Name: "zero", Rating: &model.Rating{Average: 0}},
	}
	got := New(venues).SortBy(SortRating)
	// Missing rating counts as zero; ties keep source order.
	assert.Equal(t, []string{"top", "mid", "unrated", "zero"}, names(got))
}

func TestSortBy_Distance(t *testing.T) {
	ref := model.Coordinate{Lat: 37.7577, Lng: -122.4376}
	venues := []model.Venue{
		{Name: "far", Geo: &model.Coordinate{Lat: 37.8044, Lng: -122.2712}},  // oakland
		{Name: "no-geo"},
		{Name: "near", Geo: &model.Coordinate{Lat: 37.7599, Lng: -122.4148}}, // mission
	}

	got := New(venues, WithReference(ref)).SortBy(SortDistance)
	assert.Equal(t, []string{"near", "far", "no-geo"}, names(got))
}

func TestSortBy_Distance_NoReferenceIsIdentity(t *testing.T) {
	venues := []model.Venue{
		{Name: "b", Geo: &model.Coordinate{Lat: 2, Lng: 2}},
		{Name: "a", Geo: &model.Coordinate{Lat: 1, Lng: 1}},
	}
	got := New(venues).SortBy(SortDistance)
	assert.Equal(t, []string{"b", "a"}, names(got))
}

func TestSortBy_AvailabilityAndDefaultAreInverses(t *testing.T) {
	venues := []model.Venue{
		venueWithSlots("two", slotAt(18, 0, 19, 0), slotAt(20, 0, 21, 0)),
		venueWithSlots("none"),
		venueWithSlots("three", slotAt(18, 0, 19, 0), slotAt(19, 0, 20, 0), slotAt(20, 0, 21, 0)),
	}
	e := New(venues)

	assert.Equal(t, []string{"three", "two", "none"}, names(e.SortBy(SortAvailability)))
	assert.Equal(t, []string{"none", "two", "three"}, names(e.SortBy(SortDefault)))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	venues := []model.Venue{
		venueWithSlots("two", slotAt(18, 0, 19, 0), slotAt(20, 0, 21, 0)),
		venueWithSlots("none"),
	}
	e := New(venues)

	_ = e.Sort(venues, SortAvailability)
	assert.Equal(t, []string{"two", "none"}, names(venues))

	_ = e.SortBy(SortRating)
	assert.Equal(t, []string{"two", "none"}, names(e.Venues()))
}

func TestHaversine(t *testing.T) {
	sf := model.Coordinate{Lat: 37.7749, Lng: -122.4194}
	la := model.Coordinate{Lat: 34.0522, Lng: -118.2437}

	assert.InDelta(t, 347.4, Haversine(sf, la), 1.0)
	assert.Zero(t, Haversine(sf, sf))
	assert.InDelta(t, Haversine(sf, la), Haversine(la, sf), 1e-9)
}
