// Package model defines the venue batch and persisted-row types shared
// across the store, geocode cache, and ranking engine.
package model

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
)

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Rating holds a venue's average rating and review count.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// SlotTime wraps time.Time to decode the reservation provider's
// "2006-01-02 15:04:05" timestamps, falling back to RFC 3339.
type SlotTime struct {
	time.Time
}

const slotTimeLayout = "2006-01-02 15:04:05"

// UnmarshalJSON implements json.Unmarshaler.
func (t *SlotTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return eris.Wrap(err, "model: slot time")
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(slotTimeLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return eris.Wrapf(err, "model: parse slot time %q", s)
		}
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t SlotTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(slotTimeLayout))
}

// SlotWindow is a bookable interval with start and end timestamps.
type SlotWindow struct {
	Start SlotTime `json:"start"`
	End   SlotTime `json:"end"`
}

// SlotConfig carries the table metadata attached to a slot.
type SlotConfig struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

// SlotShift identifies the service shift a slot belongs to.
type SlotShift struct {
	ID  int    `json:"id"`
	Day string `json:"day"`
}

// Slot is a single bookable time interval belonging to a venue.
type Slot struct {
	Date   SlotWindow `json:"date"`
	Config SlotConfig `json:"config"`
	Shift  SlotShift  `json:"shift"`
}

// Availability wraps a venue's slot list.
type Availability struct {
	Slots []Slot `json:"slots"`
}

// VenueID is the provider-side identifier envelope.
type VenueID struct {
	Resy int `json:"resy"`
}

// HighlightValue is a search-highlight override for a display field.
type HighlightValue struct {
	Value string `json:"value"`
}

// HighlightResult carries search-highlight overrides for venue fields.
type HighlightResult struct {
	Name         *HighlightValue  `json:"name,omitempty"`
	Neighborhood *HighlightValue  `json:"neighborhood,omitempty"`
	Cuisine      []HighlightValue `json:"cuisine,omitempty"`
}

// ContentItem is one free-text content block keyed by topic name.
type ContentItem struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Venue is a read-only search hit from the reservation provider. Only the
// fields the ranking engine reads are modeled; everything else is dropped
// at decode time.
type Venue struct {
	ID           VenueID          `json:"id"`
	ObjectID     string           `json:"objectID"`
	Name         string           `json:"name,omitempty"`
	Locality     string           `json:"locality"`
	PriceRangeID int              `json:"price_range_id,omitempty"`
	Rating       *Rating          `json:"rating,omitempty"`
	Availability *Availability    `json:"availability,omitempty"`
	Geo          *Coordinate      `json:"_geoloc,omitempty"`
	Highlight    *HighlightResult `json:"_highlightResult,omitempty"`

	// Content is either a flat []ContentItem or a per-language nested
	// map; it is decoded lazily by the ranking engine.
	Content json.RawMessage `json:"content,omitempty"`
}

// SlotCount returns the number of availability slots, 0 when absent.
func (v *Venue) SlotCount() int {
	if v.Availability == nil {
		return 0
	}
	return len(v.Availability.Slots)
}

// Slots returns the venue's slot list, nil when absent.
func (v *Venue) Slots() []Slot {
	if v.Availability == nil {
		return nil
	}
	return v.Availability.Slots
}

// SearchResult is the hit envelope within a provider search response.
type SearchResult struct {
	Hits []Venue `json:"hits"`
}

// SearchResponse is the subset of a provider search response the engine
// consumes: the hit list and the coordinate the search was centered on.
type SearchResponse struct {
	Search         SearchResult `json:"search"`
	SearchLocation *Coordinate  `json:"searchLocation,omitempty"`
}

// DecodeBatch reads an already-fetched search response and returns its
// venue batch plus the embedded reference coordinate, if any.
func DecodeBatch(r io.Reader) (*SearchResponse, error) {
	dec := json.NewDecoder(r)
	var resp SearchResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, eris.Wrap(err, "model: decode venue batch")
	}
	return &resp, nil
}

