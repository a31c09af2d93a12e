package rank

import (
	"encoding/json"
	"math"

	"github.com/tablescout/tablescout/internal/model"
)

// unknownName is the placeholder when neither a highlight override nor a
// venue name is present.
const unknownName = "Unknown Restaurant"

// contentLang is the language tag tried for nested content maps.
const contentLang = "en-us"

// DisplayName prefers the search-highlight override, then the venue's
// own name, then a fixed placeholder.
func DisplayName(v *model.Venue) string {
	if v.Highlight != nil && v.Highlight.Name != nil && v.Highlight.Name.Value != "" {
		return v.Highlight.Name.Value
	}
	if v.Name != "" {
		return v.Name
	}
	return unknownName
}

// PriceLabel maps price tier 1/2/3 to a dollar-sign label; any other
// value, including absent, maps to the empty string.
func PriceLabel(v *model.Venue) string {
	switch v.PriceRangeID {
	case 1:
		return "$"
	case 2:
		return "$$"
	case 3:
		return "$$$"
	default:
		return ""
	}
}

// ContentFor looks up a venue content body by topic. The flat
// {name, body} list shape is tried first, then the nested per-language
// map under "en-us". A missing or empty body is absent.
func ContentFor(v *model.Venue, topic string) (string, bool) {
	if len(v.Content) == 0 {
		return "", false
	}

	var flat []model.ContentItem
	if err := json.Unmarshal(v.Content, &flat); err == nil {
		for _, item := range flat {
			if item.Name == topic && item.Body != "" {
				return item.Body, true
			}
		}
		return "", false
	}

	var nested map[string]map[string]model.ContentItem
	if err := json.Unmarshal(v.Content, &nested); err == nil {
		if item, ok := nested[contentLang][topic]; ok && item.Body != "" {
			return item.Body, true
		}
	}
	return "", false
}

// SlotDurationMinutes returns the rounded minutes between a slot's end
// and start.
func SlotDurationMinutes(s model.Slot) int {
	return int(math.Round(s.Date.End.Sub(s.Date.Start.Time).Minutes()))
}

// FormatSlotTime renders a slot's start on a 12-hour clock, e.g. "5:30 PM".
func FormatSlotTime(s model.Slot) string {
	return s.Date.Start.Format("3:04 PM")
}

// CuisineTypes returns the highlight cuisine values, if any.
func CuisineTypes(v *model.Venue) []string {
	if v.Highlight == nil || len(v.Highlight.Cuisine) == 0 {
		return nil
	}
	out := make([]string, 0, len(v.Highlight.Cuisine))
	for _, c := range v.Highlight.Cuisine {
		out = append(out, c.Value)
	}
	return out
}

// Neighborhood returns the highlight neighborhood value, if present.
func Neighborhood(v *model.Venue) (string, bool) {
	if v.Highlight == nil || v.Highlight.Neighborhood == nil || v.Highlight.Neighborhood.Value == "" {
		return "", false
	}
	return v.Highlight.Neighborhood.Value, true
}
