// Package locality resolves user-entered city names to coordinates and
// filters venue batches to the entered city.
package locality

import (
	"math"
	"sort"
	"strings"

	"github.com/tablescout/tablescout/internal/model"
)

// metersPerMile converts search radii for the provider's geo filter.
const metersPerMile = 1609.34

// cityAliases folds common abbreviations and variations onto canonical
// city names before the built-in table lookup.
var cityAliases = map[string]string{
	"ny":            "new york",
	"nyc":           "new york",
	"new york city": "new york",
	"sf":            "san francisco",
	"la":            "los angeles",
	"dc":            "washington dc",
	"philly":        "philadelphia",
}

// City is a built-in coordinate entry with the locality string venues
// are matched against.
type City struct {
	Coordinate model.Coordinate
	Locality   string
}

var builtinCities = map[string]City{
	"san francisco": {model.Coordinate{Lat: 37.7577, Lng: -122.4376}, "San Francisco"},
	"new york":      {model.Coordinate{Lat: 40.7589, Lng: -73.9851}, "New York"},
	"los angeles":   {model.Coordinate{Lat: 34.0549, Lng: -118.2426}, "Los Angeles"},
	"chicago":       {model.Coordinate{Lat: 41.8758, Lng: -87.6206}, "Chicago"},
	"boston":        {model.Coordinate{Lat: 42.3582, Lng: -71.0636}, "Boston"},
	"washington dc": {model.Coordinate{Lat: 38.8947, Lng: -77.0365}, "Washington"},
	"miami":         {model.Coordinate{Lat: 25.7743, Lng: -80.1937}, "Miami"},
	"philadelphia":  {model.Coordinate{Lat: 39.9527, Lng: -75.1635}, "Philadelphia"},
	"seattle":       {model.Coordinate{Lat: 47.6205, Lng: -122.3493}, "Seattle"},
	"denver":        {model.Coordinate{Lat: 39.7399, Lng: -104.9903}, "Denver"},
	"atlanta":       {model.Coordinate{Lat: 33.7490, Lng: -84.3880}, "Atlanta"},
	"dallas":        {model.Coordinate{Lat: 32.7767, Lng: -96.7970}, "Dallas"},
	"austin":        {model.Coordinate{Lat: 30.2672, Lng: -97.7431}, "Austin"},
}

// NormalizeCity lowercases, trims, and resolves known aliases.
func NormalizeCity(city string) string {
	normalized := strings.ToLower(strings.TrimSpace(city))
	if canonical, ok := cityAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// BuiltinCity looks up the built-in coordinate table after alias
// normalization.
func BuiltinCity(city string) (City, bool) {
	c, ok := builtinCities[NormalizeCity(city)]
	return c, ok
}

// SupportedCities lists the built-in localities, sorted.
func SupportedCities() []string {
	seen := make(map[string]bool, len(builtinCities))
	var out []string
	for _, c := range builtinCities {
		if !seen[c.Locality] {
			seen[c.Locality] = true
			out = append(out, c.Locality)
		}
	}
	sort.Strings(out)
	return out
}

// MatchLocality reports whether a venue's locality matches the expected
// one. Built-in cities use strict either-way substring matching; for
// geocoded queries only the part before the first comma is compared.
func MatchLocality(venueLocality, expected string, builtin bool) bool {
	if venueLocality == "" {
		return false
	}
	vl := strings.ToLower(strings.TrimSpace(venueLocality))
	el := strings.ToLower(expected)

	if builtin {
		return vl == el || strings.Contains(vl, el) || strings.Contains(el, vl)
	}

	mainCity := strings.ToLower(strings.TrimSpace(strings.Split(expected, ",")[0]))
	return strings.Contains(vl, mainCity) || strings.Contains(mainCity, vl)
}

// FilterByLocality keeps venues whose locality matches the resolution.
func FilterByLocality(venues []model.Venue, res *Resolution) []model.Venue {
	var out []model.Venue
	for _, v := range venues {
		if MatchLocality(v.Locality, res.Locality, res.Builtin) {
			out = append(out, v)
		}
	}
	return out
}

// RadiusMeters converts a search radius in miles to whole meters.
func RadiusMeters(miles float64) int {
	return int(math.Round(miles * metersPerMile))
}
