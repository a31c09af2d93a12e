package locality

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tablescout/tablescout/internal/model"
	"github.com/tablescout/tablescout/pkg/geocode"
)

// fallbackCity is used when a city can neither be found in the built-in
// table nor geocoded.
const fallbackCity = "san francisco"

// Resolution is a resolved search location.
type Resolution struct {
	Coordinate model.Coordinate `json:"coordinate"`
	Locality   string           `json:"locality"`
	Builtin    bool             `json:"builtin"`
	Source     string           `json:"source"`
}

// Resolver turns a city name into a coordinate: built-in table first,
// then the geocode cache, then a fallback.
type Resolver struct {
	cache *geocode.Cache
}

// NewResolver creates a Resolver backed by the given geocode cache.
func NewResolver(cache *geocode.Cache) *Resolver {
	return &Resolver{cache: cache}
}

// Resolve maps a city to a search location. When geocoding is blocked by
// quota exhaustion the caller gets an error naming the supported cities;
// any other geocoding miss falls back to San Francisco with a warning.
func (r *Resolver) Resolve(ctx context.Context, city string) (*Resolution, error) {
	if strings.TrimSpace(city) == "" {
		return nil, eris.New("locality: city is required")
	}

	if c, ok := BuiltinCity(city); ok {
		return &Resolution{
			Coordinate: c.Coordinate,
			Locality:   c.Locality,
			Builtin:    true,
			Source:     "builtin",
		}, nil
	}

	res, err := r.cache.Resolve(ctx, city)
	if err != nil {
		return nil, err
	}
	if res.Matched {
		// Geocoded locations keep the raw input as the expected
		// locality for venue filtering.
		return &Resolution{
			Coordinate: res.Coordinate,
			Locality:   city,
			Source:     res.Source,
		}, nil
	}

	if res.Source == geocode.SourceQuota {
		return nil, eris.Errorf(
			"locality: geocoding quota reached; use one of the supported cities: %s",
			strings.Join(SupportedCities(), ", "),
		)
	}

	zap.L().Warn("locality: unable to geocode city, falling back",
		zap.String("city", city),
		zap.String("fallback", fallbackCity),
	)
	fb := builtinCities[fallbackCity]
	return &Resolution{
		Coordinate: fb.Coordinate,
		Locality:   fb.Locality,
		Builtin:    true,
		Source:     "fallback",
	}, nil
}
