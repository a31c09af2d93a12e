package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/tablescout/tablescout/internal/model"
)

const mapboxGeocodeURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// mapboxResponse is the JSON response from the Mapbox Geocoding API.
type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

type mapboxFeature struct {
	// Center is [longitude, latitude].
	Center    []float64 `json:"center"`
	PlaceName string    `json:"place_name"`
}

// MapboxProvider geocodes via the Mapbox Geocoding API.
type MapboxProvider struct {
	httpClient *http.Client
	token      string
	limiter    *rate.Limiter
}

// MapboxOption configures the Mapbox provider.
type MapboxOption func(*MapboxProvider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) MapboxOption {
	return func(p *MapboxProvider) {
		p.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for Mapbox calls.
func WithRateLimit(rps float64) MapboxOption {
	return func(p *MapboxProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// NewMapbox creates a MapboxProvider with the given access token.
func NewMapbox(token string, opts ...MapboxOption) *MapboxProvider {
	p := &MapboxProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *MapboxProvider) Name() string { return "mapbox" }

// Available implements Provider; a missing access token is a
// configuration failure, not a retry condition.
func (p *MapboxProvider) Available() bool { return p.token != "" }

// Geocode implements Provider. A returned error means the call never
// completed; a Matched=false result means Mapbox answered with no
// features for the query.
func (p *MapboxProvider) Geocode(ctx context.Context, query string) (*ProviderResult, error) {
	if p.token == "" {
		return nil, eris.New("geocode: mapbox access token not configured")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox rate limit")
	}

	params := url.Values{
		"access_token": {p.token},
		"limit":        {"1"},
	}
	reqURL := mapboxGeocodeURL + "/" + url.PathEscape(query) + ".json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: mapbox returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox read body")
	}

	var mbResp mapboxResponse
	if err := json.Unmarshal(body, &mbResp); err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox parse response")
	}

	if len(mbResp.Features) == 0 || len(mbResp.Features[0].Center) < 2 {
		return &ProviderResult{Matched: false}, nil
	}

	center := mbResp.Features[0].Center
	return &ProviderResult{
		Coordinate: model.Coordinate{Lat: center[1], Lng: center[0]},
		Matched:    true,
	}, nil
}
