package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
)

const (
	defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	// defaultCountry biases lookups to India, where the alerting region is.
	defaultCountry = "in"
)

// lookup is the direction of a geocoding request; it doubles as the metrics label.
type lookup string

const (
	lookupForward lookup = "forward"
	lookupReverse lookup = "reverse"
)

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	country    string
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		token:      token,
		country:    defaultCountry,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// ForwardGeocode converts a city name and optional region to coordinates.
func (c *Client) ForwardGeocode(ctx context.Context, name, region string) (domain.GeocodingResult, error) {
	search := name
	if region != "" {
		search = name + ", " + region
	}
	return c.observe(ctx, lookupForward, search, "place,locality,district")
}

// ReverseGeocode converts device coordinates to a place label.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Mapbox wants lon,lat.
	search := strconv.FormatFloat(lon, 'f', 6, 64) + "," + strconv.FormatFloat(lat, 'f', 6, 64)
	return c.observe(ctx, lookupReverse, search, "place,locality")
}

// observe runs one lookup and records its result class.
func (c *Client) observe(ctx context.Context, kind lookup, search, types string) (domain.GeocodingResult, error) {
	result, err := c.get(ctx, kind, search, types)
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		c.logger.Debug("geocode request failed", "lookup", kind, "error", err)
	case result.FormattedAddress == "":
		outcome = "empty"
	}
	c.metrics.GeocodeRequests.WithLabelValues(string(kind), outcome).Inc()
	return result, err
}

func (c *Client) get(ctx context.Context, kind lookup, search, types string) (domain.GeocodingResult, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("limit", "1")
	q.Set("types", types)
	if kind == lookupForward && c.country != "" {
		q.Set("country", c.country)
	}
	endpoint := c.baseURL + "/" + url.PathEscape(search) + ".json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("build %s geocode request: %w", kind, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("%s geocode request: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.GeocodingResult{}, apiError(resp)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode %s geocode response: %w", kind, err)
	}
	return fc.first(), nil
}

// apiError reads Mapbox's {"message": ...} error body, falling back to the raw text.
func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, raw)
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

// first converts the best match, or returns the zero result when there is none.
func (fc featureCollection) first() domain.GeocodingResult {
	if len(fc.Features) == 0 {
		return domain.GeocodingResult{}
	}
	f := fc.Features[0]
	res := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		res.Lon, res.Lat = f.Center[0], f.Center[1]
	}
	return res
}
