package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	return &Client{
		token:      testToken,
		country:    defaultCountry,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		metrics:    metrics,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Puri, Odisha")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		assert.Equal(t, "in", r.URL.Query().Get("country"))

		resp := featureCollection{
			Features: []feature{
				{
					Center:    []float64{85.8312, 19.8135},
					PlaceName: "Puri, Odisha, India",
					Text:      "Puri",
					Relevance: 0.95,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)
	result, err := c.ForwardGeocode(context.Background(), "Puri", "Odisha")
	require.NoError(t, err)

	assert.InDelta(t, 19.8135, result.Lat, 0.00001)
	assert.InDelta(t, 85.8312, result.Lon, 0.00001)
	assert.Equal(t, "Puri, Odisha, India", result.FormattedAddress)
	assert.Equal(t, "Puri", result.PlaceName)
	assert.InDelta(t, 0.95, result.Confidence, 0.00001)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("forward", "success")), 0.0001)
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// lon,lat order in the path.
		assert.Contains(t, r.URL.Path, "83.218500,17.686800")
		assert.Empty(t, r.URL.Query().Get("country"))
		resp := featureCollection{
			Features: []feature{
				{
					Center:    []float64{83.2185, 17.6868},
					PlaceName: "Visakhapatnam, Andhra Pradesh, India",
					Text:      "Visakhapatnam",
					Relevance: 0.98,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	result, err := c.ReverseGeocode(context.Background(), 17.6868, 83.2185)
	require.NoError(t, err)

	assert.Equal(t, "Visakhapatnam, Andhra Pradesh, India", result.FormattedAddress)
	assert.Equal(t, "Visakhapatnam", result.PlaceName)
	assert.InDelta(t, 0.98, result.Confidence, 0.00001)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(featureCollection{Features: []feature{}}))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)
	result, err := c.ForwardGeocode(context.Background(), "NOWHERE", "")
	require.NoError(t, err)
	assert.Zero(t, result.Lat)
	assert.Empty(t, result.FormattedAddress)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("forward", "empty")), 0.0001)
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)
	c.token = "bad-token"

	_, err := c.ForwardGeocode(context.Background(), "Puri", "Odisha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Not Authorized")
	assert.NotContains(t, err.Error(), `{"message"`)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("forward", "error")), 0.0001)
}

func TestClient_ReverseGeocode_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)

	_, err := c.ReverseGeocode(context.Background(), 19.81, 85.83)
	require.ErrorContains(t, err, "status 502: upstream unavailable")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("reverse", "error")), 0.0001)
}

func TestClient_ForwardGeocode_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte("{"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	_, err := c.ForwardGeocode(context.Background(), "Puri", "")
	require.ErrorContains(t, err, "decode forward geocode response")
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, observability.NewMetricsForTesting())
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ForwardGeocode(context.Background(), "Puri", "Odisha")
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(testToken, 3*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, defaultCountry, c.country)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
}
