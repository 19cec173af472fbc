package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"alert-service/internal/logging"
)

const defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Geocoder turns coordinates into a street address using the Google
// Geocoding API. Results are cached by coordinates rounded to ~10m.
type Geocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *gocache.Cache
	logger  *logging.Logger
}

func NewGeocoder(apiKey string, timeout time.Duration, logger *logging.Logger) *Geocoder {
	return &Geocoder{
		apiKey:  apiKey,
		baseURL: defaultGeocodeURL,
		client:  &http.Client{Timeout: timeout},
		cache:   gocache.New(24*time.Hour, time.Hour),
		logger:  logger,
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// ReverseGeocode returns the best address for lat/lon, or "" when the API
// knows none.
func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if v, ok := g.cache.Get(key); ok {
		return v.(string), nil
	}

	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", lat, lon))
	q.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// url.Error carries the request URL, which contains the API key
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoding API returned status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geocode response: %w", err)
	}

	switch body.Status {
	case "OK":
		if len(body.Results) == 0 {
			break
		}
		addr := body.Results[0].FormattedAddress
		g.cache.SetDefault(key, addr)
		return addr, nil
	case "ZERO_RESULTS":
	default:
		return "", fmt.Errorf("geocoding API status %s: %s", body.Status, body.ErrorMessage)
	}

	g.logger.Warnf("No address found for coordinates %s", key)
	g.cache.SetDefault(key, "")
	return "", nil
}
