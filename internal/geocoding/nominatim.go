// Package geocoding resolves street addresses to coordinates. It is
// used when an anchor stop (hotel, break location) is entered with an
// address but no coordinates.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tour-planner/internal/models"
)

// Result is a single geocoding match
type Result struct {
	Coords      models.Coordinates
	DisplayName string
}

// Geocoder provides address-to-coordinates conversion
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
	GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*Result, error)
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// ErrGeocodingFailed is returned when an address cannot be geocoded
type ErrGeocodingFailed struct {
	Address string
	Reason  string
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("geocoding failed for address: %s - %s", e.Address, e.Reason)
}

type nominatimGeocoder struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *time.Ticker
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder creates a Nominatim-backed geocoder. Requests
// are rate limited to one per second per the service's usage policy.
func NewNominatimGeocoder() Geocoder {
	return &nominatimGeocoder{
		baseURL: "https://nominatim.openstreetmap.org",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rateLimiter: time.NewTicker(1 * time.Second),
	}
}

func (g *nominatimGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	results, err := g.query(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		log.Printf("[ERROR] No geocoding results found: address=%s", address)
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}

	log.Printf("[GEOCODING] Response: address=%s lat=%.6f lng=%.6f display_name=%s",
		address, results[0].Coords.Lat, results[0].Coords.Lng, results[0].DisplayName)
	return &results[0], nil
}

func (g *nominatimGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*Result, error) {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		result, err := g.Geocode(ctx, address)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if i < maxRetries-1 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[GEOCODING] Retry %d/%d: address=%s backoff=%v err=%v", i+1, maxRetries, address, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	log.Printf("[ERROR] Geocoding failed after %d retries: address=%s err=%v", maxRetries, address, lastErr)
	return nil, lastErr
}

func (g *nominatimGeocoder) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	results, err := g.query(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	log.Printf("[GEOCODING] Search response: query=%s results_count=%d", query, len(results))
	return results, nil
}

func (g *nominatimGeocoder) query(ctx context.Context, address string, limit int) ([]Result, error) {
	select {
	case <-g.rateLimiter.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	queryURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=%d", g.baseURL, url.QueryEscape(address), limit)
	log.Printf("[GEOCODING] Request: query=%s url=%s", address, queryURL)

	req, err := http.NewRequestWithContext(ctx, "GET", queryURL, nil)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}

	req.Header.Set("User-Agent", "tour-planner/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Geocoding API request failed: query=%s err=%v", address, err)
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] Geocoding API error: query=%s status=%d body=%s", address, resp.StatusCode, string(body))
		return nil, &ErrGeocodingFailed{
			Address: address,
			Reason:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var raw []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		log.Printf("[ERROR] Failed to decode geocoding response: query=%s err=%v", address, err)
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}

	results := make([]Result, 0, len(raw))
	for _, entry := range raw {
		lat, err := strconv.ParseFloat(entry.Lat, 64)
		if err != nil {
			log.Printf("[ERROR] Invalid latitude in geocoding response: query=%s lat=%s", address, entry.Lat)
			continue
		}
		lng, err := strconv.ParseFloat(entry.Lon, 64)
		if err != nil {
			log.Printf("[ERROR] Invalid longitude in geocoding response: query=%s lng=%s", address, entry.Lon)
			continue
		}

		results = append(results, Result{
			Coords:      models.Coordinates{Lat: lat, Lng: lng},
			DisplayName: entry.DisplayName,
		})
	}

	return results, nil
}
