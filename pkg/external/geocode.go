package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const defaultGeocodeURL = "https://nominatim.openstreetmap.org"

// Place is a reverse-geocoded point.
type Place struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

// GeocodeClient calls a Nominatim-compatible reverse geocoding endpoint.
// Lookups are memoized for a short TTL: SOS alerts from the same block
// shouldn't hammer a rate-limited public API.
type GeocodeClient struct {
	baseURL string
	httpc   *http.Client
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	place Place
	at    time.Time
}

// NewGeocodeClient returns a client for the given base URL. An empty
// baseURL selects the public Nominatim endpoint.
func NewGeocodeClient(baseURL string, timeout, ttl time.Duration) *GeocodeClient {
	if baseURL == "" {
		baseURL = defaultGeocodeURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &GeocodeClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		ttl:     ttl,
		cache:   make(map[string]cacheEntry),
	}
}

// Reverse resolves a lat/lng point to an address. Coordinates are
// truncated to ~100m for the cache key.
func (c *GeocodeClient) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	key := fmt.Sprintf("%.3f,%.3f", lat, lon)
	c.mu.Lock()
	if e, ok := c.cache[key]; ok && time.Since(e.at) < c.ttl {
		c.mu.Unlock()
		return e.place, nil
	}
	c.mu.Unlock()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", fmt.Sprintf("%v", lat))
	q.Set("lon", fmt.Sprintf("%v", lon))
	u := c.baseURL + "/reverse?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", "citysafe/1.0")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocode upstream status %d", resp.StatusCode)
	}

	var out struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Place{}, fmt.Errorf("invalid geocode response: %w", err)
	}

	p := Place{Address: out.DisplayName, City: out.Address.City}
	if p.City == "" {
		p.City = out.Address.Town
	}
	if p.City == "" {
		p.City = out.Address.Village
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{place: p, at: time.Now()}
	c.mu.Unlock()
	return p, nil
}
