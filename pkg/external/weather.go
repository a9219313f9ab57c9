package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultWeatherURL = "https://api.openweathermap.org/data/2.5"

// Conditions is the subset of the upstream weather payload the app
// renders.
type Conditions struct {
	City        string  `json:"city,omitempty"`
	Description string  `json:"description,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	TempC       float64 `json:"temp_c"`
	FeelsLikeC  float64 `json:"feels_like_c"`
	Humidity    int     `json:"humidity"`
	WindMS      float64 `json:"wind_ms"`
}

// WeatherClient calls an OpenWeatherMap-compatible current-conditions
// endpoint. Failures are returned to the caller; there is no retry.
type WeatherClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewWeatherClient returns a client for the given base URL and API key.
// An empty baseURL selects the public OpenWeatherMap endpoint.
func NewWeatherClient(baseURL, apiKey string, timeout time.Duration) *WeatherClient {
	if baseURL == "" {
		baseURL = defaultWeatherURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WeatherClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Current fetches current conditions at a point.
func (c *WeatherClient) Current(ctx context.Context, lat, lon float64) (Conditions, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%v", lat))
	q.Set("lon", fmt.Sprintf("%v", lon))
	q.Set("units", "metric")
	if c.apiKey != "" {
		q.Set("appid", c.apiKey)
	}
	u := c.baseURL + "/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Conditions{}, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Conditions{}, fmt.Errorf("weather upstream status %d", resp.StatusCode)
	}

	var out struct {
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Conditions{}, fmt.Errorf("invalid weather response: %w", err)
	}

	cond := Conditions{
		City:       out.Name,
		TempC:      out.Main.Temp,
		FeelsLikeC: out.Main.FeelsLike,
		Humidity:   out.Main.Humidity,
		WindMS:     out.Wind.Speed,
	}
	if len(out.Weather) > 0 {
		cond.Description = out.Weather[0].Description
		cond.Icon = out.Weather[0].Icon
	}
	return cond, nil
}
