// Package weather looks up current conditions for the situational context.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"swimcoach-be/pkg/apperror"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	Unavailable    = "Weather information not available."
)

// Provider describes the current weather at a named location.
type Provider interface {
	Current(ctx context.Context, location string) (string, error)
}

type currentResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

type OpenWeather struct {
	ApiKey  string
	BaseURL string
	Client  *http.Client

	cache  *cache.Cache
	logger *zap.Logger
}

// NewOpenWeather caches descriptions per location for ttl. A zero ttl disables caching.
func NewOpenWeather(apiKey string, ttl time.Duration, logger *zap.Logger) *OpenWeather {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &OpenWeather{
		ApiKey:  apiKey,
		BaseURL: DefaultBaseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
	if ttl > 0 {
		w.cache = cache.New(ttl, 2*ttl)
	}
	return w
}

func (w *OpenWeather) Current(ctx context.Context, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", apperror.Validation("location is required")
	}

	key := strings.ToLower(location)
	if w.cache != nil {
		if v, ok := w.cache.Get(key); ok {
			return v.(string), nil
		}
	}

	desc, err := w.fetch(ctx, location)
	if err != nil {
		w.logger.Error("weather lookup failed", zap.String("location", location), zap.Error(err))
		return "", apperror.FromContext(apperror.StageLocation, err, apperror.Provider)
	}
	if w.cache != nil {
		w.cache.SetDefault(key, desc)
	}
	return desc, nil
}

func (w *OpenWeather) fetch(ctx context.Context, location string) (string, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", w.ApiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.BaseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	res, err := w.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openweather request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	// Unknown cities come back as 404 with no weather block.
	if res.StatusCode == http.StatusNotFound {
		return Unavailable, nil
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error from openweather response, code %d, body %s", res.StatusCode, string(body))
	}

	var cur currentResponse
	if err := json.Unmarshal(body, &cur); err != nil {
		return "", err
	}
	return describe(location, cur), nil
}

// describe renders the one-line summary used in prompts.
func describe(location string, cur currentResponse) string {
	if len(cur.Weather) == 0 {
		return Unavailable
	}
	return fmt.Sprintf("Current weather in %s: %s, temperature %s°C",
		location, cur.Weather[0].Description, strconv.FormatFloat(cur.Main.Temp, 'f', -1, 64))
}
