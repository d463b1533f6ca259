package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"courtside/cache"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Place struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rating    float64 `json:"rating,omitempty"`
}

type PlacesConfig struct {
	URL        string
	APIKey     string
	RatePerSec float64
	CacheTTL   time.Duration
}

// PlacesService proxies court searches to the places provider, rate limited and cached.
type PlacesService struct {
	Config  PlacesConfig
	Client  *http.Client
	Cache   cache.Cache
	Logger  *zap.Logger
	limiter *rate.Limiter
}

func NewPlacesService(cfg PlacesConfig, client *http.Client, c cache.Cache, logger *zap.Logger) *PlacesService {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	return &PlacesService{
		Config:  cfg,
		Client:  client,
		Cache:   c,
		Logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
	}
}

// NormalizeQuery collapses whitespace and lower-cases the query.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID          string  `json:"place_id"`
		Name             string  `json:"name"`
		FormattedAddress string  `json:"formatted_address"`
		Rating           float64 `json:"rating"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (s *PlacesService) Search(ctx context.Context, query string) ([]Place, error) {
	q := NormalizeQuery(query)
	if q == "" || utf8.RuneCountInString(q) > 120 {
		return nil, invalid("query must be 1 to 120 characters")
	}
	if s.Config.APIKey == "" {
		return nil, ErrUnavailable
	}

	key := cache.PlacesKey(q)
	if s.Cache != nil {
		var cached []Place
		if hit, err := cache.GetJSON(ctx, s.Cache, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "places rate limit")
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("key", s.Config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Config.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build places request")
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		s.Logger.Error("places request failed", zap.Error(err))
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(ErrUnavailable, fmt.Sprintf("places status %d", resp.StatusCode))
	}

	var body placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode places response")
	}
	if body.Status != "" && body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		s.Logger.Error("places provider error", zap.String("status", body.Status))
		return nil, errors.Wrap(ErrUnavailable, "places "+body.Status)
	}

	places := make([]Place, 0, len(body.Results))
	for _, r := range body.Results {
		places = append(places, Place{
			ID:        r.PlaceID,
			Name:      r.Name,
			Address:   r.FormattedAddress,
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
			Rating:    r.Rating,
		})
	}
	if s.Cache != nil {
		if err := cache.SetJSON(ctx, s.Cache, key, places, s.Config.CacheTTL); err != nil {
			s.Logger.Warn("cache places failed", zap.Error(err))
		}
	}
	return places, nil
}
