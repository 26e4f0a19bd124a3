package services

import (
	"context"
	"log"
	"time"

	"skycast/pkg/hub"
	"skycast/pkg/models"
	"skycast/pkg/repository"
	"skycast/pkg/weather"
)

type WeatherService interface {
	Lookup(ctx context.Context, city string) (models.WeatherReport, error)
}

type weatherService struct {
	cache   *weather.Cache
	fetcher weather.Fetcher
	repo    repository.WeatherRepository
	hub     *hub.Hub
}

func NewWeatherService(cache *weather.Cache, fetcher weather.Fetcher, repo repository.WeatherRepository, h *hub.Hub) WeatherService {
	return &weatherService{cache: cache, fetcher: fetcher, repo: repo, hub: h}
}

// Lookup answers from the cache, fetching upstream only on miss or staleness.
// Persisting the lookup for the stats counters happens off the request path;
// a store hiccup there must not fail a lookup the cache already answered.
func (s *weatherService) Lookup(ctx context.Context, city string) (models.WeatherReport, error) {
	report, err := s.cache.RecordAndGet(ctx, city, s.fetcher)
	if err != nil {
		return models.WeatherReport{}, err
	}

	go s.record(report)

	if s.hub != nil {
		go s.hub.Broadcast("weather_lookup", "weather", map[string]any{
			"city": report.City, "avgTemp": report.AvgTemp, "cached": report.Cached,
		})
	}
	return report, nil
}

func (s *weatherService) record(report models.WeatherReport) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Record(ctx, report.City, report.AvgTemp); err != nil {
		log.Printf("[WEATHER] record failed city=%s: %v", report.City, err)
	}
}
