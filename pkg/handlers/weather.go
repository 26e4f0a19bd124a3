package handlers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"skycast/pkg/core"
	"skycast/pkg/models"
	"skycast/pkg/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sethvargo/go-retry"
)

type WeatherHandler struct {
	weather services.WeatherService
}

func NewWeather(weather services.WeatherService) *WeatherHandler {
	return &WeatherHandler{weather: weather}
}

// Get serves GET /weather?city=. A transient upstream failure is retried
// exactly once here, on the caller's side of the core; the cache itself
// never retries.
func (wh *WeatherHandler) Get(c *fiber.Ctx) error {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		return c.Status(400).JSON(fiber.Map{"error": "city parameter is required"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	var report models.WeatherReport
	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(100*time.Millisecond)),
		func(ctx context.Context) error {
			var err error
			report, err = wh.weather.Lookup(ctx, city)
			if errors.Is(err, core.ErrUpstreamUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		})

	switch {
	case errors.Is(err, core.ErrCityUnknown):
		return c.Status(404).JSON(fiber.Map{"error": "weather data not available for city: " + city})
	case errors.Is(err, core.ErrUpstreamUnavailable):
		return c.Status(503).JSON(fiber.Map{"error": "weather provider unavailable, retry shortly"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(504).JSON(fiber.Map{"error": "weather lookup timed out"})
	case err != nil:
		log.Println("[WEATHER] lookup error:", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(report)
}
