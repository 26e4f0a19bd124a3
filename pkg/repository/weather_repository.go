package repository

import (
	"context"

	"skycast/pkg/pool"
)

type WeatherRepository interface {
	// Record persists one completed lookup for the stats counters.
	Record(ctx context.Context, city string, temp float64) error
}

type weatherRepository struct {
	pool *pool.Pool
}

func NewWeatherRepository(p *pool.Pool) WeatherRepository {
	return &weatherRepository{pool: p}
}

func (r *weatherRepository) Record(ctx context.Context, city string, temp float64) error {
	return r.pool.WithConn(ctx, func(c *pool.Conn) error {
		_, err := c.ExecContext(ctx,
			`INSERT INTO weather_requests (city, temp) VALUES ($1, $2)`, city, temp)
		return err
	})
}
