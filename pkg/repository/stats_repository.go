package repository

import (
	"context"

	"skycast/pkg/pool"
)

type StatsRepository interface {
	// Counts runs both stat queries over a single pooled connection.
	Counts(ctx context.Context) (totalUsers, weatherRequests int64, err error)
}

type statsRepository struct {
	pool *pool.Pool
}

func NewStatsRepository(p *pool.Pool) StatsRepository {
	return &statsRepository{pool: p}
}

func (r *statsRepository) Counts(ctx context.Context) (int64, int64, error) {
	var users, weather int64
	err := r.pool.WithConn(ctx, func(c *pool.Conn) error {
		if err := c.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
			return err
		}
		return c.QueryRowContext(ctx, `SELECT COUNT(*) FROM weather_requests`).Scan(&weather)
	})
	if err != nil {
		return 0, 0, err
	}
	return users, weather, nil
}
