package handlers

import (
	"skycast/pkg/stats"

	"github.com/gofiber/fiber/v2"
)

type StatsHandler struct {
	stats *stats.Aggregator
}

func NewStats(agg *stats.Aggregator) *StatsHandler {
	return &StatsHandler{stats: agg}
}

// Get serves GET /db-stats. Degraded snapshots still answer 200; the
// partial marker in the body is the signal, not the status code.
func (sh *StatsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(sh.stats.Snapshot(c.UserContext()))
}
