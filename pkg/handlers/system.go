package handlers

import (
	"skycast/pkg/pool"
	"skycast/pkg/session"
	"skycast/pkg/weather"

	"github.com/gofiber/fiber/v2"
)

type SystemHandler struct {
	name     string
	version  string
	sessions *session.Store
	cache    *weather.Cache
	pool     *pool.Pool
}

func NewSystem(name, version string, sessions *session.Store, cache *weather.Cache, p *pool.Pool) *SystemHandler {
	return &SystemHandler{name: name, version: version, sessions: sessions, cache: cache, pool: p}
}

// Config serves the session-gated service info endpoint.
func (s *SystemHandler) Config(c *fiber.Ctx) error {
	free, inUse := s.pool.Stats()
	return c.JSON(fiber.Map{
		"service_name":    s.name,
		"version":         s.version,
		"active_sessions": s.sessions.Len(),
		"cache_size":      s.cache.Size(),
		"pool": fiber.Map{
			"free": free, "in_use": inUse, "total": s.pool.Size(),
		},
	})
}
