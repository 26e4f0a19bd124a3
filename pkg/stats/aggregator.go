package stats

import (
	"context"
	"log"

	"skycast/pkg/models"
	"skycast/pkg/repository"
	"skycast/pkg/session"
	"skycast/pkg/weather"
)

// Aggregator composes the stats endpoint's snapshot from the backing store
// counts and the in-memory components' size accessors. The result is a fresh
// scalar tree every time: it never aliases a live component, so it can
// always be serialized.
type Aggregator struct {
	repo     repository.StatsRepository
	sessions *session.Store
	cache    *weather.Cache
}

func NewAggregator(repo repository.StatsRepository, sessions *session.Store, cache *weather.Cache) *Aggregator {
	return &Aggregator{repo: repo, sessions: sessions, cache: cache}
}

// Snapshot builds the current statistics. A backing-store failure degrades
// to a partial snapshot carrying the in-memory figures; it is never a hard
// failure.
func (a *Aggregator) Snapshot(ctx context.Context) models.StatsSnapshot {
	snap := models.StatsSnapshot{
		CacheStatus: models.CacheStatus{
			WeatherCacheSize: a.cache.Size(),
			SessionCount:     a.sessions.Len(),
		},
	}

	users, weatherReqs, err := a.repo.Counts(ctx)
	if err != nil {
		log.Printf("[STATS] count query failed, serving partial snapshot: %v", err)
		snap.Partial = true
		return snap
	}

	snap.TotalUsers = &users
	snap.WeatherRequests = &weatherReqs
	return snap
}
