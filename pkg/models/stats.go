package models

// CacheStatus reports in-memory sizes only.
type CacheStatus struct {
	WeatherCacheSize int `json:"weather_cache_size"`
	SessionCount     int `json:"session_count"`
}

// StatsSnapshot is a plain scalar tree built fresh per request. It never
// holds a reference to a live component, so serializing it cannot recurse.
// The database-backed counts are nil when the backing store was unreachable;
// Partial marks that degradation explicitly.
type StatsSnapshot struct {
	TotalUsers      *int64      `json:"total_users"`
	WeatherRequests *int64      `json:"weather_requests"`
	CacheStatus     CacheStatus `json:"cache_status"`
	Partial         bool        `json:"partial,omitempty"`
}
