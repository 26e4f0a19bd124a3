package models

// WeatherReport is the response for a single city lookup. Field names follow
// the public API contract, not the internal cache layout.
type WeatherReport struct {
	City     string  `json:"city"`
	AvgTemp  float64 `json:"avgTemp"`
	ReqCount int64   `json:"reqCount"`
	Cached   bool    `json:"cached"`
}
