package weather

import (
	"context"
	"math/rand"
	"time"

	"skycast/pkg/core"
)

// baseTemps is the stand-in upstream's city table. Real provider integration
// is out of scope; the contract is one reading per call.
var baseTemps = map[string]float64{
	"london":   15.5,
	"paris":    18.2,
	"new york": 22.1,
	"tokyo":    25.3,
	"berlin":   12.8,
	"madrid":   28.4,
	"rome":     24.7,
	"moscow":   8.3,
	"sydney":   21.6,
	"toronto":  16.9,
}

// MockProvider simulates the external weather service: a base temperature
// per known city with up to ±3.0 of jitter, behind a small network delay.
type MockProvider struct {
	latency time.Duration
}

func NewMockProvider() *MockProvider {
	return &MockProvider{latency: 20 * time.Millisecond}
}

func (p *MockProvider) Fetch(ctx context.Context, city string) (float64, error) {
	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	base, ok := baseTemps[Normalize(city)]
	if !ok {
		return 0, core.ErrCityUnknown
	}
	return base + (rand.Float64()*6.0 - 3.0), nil
}
