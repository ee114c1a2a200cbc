package util

import (
	"time"

	"golang.org/x/time/rate"
)

// NewPacer returns a limiter that lets one request through immediately and
// spaces later ones by interval. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
