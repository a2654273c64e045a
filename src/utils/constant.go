package utils

import "time"

// -----------------------------------------------------------------------------

// Defaults observed on the dashboard: a 100 point live cache, a 50 point
// trend window and a 20 row recent table.
const (
	DefaultCacheCapacity = 100
	DefaultTrendPoints   = 50
	DefaultTableRows     = 20
)

// Refresh cadence defaults.
const (
	DefaultAggregatesSeconds     = 30
	DefaultCategoriesSeconds     = 60
	DefaultStatisticsSeconds     = 10
	DefaultAggregateEveryUpdates = 10
	DefaultReconnectSeconds      = 5
	DefaultRequestTimeoutSeconds = 10
)

// -----------------------------------------------------------------------------

// Seconds converts a positive config value to a duration, or returns fallback.
func Seconds(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}
