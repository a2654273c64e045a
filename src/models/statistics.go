package models

import "time"

// MStatistics summarizes the values currently held by the cache.
type MStatistics struct {
	Count       int       `json:"count"`
	Mean        float64   `json:"mean"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	StdDev      float64   `json:"std_dev"`
	Utilization float64   `json:"utilization"`
	Complement  float64   `json:"complement"`
	Categories  int       `json:"active_categories"`
	Updates     int       `json:"realtime_updates"`
	ComputedAt  time.Time `json:"computed_at"`
}

// MCacheStats are the cache's operational counters.
type MCacheStats struct {
	Capacity      int    `json:"capacity"`
	Size          int    `json:"size"`
	Ingested      uint64 `json:"ingested"`
	Evicted       uint64 `json:"evicted"`
	Notifications uint64 `json:"notifications"`
	Sequence      uint64 `json:"sequence"`
}
