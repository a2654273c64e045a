package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MFilterState holds the user's selection criteria.
type MFilterState struct {
	Category    string `yaml:"category" json:"category"`
	TimeRange   string `yaml:"time_range" json:"timeRange"`
	Aggregation string `yaml:"aggregation" json:"aggregation"`
	ChartType   string `yaml:"chart_type" json:"chartType"`
}

const (
	DefaultTimeRange   = "24h"
	DefaultAggregation = "sum"
	DefaultChartType   = "line"
)

var validAggregations = map[string]bool{
	"sum": true, "avg": true, "count": true, "min": true, "max": true,
}

var validChartTypes = map[string]bool{
	"line": true, "bar": true,
}

// DefaultFilter returns the filter the dashboard starts with.
func DefaultFilter() MFilterState {
	return MFilterState{
		TimeRange:   DefaultTimeRange,
		Aggregation: DefaultAggregation,
		ChartType:   DefaultChartType,
	}
}

// WithDefaults fills empty fields.
func (f MFilterState) WithDefaults() MFilterState {
	if f.TimeRange == "" {
		f.TimeRange = DefaultTimeRange
	}
	if f.Aggregation == "" {
		f.Aggregation = DefaultAggregation
	}
	if f.ChartType == "" {
		f.ChartType = DefaultChartType
	}
	return f
}

// Validate checks the enumerated fields.
func (f MFilterState) Validate() error {
	if _, err := ParseTimeRange(f.TimeRange); err != nil {
		return err
	}
	if !validAggregations[f.Aggregation] {
		return fmt.Errorf("unsupported aggregation %q", f.Aggregation)
	}
	if !validChartTypes[f.ChartType] {
		return fmt.Errorf("unsupported chart type %q", f.ChartType)
	}
	return nil
}

// Params returns the query parameters sent to the pull source.
func (f MFilterState) Params() map[string]string {
	params := map[string]string{
		"timeRange":   f.TimeRange,
		"aggregation": f.Aggregation,
	}
	if f.Category != "" {
		params["category"] = f.Category
	}
	return params
}

// Since returns the lower time bound of the filter relative to now.
func (f MFilterState) Since(now time.Time) time.Time {
	d, err := ParseTimeRange(f.TimeRange)
	if err != nil {
		d = 24 * time.Hour
	}
	return now.Add(-d)
}

// ParseTimeRange accepts Go durations plus a "d" day suffix ("7d", "30d").
func ParseTimeRange(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("time range cannot be empty")
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid time range %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid time range %q", s)
	}
	return d, nil
}
