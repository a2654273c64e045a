package models

// View names shared by projections, sinks and the HTTP API.
const (
	ViewTrend        = "trend"
	ViewPie          = "pie"
	ViewBar          = "bar"
	ViewRecentTable  = "recent"
	ViewPrimary      = "primary"
	ViewDistribution = "distribution"
	ViewComparison   = "comparison"
	ViewMovingAvg    = "moving-average"
	ViewScatter      = "scatter"
	ViewHourly       = "hourly"
	ViewGauge        = "gauge"
	ViewStatistics   = "statistics"
)

// MXYPoint is one {x,y} pair for scatter-style views.
type MXYPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MSeries is a rendering-ready view. Only the fields relevant to the view are set.
type MSeries struct {
	View      string       `json:"view"`
	ChartType string       `json:"chartType,omitempty"`
	Labels    []string     `json:"labels,omitempty"`
	Values    []float64    `json:"values,omitempty"`
	Points    []MXYPoint   `json:"points,omitempty"`
	Rows      []MDataPoint `json:"rows,omitempty"`
	Version   uint64       `json:"version"`
}

// Len returns the number of entries of whichever shape the series carries.
func (s MSeries) Len() int {
	switch {
	case len(s.Points) > 0:
		return len(s.Points)
	case len(s.Rows) > 0:
		return len(s.Rows)
	default:
		return len(s.Values)
	}
}

// -----------------------------------------------------------------------------
// Backend record shapes (pull source)
// -----------------------------------------------------------------------------

// MCategoryTotal is one [category, total] pair of the aggregated endpoint.
type MCategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// MMovingAveragePoint is one record of the moving-average endpoint.
type MMovingAveragePoint struct {
	Timestamp     MTimestamp `json:"timestamp"`
	MovingAverage float64    `json:"movingAverage"`
}

// MScatterPoint is one record of the scatter endpoint.
type MScatterPoint struct {
	Hour  float64 `json:"hour"`
	Value float64 `json:"value"`
}

// MHourlyPoint is one [hour, average] pair of the hourly endpoint.
type MHourlyPoint struct {
	Hour    MTimestamp `json:"hour"`
	Average float64    `json:"average"`
}
