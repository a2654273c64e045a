package projection

import (
	"live-dashboard/src/analysis/core"
	"live-dashboard/src/cache"
	"live-dashboard/src/models"
)

// MovingAverage maps backend moving averages. No smoothing happens here.
func MovingAverage(records []models.MMovingAveragePoint) models.MSeries {
	series := models.MSeries{
		View:   models.ViewMovingAvg,
		Labels: make([]string, len(records)),
		Values: make([]float64, len(records)),
	}
	for i, r := range records {
		series.Labels[i] = r.Timestamp.Format(TimeLabelLayout)
		series.Values[i] = r.MovingAverage
	}
	return series
}

// -----------------------------------------------------------------------------

// Scatter maps backend (hour, value) records to {x,y} points.
func Scatter(records []models.MScatterPoint) models.MSeries {
	points := make([]models.MXYPoint, len(records))
	for i, r := range records {
		points[i] = models.MXYPoint{X: r.Hour, Y: r.Value}
	}
	return models.MSeries{View: models.ViewScatter, Points: points}
}

// ScatterFromSnapshot maps each cached point to (hour of day, value).
func ScatterFromSnapshot(snap cache.Snapshot) models.MSeries {
	points := make([]models.MXYPoint, snap.Len())
	for i := range points {
		p := snap.At(i)
		points[i] = models.MXYPoint{X: float64(p.Timestamp.Hour()), Y: p.Value}
	}
	return models.MSeries{View: models.ViewScatter, Points: points}
}

// -----------------------------------------------------------------------------

// Hourly maps backend [hour, average] pairs.
func Hourly(records []models.MHourlyPoint) models.MSeries {
	series := models.MSeries{
		View:   models.ViewHourly,
		Labels: make([]string, len(records)),
		Values: make([]float64, len(records)),
	}
	for i, r := range records {
		series.Labels[i] = r.Hour.Format(HourLabelLayout)
		series.Values[i] = r.Average
	}
	return series
}

// -----------------------------------------------------------------------------

// TimeSeries maps backend points of the primary chart, chronological.
func TimeSeries(view, chartType string, points []models.MDataPoint) models.MSeries {
	series := models.MSeries{
		View:      view,
		ChartType: chartType,
		Labels:    make([]string, len(points)),
		Values:    make([]float64, len(points)),
	}
	for i, p := range points {
		series.Labels[i] = p.Timestamp.Format(TimeLabelLayout)
		series.Values[i] = p.Value
	}
	return series
}

// -----------------------------------------------------------------------------

// Gauge renders utilization and its complement. An empty snapshot or a zero
// maximum renders 0 and 100.
func Gauge(snap cache.Snapshot) models.MSeries {
	var utilization float64
	if stats, ok := core.ComputeStatistics(snap.Values()); ok {
		utilization = stats.Utilization
	}
	return gaugeOf(utilization)
}

// gaugeOf renders an already computed utilization.
func gaugeOf(utilization float64) models.MSeries {
	return models.MSeries{
		View:   models.ViewGauge,
		Labels: []string{"utilization", "remaining"},
		Values: []float64{utilization, 100 - utilization},
	}
}
