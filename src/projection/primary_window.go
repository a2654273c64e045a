package projection

import (
	"live-dashboard/src/models"
	"live-dashboard/src/utils"
)

// -----------------------------------------------------------------------------
// PrimaryWindow is the chronological live window behind the primary chart. It
// is seeded by a filtered time-series fetch and extended by matching pushes.
// Not safe for concurrent use; the dashboard loop owns it.
// -----------------------------------------------------------------------------

type PrimaryWindow struct {
	limit     int
	category  string
	chartType string
	points    []models.MDataPoint
}

func NewPrimaryWindow(limit int) *PrimaryWindow {
	if limit <= 0 {
		limit = utils.DefaultTrendPoints
	}
	return &PrimaryWindow{limit: limit, chartType: models.DefaultChartType}
}

// -----------------------------------------------------------------------------

// Seed replaces the window with chronological points for filter.
func (w *PrimaryWindow) Seed(filter models.MFilterState, points []models.MDataPoint) {
	w.category = filter.Category
	w.chartType = filter.ChartType
	w.points = w.points[:0]
	w.push(points)
}

// SetChartType changes the rendering hint without refetching.
func (w *PrimaryWindow) SetChartType(chartType string) {
	w.chartType = chartType
}

// -----------------------------------------------------------------------------

// Append adds the points matching the window's category in the given order.
// It reports whether anything was added.
func (w *PrimaryWindow) Append(points []models.MDataPoint) bool {
	matching := make([]models.MDataPoint, 0, len(points))
	for _, p := range points {
		if w.category == "" || p.Category == w.category {
			matching = append(matching, p)
		}
	}
	if len(matching) == 0 {
		return false
	}
	w.push(matching)
	return true
}

func (w *PrimaryWindow) push(points []models.MDataPoint) {
	w.points = append(w.points, points...)
	if over := len(w.points) - w.limit; over > 0 {
		w.points = append(w.points[:0], w.points[over:]...)
	}
}

// -----------------------------------------------------------------------------

// Len returns the number of points in the window.
func (w *PrimaryWindow) Len() int {
	return len(w.points)
}

// Series renders the window.
func (w *PrimaryWindow) Series() models.MSeries {
	return TimeSeries(models.ViewPrimary, w.chartType, w.points)
}
