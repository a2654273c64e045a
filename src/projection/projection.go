// Package projection derives rendering-ready views from cache snapshots and
// backend records. Every function here is pure: the same input always yields
// the same series and nothing is retained between calls.
package projection

import (
	"sort"

	"live-dashboard/src/cache"
	"live-dashboard/src/models"
)

const (
	TimeLabelLayout = "15:04:05"
	HourLabelLayout = "15:04"
)

// Func derives one view from a snapshot and the active filter.
type Func func(snap cache.Snapshot, filter models.MFilterState) models.MSeries

// Named pairs a view name with its projection.
type Named struct {
	View    string
	Project Func
}

// -----------------------------------------------------------------------------

// CacheDriven returns the projections re-rendered on every cache mutation.
func CacheDriven(trendPoints, tableRows int) []Named {
	return []Named{
		{models.ViewTrend, func(snap cache.Snapshot, f models.MFilterState) models.MSeries {
			return Trend(snap.FilteredBy(f.Category), trendPoints)
		}},
		{models.ViewPie, func(snap cache.Snapshot, _ models.MFilterState) models.MSeries {
			return CategoryAggregate(models.ViewPie, snap)
		}},
		{models.ViewBar, func(snap cache.Snapshot, _ models.MFilterState) models.MSeries {
			return CategoryAggregate(models.ViewBar, snap)
		}},
		{models.ViewRecentTable, func(snap cache.Snapshot, _ models.MFilterState) models.MSeries {
			return RecentTable(snap, tableRows)
		}},
	}
}

// -----------------------------------------------------------------------------

// Trend maps the k most recent points to (time label, value), oldest first.
func Trend(snap cache.Snapshot, k int) models.MSeries {
	n := snap.Len()
	if k > 0 && n > k {
		n = k
	}

	series := models.MSeries{
		View:   models.ViewTrend,
		Labels: make([]string, n),
		Values: make([]float64, n),
	}
	// snapshot is newest first, the view reads left to right in time
	for i := 0; i < n; i++ {
		p := snap.At(n - 1 - i)
		series.Labels[i] = p.Timestamp.Format(TimeLabelLayout)
		series.Values[i] = p.Value
	}
	return series
}

// -----------------------------------------------------------------------------

// CategoryAggregate sums values per category. Labels are sorted so repeated
// renders of the same contents are identical.
func CategoryAggregate(view string, snap cache.Snapshot) models.MSeries {
	totals := make(map[string]float64)
	for i := 0; i < snap.Len(); i++ {
		p := snap.At(i)
		totals[p.Category] += p.Value
	}

	labels := make([]string, 0, len(totals))
	for category := range totals {
		labels = append(labels, category)
	}
	sort.Strings(labels)

	values := make([]float64, len(labels))
	for i, category := range labels {
		values[i] = totals[category]
	}
	return models.MSeries{View: view, Labels: labels, Values: values}
}

// FromTotals maps backend [category, total] pairs, keeping backend order.
func FromTotals(view string, totals []models.MCategoryTotal) models.MSeries {
	series := models.MSeries{
		View:   view,
		Labels: make([]string, len(totals)),
		Values: make([]float64, len(totals)),
	}
	for i, t := range totals {
		series.Labels[i] = t.Category
		series.Values[i] = t.Total
	}
	return series
}

// -----------------------------------------------------------------------------

// RecentTable returns the first rows points, newest first.
func RecentTable(snap cache.Snapshot, rows int) models.MSeries {
	n := snap.Len()
	if rows > 0 && n > rows {
		n = rows
	}

	out := make([]models.MDataPoint, n)
	for i := 0; i < n; i++ {
		out[i] = snap.At(i)
	}
	return models.MSeries{View: models.ViewRecentTable, Rows: out}
}
