package core

import (
	"math"

	"live-dashboard/src/models"
)

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	// Calculate mean
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	// Calculate standard deviation with N denominator (population std)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// ComputeStatistics summarizes values. ok is false for an empty input, in
// which case callers skip the update.
func ComputeStatistics(values []float64) (stats models.MStatistics, ok bool) {
	if len(values) == 0 {
		return models.MStatistics{}, false
	}

	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}

	mean, std := CalculateMeanStd(values)
	utilization := Utilization(mean, maxV)

	return models.MStatistics{
		Count:       len(values),
		Mean:        mean,
		Min:         minV,
		Max:         maxV,
		StdDev:      std,
		Utilization: utilization,
		Complement:  100 - utilization,
	}, true
}

// -----------------------------------------------------------------------------

// StatisticsOf summarizes the values of points.
func StatisticsOf(points []models.MDataPoint) (models.MStatistics, bool) {
	values := make([]float64, len(points))
	categories := make(map[string]struct{})
	for i, p := range points {
		values[i] = p.Value
		categories[p.Category] = struct{}{}
	}

	stats, ok := ComputeStatistics(values)
	if ok {
		stats.Categories = len(categories)
	}
	return stats, ok
}

// -----------------------------------------------------------------------------

// Utilization is mean/max as a percentage clamped to [0, 100]. A zero max or
// a non-finite ratio yields 0.
func Utilization(mean, max float64) float64 {
	if max == 0 {
		return 0
	}

	u := mean / max * 100
	if math.IsNaN(u) || math.IsInf(u, 0) {
		return 0
	}
	return math.Max(0, math.Min(100, u))
}
