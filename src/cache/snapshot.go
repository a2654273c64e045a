package cache

import "live-dashboard/src/models"

// -----------------------------------------------------------------------------
// Snapshot is an immutable, newest-first copy of the cache contents.
// -----------------------------------------------------------------------------

type Snapshot struct {
	points   []models.MDataPoint
	Sequence uint64
}

// -----------------------------------------------------------------------------

func newSnapshot(points []models.MDataPoint, sequence uint64) Snapshot {
	if points == nil {
		points = []models.MDataPoint{}
	}
	return Snapshot{points: points, Sequence: sequence}
}

// -----------------------------------------------------------------------------

// Len returns the number of points held.
func (s Snapshot) Len() int {
	return len(s.points)
}

// At returns the i-th point, 0 being the newest arrival.
func (s Snapshot) At(i int) models.MDataPoint {
	return s.points[i]
}

// Points returns a copy of the points, newest first.
func (s Snapshot) Points() []models.MDataPoint {
	out := make([]models.MDataPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Values returns the point values, newest first.
func (s Snapshot) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// -----------------------------------------------------------------------------

// FilteredBy returns the points of category in the same order. An empty
// category returns the snapshot itself.
func (s Snapshot) FilteredBy(category string) Snapshot {
	if category == "" {
		return s
	}

	filtered := make([]models.MDataPoint, 0, len(s.points))
	for _, p := range s.points {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return newSnapshot(filtered, s.Sequence)
}

// -----------------------------------------------------------------------------

// Categories returns the distinct categories in order of first appearance.
func (s Snapshot) Categories() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range s.points {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
