package interfaces

import "live-dashboard/src/models"

// -----------------------------------------------------------------------------
// IDashboard is what outer surfaces (HTTP, hub, filter file) may see of the
// dashboard context.
// -----------------------------------------------------------------------------

type IDashboard interface {
	Filter() models.MFilterState
	SetFilter(filter models.MFilterState) error
	Refresh()
	Resync()

	View(name string) (models.MSeries, bool)
	Views() []models.MSeries
	Statistics() models.MStatistics
	Categories() []string
	Status() models.MConnectionStatus

	// Points returns the cached points of category, newest first
	Points(category string) []models.MDataPoint
	CacheStats() models.MCacheStats
}

// -----------------------------------------------------------------------------
// IExporter writes the latest views to files and returns their paths.
// -----------------------------------------------------------------------------

type IExporter interface {
	Export() ([]string, error)
}
