package interfaces

import (
	"context"

	"live-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IPullSource is the request/response side of the dashboard backend.
// Every call may fail; a malformed payload yields an empty result, not an error.
// -----------------------------------------------------------------------------

type IPullSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchRecent returns the most recent points, newest first.
	FetchRecent(ctx context.Context) ([]models.MDataPoint, error)

	// -----------------------------------------------------------------------------

	// FetchCategories returns the distinct categories known to the backend.
	FetchCategories(ctx context.Context) ([]string, error)

	// -----------------------------------------------------------------------------

	// FetchAggregated returns [category, total] pairs for the filter.
	FetchAggregated(ctx context.Context, filter models.MFilterState) ([]models.MCategoryTotal, error)

	// -----------------------------------------------------------------------------

	// FetchTimeSeries returns the filtered points in chronological order.
	FetchTimeSeries(ctx context.Context, filter models.MFilterState) ([]models.MDataPoint, error)

	// -----------------------------------------------------------------------------

	// FetchMovingAverage returns backend computed moving averages.
	FetchMovingAverage(ctx context.Context, filter models.MFilterState) ([]models.MMovingAveragePoint, error)

	// -----------------------------------------------------------------------------

	// FetchScatter returns (hour, value) records for the heatmap.
	FetchScatter(ctx context.Context, filter models.MFilterState) ([]models.MScatterPoint, error)

	// -----------------------------------------------------------------------------

	// FetchHourly returns hourly averages of one category.
	FetchHourly(ctx context.Context, category string) ([]models.MHourlyPoint, error)

	// -----------------------------------------------------------------------------

	// Close releases connections held by the source
	Close() error
}
