package data_source

import (
	"context"
	"net/url"
	"strings"

	"live-dashboard/src/interfaces"
	"live-dashboard/src/logger"
	"live-dashboard/src/models"
)

// Backend REST paths, relative to the configured base URL.
const (
	PathRecent        = "/api/datapoints/recent"
	PathCategories    = "/api/datapoints/categories"
	PathAggregated    = "/api/datapoints/aggregated"
	PathTimeSeries    = "/api/datapoints/time-series"
	PathMovingAverage = "/api/datapoints/moving-average"
	PathScatter       = "/api/datapoints/scatter"
	PathHourly        = "/api/datapoints/hourly/"
)

// -----------------------------------------------------------------------------
// RESTSource pulls from the dashboard backend's REST API.
// -----------------------------------------------------------------------------

type RESTSource struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRESTSource(baseURL string, network interfaces.INetworkManager, log *logger.Logger) *RESTSource {
	return &RESTSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Network: network,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *RESTSource) Name() string {
	return "rest"
}

func (s *RESTSource) Close() error {
	return nil
}

// -----------------------------------------------------------------------------

func (s *RESTSource) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	return s.Network.Get(ctx, s.BaseURL+path, params)
}

// fetch performs a GET and decodes it. A PayloadError is logged and swallowed
// so that callers only see transport failures.
func fetch[T any](ctx context.Context, s *RESTSource, path string, params map[string]string, decode func([]byte) ([]T, error)) ([]T, error) {
	body, err := s.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	out, err := decode(body)
	if err != nil {
		s.Logger.Debug("Treating payload of %s as empty: %v", path, err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *RESTSource) FetchRecent(ctx context.Context) ([]models.MDataPoint, error) {
	return fetch(ctx, s, PathRecent, nil, DecodeDataPoints)
}

func (s *RESTSource) FetchCategories(ctx context.Context) ([]string, error) {
	return fetch(ctx, s, PathCategories, nil, DecodeStrings)
}

func (s *RESTSource) FetchAggregated(ctx context.Context, filter models.MFilterState) ([]models.MCategoryTotal, error) {
	return fetch(ctx, s, PathAggregated, filter.Params(), DecodeCategoryTotals)
}

func (s *RESTSource) FetchTimeSeries(ctx context.Context, filter models.MFilterState) ([]models.MDataPoint, error) {
	return fetch(ctx, s, PathTimeSeries, filter.Params(), DecodeDataPoints)
}

func (s *RESTSource) FetchMovingAverage(ctx context.Context, filter models.MFilterState) ([]models.MMovingAveragePoint, error) {
	return fetch(ctx, s, PathMovingAverage, filter.Params(), DecodeMovingAverage)
}

func (s *RESTSource) FetchScatter(ctx context.Context, filter models.MFilterState) ([]models.MScatterPoint, error) {
	return fetch(ctx, s, PathScatter, filter.Params(), DecodeScatter)
}

func (s *RESTSource) FetchHourly(ctx context.Context, category string) ([]models.MHourlyPoint, error) {
	if category == "" {
		return []models.MHourlyPoint{}, nil
	}
	return fetch(ctx, s, PathHourly+url.PathEscape(category), nil, DecodeHourly)
}
