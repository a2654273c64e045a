package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"live-dashboard/src/helpers"
	"live-dashboard/src/logger"
	"live-dashboard/src/models"
)

const (
	recentLimit         = 100
	movingAverageWindow = 5
	hourlyLookback      = 24 * time.Hour
	columns             = "id, ts, category, value, label, unit, source, description"
)

// aggregateFuncs maps filter aggregations to SQL. Only these names are ever
// formatted into a query.
var aggregateFuncs = map[string]string{
	"sum":   "SUM(value)",
	"avg":   "AVG(value)",
	"count": "COUNT(*)",
	"min":   "MIN(value)",
	"max":   "MAX(value)",
}

// -----------------------------------------------------------------------------
// SQLSource answers the pull contract from a data_points table. It never
// writes dashboard state back.
// -----------------------------------------------------------------------------

type SQLSource struct {
	dialect dialect
	DB      *sql.DB
	Logger  *logger.Logger
	Now     func() time.Time
}

// -----------------------------------------------------------------------------

func newSQLSource(d dialect, dsn string, log *logger.Logger) (*SQLSource, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", d.name, err)
	}

	log.Info("SQLSource: connected to %s", d.name)
	return &SQLSource{dialect: d, DB: db, Logger: log, Now: time.Now}, nil
}

// -----------------------------------------------------------------------------

func (s *SQLSource) Name() string {
	return s.dialect.name
}

// CreateSchema creates the data_points table when missing. Used to prepare
// fixtures, the dashboard itself only reads.
func (s *SQLSource) CreateSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create data_points: %w", err)
		}
	}
	return nil
}

func (s *SQLSource) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// query collects WHERE clauses with dialect placeholders.
type query struct {
	d     dialect
	where []string
	args  []interface{}
}

func (q *query) add(clause string, arg interface{}) {
	q.args = append(q.args, arg)
	q.where = append(q.where, strings.Replace(clause, "?", q.d.placeholder(len(q.args)), 1))
}

func (q *query) clause() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func (s *SQLSource) filtered(filter models.MFilterState) *query {
	q := &query{d: s.dialect}
	q.add("ts >= ?", filter.Since(s.Now()).UnixMilli())
	if filter.Category != "" {
		q.add("category = ?", filter.Category)
	}
	return q
}

// -----------------------------------------------------------------------------

func (s *SQLSource) selectPoints(ctx context.Context, op, sqlText string, args ...interface{}) ([]models.MDataPoint, error) {
	rows, err := s.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, helpers.NewFetchError(op, err)
	}
	defer rows.Close()

	points := []models.MDataPoint{}
	for rows.Next() {
		var (
			p                                models.MDataPoint
			ts                               int64
			label, unit, source, description sql.NullString
		)
		if err := rows.Scan(&p.ID, &ts, &p.Category, &p.Value, &label, &unit, &source, &description); err != nil {
			s.Logger.Debug("SQLSource: skipping row in %s: %v", op, err)
			continue
		}
		p.Timestamp = models.NewTimestamp(time.UnixMilli(ts))
		p.Label, p.Unit, p.Source, p.Description = label.String, unit.String, source.String, description.String
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewFetchError(op, err)
	}
	return points, nil
}

// -----------------------------------------------------------------------------

func (s *SQLSource) FetchRecent(ctx context.Context) ([]models.MDataPoint, error) {
	return s.selectPoints(ctx, "recent",
		fmt.Sprintf("SELECT %s FROM data_points ORDER BY ts DESC, id DESC LIMIT %d", columns, recentLimit))
}

// -----------------------------------------------------------------------------

func (s *SQLSource) FetchCategories(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT DISTINCT category FROM data_points ORDER BY category")
	if err != nil {
		return nil, helpers.NewFetchError("categories", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err == nil && c != "" {
			out = append(out, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewFetchError("categories", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *SQLSource) FetchAggregated(ctx context.Context, filter models.MFilterState) ([]models.MCategoryTotal, error) {
	agg, ok := aggregateFuncs[filter.Aggregation]
	if !ok {
		agg = aggregateFuncs[models.DefaultAggregation]
	}

	q := s.filtered(filter)
	sqlText := fmt.Sprintf("SELECT category, %s FROM data_points%s GROUP BY category ORDER BY category", agg, q.clause())

	rows, err := s.DB.QueryContext(ctx, sqlText, q.args...)
	if err != nil {
		return nil, helpers.NewFetchError("aggregated", err)
	}
	defer rows.Close()

	out := []models.MCategoryTotal{}
	for rows.Next() {
		var (
			t     models.MCategoryTotal
			total sql.NullFloat64
		)
		if err := rows.Scan(&t.Category, &total); err != nil {
			continue
		}
		t.Total = total.Float64
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewFetchError("aggregated", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *SQLSource) FetchTimeSeries(ctx context.Context, filter models.MFilterState) ([]models.MDataPoint, error) {
	q := s.filtered(filter)
	return s.selectPoints(ctx, "time-series",
		fmt.Sprintf("SELECT %s FROM data_points%s ORDER BY ts ASC, id ASC", columns, q.clause()), q.args...)
}

// -----------------------------------------------------------------------------

// FetchMovingAverage averages each point with up to movingAverageWindow-1
// predecessors of the filtered time series.
func (s *SQLSource) FetchMovingAverage(ctx context.Context, filter models.MFilterState) ([]models.MMovingAveragePoint, error) {
	points, err := s.FetchTimeSeries(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]models.MMovingAveragePoint, len(points))
	sum := 0.0
	for i, p := range points {
		sum += p.Value
		if i >= movingAverageWindow {
			sum -= points[i-movingAverageWindow].Value
		}
		n := i + 1
		if n > movingAverageWindow {
			n = movingAverageWindow
		}
		out[i] = models.MMovingAveragePoint{Timestamp: p.Timestamp, MovingAverage: sum / float64(n)}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *SQLSource) FetchScatter(ctx context.Context, filter models.MFilterState) ([]models.MScatterPoint, error) {
	points, err := s.FetchTimeSeries(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]models.MScatterPoint, len(points))
	for i, p := range points {
		out[i] = models.MScatterPoint{Hour: float64(p.Timestamp.Hour()), Value: p.Value}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// FetchHourly averages the last 24 hours of category per clock hour.
func (s *SQLSource) FetchHourly(ctx context.Context, category string) ([]models.MHourlyPoint, error) {
	if category == "" {
		return []models.MHourlyPoint{}, nil
	}

	q := &query{d: s.dialect}
	q.add("ts >= ?", s.Now().Add(-hourlyLookback).UnixMilli())
	q.add("category = ?", category)
	points, err := s.selectPoints(ctx, "hourly",
		fmt.Sprintf("SELECT %s FROM data_points%s ORDER BY ts ASC", columns, q.clause()), q.args...)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for _, p := range points {
		hour := p.Timestamp.Truncate(time.Hour)
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{}
			buckets[hour] = b
		}
		b.sum += p.Value
		b.count++
	}

	out := make([]models.MHourlyPoint, 0, len(buckets))
	for hour, b := range buckets {
		out = append(out, models.MHourlyPoint{Hour: models.NewTimestamp(hour), Average: b.sum / float64(b.count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour.Time) })
	return out, nil
}
