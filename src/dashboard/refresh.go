package dashboard

import (
	"context"
	"time"

	"live-dashboard/src/models"
	"live-dashboard/src/projection"
	"live-dashboard/src/utils"
)

// Refresh kinds. Each kind has its own sequence so completions of one kind
// never shadow another.
const (
	kindRecent       = "recent"
	kindCategories   = "categories"
	kindAggregates   = "aggregates"
	kindHourly       = "hourly"
	kindPrimary      = "time-series"
	kindDistribution = "distribution"
	kindMovingAvg    = "moving-average"
	kindScatter      = "scatter"
)

// refresh is the identity of one in-flight fetch.
type refresh struct {
	kind       string
	seq        uint64
	tick       uint64 // render tick when issued
	generation uint64 // filter generation when issued
	scoped     bool   // result depends on the filter
}

// apply runs on the loop with a completion that passed the guards.
type apply func(r refresh)

// -----------------------------------------------------------------------------
// start issues a fetch in its own goroutine and posts its completion back to
// the loop. Must be called on the loop.
// -----------------------------------------------------------------------------

func (d *Dashboard) start(kind string, scoped bool, fetch func(ctx context.Context) (apply, error)) {
	if d.Source == nil {
		return
	}

	d.issued[kind]++
	r := refresh{
		kind:       kind,
		seq:        d.issued[kind],
		tick:       d.renderTick,
		generation: d.generation,
		scoped:     scoped,
	}

	d.inflight++

	timeout := utils.Seconds(d.Config.Source.RequestTimeout, utils.DefaultRequestTimeoutSeconds*time.Second)
	parent := d.ctx

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		fn, err := fetch(ctx)
		d.post(func() { d.complete(r, fn, err) })
	}()
}

// complete drops completions that lost a race and applies the rest.
func (d *Dashboard) complete(r refresh, fn apply, err error) {
	d.inflight--

	if err != nil {
		if d.ctx.Err() != nil {
			return
		}
		d.Errors.Handle(err, "refresh "+r.kind)
		d.Notifier.Notify(models.LevelWarning, "Error loading "+r.kind+" data")
		return
	}

	if r.seq < d.applied[r.kind] {
		d.Logger.Debug("Dashboard: dropping %s #%d, #%d already applied", r.kind, r.seq, d.applied[r.kind])
		return
	}
	if r.scoped && r.generation != d.generation {
		d.Logger.Debug("Dashboard: dropping %s #%d from filter generation %d", r.kind, r.seq, r.generation)
		return
	}
	d.applied[r.kind] = r.seq
	fn(r)
}

// -----------------------------------------------------------------------------
// Refreshes
// -----------------------------------------------------------------------------

// loadInitial fills the cache and every view.
func (d *Dashboard) loadInitial() {
	d.refreshRecent()
	d.refreshCategories(true)
	d.refreshAggregates()
	d.refreshFiltered()
}

// refreshRecent replaces the cache content with the source's recent points.
func (d *Dashboard) refreshRecent() {
	d.start(kindRecent, false, func(ctx context.Context) (apply, error) {
		points, err := d.Source.FetchRecent(ctx)
		if err != nil {
			return nil, err
		}
		return func(refresh) {
			d.Cache.Initialize(points)
			d.updateStatistics()
		}, nil
	})
}

// refreshCategories reloads the category list. withHourly chains the hourly
// fetch for the first category.
func (d *Dashboard) refreshCategories(withHourly bool) {
	d.start(kindCategories, false, func(ctx context.Context) (apply, error) {
		categories, err := d.Source.FetchCategories(ctx)
		if err != nil {
			return nil, err
		}
		return func(refresh) {
			d.stateMu.Lock()
			d.categories = categories
			d.stateMu.Unlock()

			if withHourly && len(categories) > 0 {
				d.refreshHourly(categories[0])
			}
		}, nil
	})
}

// refreshAggregates replaces the pie and bar views with the backend's totals.
func (d *Dashboard) refreshAggregates() {
	filter := models.MFilterState{}.WithDefaults()
	d.start(kindAggregates, false, func(ctx context.Context) (apply, error) {
		totals, err := d.Source.FetchAggregated(ctx, filter)
		if err != nil {
			return nil, err
		}
		return func(r refresh) {
			d.renderRefreshed(r, projection.FromTotals(models.ViewPie, totals))
			d.renderRefreshed(r, projection.FromTotals(models.ViewBar, totals))
		}, nil
	})
}

func (d *Dashboard) refreshHourly(category string) {
	d.start(kindHourly, false, func(ctx context.Context) (apply, error) {
		records, err := d.Source.FetchHourly(ctx, category)
		if err != nil {
			return nil, err
		}
		return func(r refresh) {
			d.renderRefreshed(r, projection.Hourly(records))
		}, nil
	})
}

// refreshFiltered reloads every view that depends on the active filter.
func (d *Dashboard) refreshFiltered() {
	filter := d.Filter()

	d.start(kindPrimary, true, func(ctx context.Context) (apply, error) {
		points, err := d.Source.FetchTimeSeries(ctx, filter)
		if err != nil {
			return nil, err
		}
		return func(r refresh) {
			d.primary.Seed(filter, points)
			d.renderRefreshed(r, d.primary.Series())
		}, nil
	})

	d.start(kindDistribution, true, func(ctx context.Context) (apply, error) {
		totals, err := d.Source.FetchAggregated(ctx, filter)
		if err != nil {
			return nil, err
		}
		return func(r refresh) {
			d.renderRefreshed(r, projection.FromTotals(models.ViewDistribution, totals))
			d.renderRefreshed(r, projection.FromTotals(models.ViewComparison, totals))
		}, nil
	})

	d.start(kindMovingAvg, true, func(ctx context.Context) (apply, error) {
		records, err := d.Source.FetchMovingAverage(ctx, filter)
		if err != nil {
			return nil, err
		}
		return func(r refresh) {
			d.renderRefreshed(r, projection.MovingAverage(records))
		}, nil
	})

	d.start(kindScatter, true, func(ctx context.Context) (apply, error) {
		records, err := d.Source.FetchScatter(ctx, filter)
		if err != nil {
			return nil, err
		}
		return func(r refresh) {
			// Without backend records the cached points of the category stand in
			if len(records) == 0 {
				d.renderRefreshed(r, projection.ScatterFromSnapshot(d.Cache.FilteredBy(filter.Category)))
				return
			}
			d.renderRefreshed(r, projection.Scatter(records))
		}, nil
	})
}
