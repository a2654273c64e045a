package dashboard

import (
	"time"

	"live-dashboard/src/analysis/core"
	"live-dashboard/src/cache"
	"live-dashboard/src/models"
	"live-dashboard/src/projection"
)

// -----------------------------------------------------------------------------
// Rendering
// -----------------------------------------------------------------------------

// render stamps series with the next render tick, publishes it and hands it to
// the sink.
func (d *Dashboard) render(series models.MSeries) {
	d.renderTick++
	series.Version = d.renderTick

	d.stateMu.Lock()
	d.views[series.View] = series
	d.stateMu.Unlock()

	d.Sink.RenderSeries(series)
}

// renderFromCache renders a cache-derived view and records when it happened.
func (d *Dashboard) renderFromCache(series models.MSeries) {
	d.render(series)
	d.lastCacheRender[series.View] = d.renderTick
}

// renderRefreshed renders a backend result unless the view was re-rendered
// from the cache after the refresh was issued.
func (d *Dashboard) renderRefreshed(r refresh, series models.MSeries) {
	if last := d.lastCacheRender[series.View]; last > r.tick {
		d.Logger.Debug("Dashboard: %s #%d is older than the cache rendering of %s", r.kind, r.seq, series.View)
		return
	}
	d.render(series)
}

// -----------------------------------------------------------------------------
// onCacheUpdate is the dashboard's cache subscription. It runs on the loop
// because every cache mutation is made there.
// -----------------------------------------------------------------------------

func (d *Dashboard) onCacheUpdate(u cache.Update) {
	filter := d.Filter()
	for _, p := range d.projections {
		d.renderFromCache(p.Project(u.Snapshot, filter))
	}

	if u.Kind == cache.KindInitialize {
		return
	}
	if d.primary.Append(chronological(u.Added)) {
		d.render(d.primary.Series())
	}
}

// chronological reverses a newest-first slice into a new one.
func chronological(newestFirst []models.MDataPoint) []models.MDataPoint {
	out := make([]models.MDataPoint, len(newestFirst))
	for i, p := range newestFirst {
		out[len(newestFirst)-1-i] = p
	}
	return out
}

// -----------------------------------------------------------------------------
// Statistics
// -----------------------------------------------------------------------------

// updateStatistics recomputes the summary and the gauge from the cache. An
// empty cache leaves the previous statistics in place.
func (d *Dashboard) updateStatistics() {
	snap := d.Cache.Snapshot()
	stats, ok := core.StatisticsOf(snap.Points())
	if !ok {
		return
	}

	d.stateMu.Lock()
	if len(d.categories) > 0 {
		stats.Categories = len(d.categories)
	}
	stats.Updates = d.updates
	stats.ComputedAt = time.Now()
	d.statistics = stats
	d.stateMu.Unlock()

	d.Sink.RenderStatistics(stats)
	d.render(projection.Gauge(snap))
}
