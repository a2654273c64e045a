package dashboard

import (
	"live-dashboard/src/data_source"
	"live-dashboard/src/models"
	"live-dashboard/src/utils"
)

// -----------------------------------------------------------------------------
// Push handling (interfaces.IPushHandler)
// -----------------------------------------------------------------------------

// OnFrame queues a push frame for the loop. Safe from any goroutine.
func (d *Dashboard) OnFrame(frame models.MPushFrame) {
	d.post(func() { d.handleFrame(frame) })
}

// OnConnectionChange queues a push connection change for the loop.
func (d *Dashboard) OnConnectionChange(status models.MConnectionStatus) {
	d.post(func() { d.handleConnection(status) })
}

func (d *Dashboard) handleFrame(frame models.MPushFrame) {
	switch frame.Topic {
	case models.TopicDataPoint:
		point, err := data_source.DecodeDataPoint(frame.Body)
		if err != nil {
			d.Errors.Handle(err, "push "+frame.Topic)
			return
		}
		d.Cache.IngestOne(point)
		d.countUpdate()

	case models.TopicDataPoints:
		points, err := data_source.DecodeDataPoints(frame.Body)
		if err != nil {
			d.Errors.Handle(err, "push "+frame.Topic)
			return
		}
		d.Cache.IngestBatch(points)
		d.updates += len(points)

	case models.TopicSystemStatus:
		d.Notifier.PublishSystem(frame.Body)

	case models.TopicNotifications:
		n, err := data_source.DecodeNotification(frame.Body)
		if err != nil {
			d.Errors.Handle(err, "push "+frame.Topic)
			return
		}
		d.Notifier.Notify(n.Level, n.Message)

	default:
		d.Logger.Debug("Dashboard: ignoring frame on %s", frame.Topic)
	}
}

// countUpdate bumps the update counter. Every N-th single update also
// refreshes the aggregates and the statistics.
func (d *Dashboard) countUpdate() {
	d.updates++

	every := d.Config.Refresh.AggregateEveryUpdates
	if every <= 0 {
		every = utils.DefaultAggregateEveryUpdates
	}
	if d.updates%every == 0 {
		d.refreshAggregates()
		d.updateStatistics()
	}
}

// handleConnection publishes the push state. A reconnect resyncs the cache
// because pushes sent while disconnected are lost.
func (d *Dashboard) handleConnection(status models.MConnectionStatus) {
	d.stateMu.Lock()
	previous := d.status
	d.status = status
	d.stateMu.Unlock()

	if status.Connected && !previous.Connected {
		if d.connectedBefore {
			d.Logger.Info("Dashboard: push channel back, resyncing")
			d.refreshRecent()
		}
		d.connectedBefore = true
	}

	d.Notifier.PublishStatus(status)
	for _, fn := range d.connObservers {
		fn(status)
	}
}

// -----------------------------------------------------------------------------
// User actions
// -----------------------------------------------------------------------------

// SetFilter validates f and queues the filter change. A change of the chart
// type alone re-renders the primary view without fetching.
func (d *Dashboard) SetFilter(f models.MFilterState) error {
	f = f.WithDefaults()
	if err := f.Validate(); err != nil {
		return err
	}
	d.post(func() { d.applyFilter(f) })
	return nil
}

func (d *Dashboard) applyFilter(f models.MFilterState) {
	current := d.Filter()
	if f == current {
		return
	}

	d.stateMu.Lock()
	d.filter = f
	d.stateMu.Unlock()

	chartOnly := current
	chartOnly.ChartType = f.ChartType
	if chartOnly == f {
		d.primary.SetChartType(f.ChartType)
		d.render(d.primary.Series())
		return
	}

	d.generation++
	d.Logger.Info("Dashboard: filter generation %d: %+v", d.generation, f)

	// The trend follows the category, straight from the cache
	snap := d.Cache.Snapshot()
	for _, p := range d.projections {
		if p.View == models.ViewTrend {
			d.renderFromCache(p.Project(snap, f))
		}
	}
	d.refreshFiltered()
}

// Refresh re-runs the initial load.
func (d *Dashboard) Refresh() {
	d.post(func() {
		d.Logger.Info("Dashboard: manual refresh")
		d.loadInitial()
		d.Notifier.Notify(models.LevelSuccess, "Dashboard refreshed")
	})
}

// Resync reloads the recent bulk set, e.g. after the viewer was away.
func (d *Dashboard) Resync() {
	d.post(func() {
		d.Logger.Info("Dashboard: resync")
		d.refreshRecent()
	})
}
