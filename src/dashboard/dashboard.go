// Package dashboard owns the live dashboard state. One loop goroutine runs
// every cache mutation, notification and refresh completion in order, so no
// two ingest/notify cycles ever overlap.
package dashboard

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"live-dashboard/src/cache"
	"live-dashboard/src/helpers"
	"live-dashboard/src/interfaces"
	"live-dashboard/src/logger"
	"live-dashboard/src/models"
	"live-dashboard/src/projection"
	"live-dashboard/src/utils"
)

const eventQueueSize = 256

var _ interfaces.IDashboard = (*Dashboard)(nil)
var _ interfaces.IPushHandler = (*Dashboard)(nil)

// -----------------------------------------------------------------------------
// Dashboard is the explicitly constructed context shared by the components
// that need cache or view access.
// -----------------------------------------------------------------------------

type Dashboard struct {
	Config   *models.MConfig
	Cache    *cache.LiveSeriesCache
	Source   interfaces.IPullSource
	Sink     interfaces.IRenderSink
	Notifier interfaces.INotifier
	Calendar *utils.RefreshCalendar
	Logger   *logger.Logger
	Errors   *helpers.ErrorHandler

	events chan func()
	done   chan struct{}
	ctx    context.Context
	wg     sync.WaitGroup

	// Loop-owned state
	projections     []projection.Named
	primary         *projection.PrimaryWindow
	generation      uint64
	renderTick      uint64
	lastCacheRender map[string]uint64
	issued          map[string]uint64
	applied         map[string]uint64
	inflight        int
	updates         int
	connObservers   []func(models.MConnectionStatus)
	connectedBefore bool

	// Published state, also read by HTTP handlers
	stateMu    sync.RWMutex
	filter     models.MFilterState
	views      map[string]models.MSeries
	statistics models.MStatistics
	categories []string
	status     models.MConnectionStatus
}

// -----------------------------------------------------------------------------

func NewDashboard(cfg *models.MConfig, c *cache.LiveSeriesCache, source interfaces.IPullSource,
	sink interfaces.IRenderSink, notifier interfaces.INotifier, calendar *utils.RefreshCalendar, log *logger.Logger) *Dashboard {

	if sink == nil {
		sink = nopSink{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if calendar == nil {
		calendar = utils.NewRefreshCalendar("", log)
	}

	d := &Dashboard{
		Config:          cfg,
		Cache:           c,
		Source:          source,
		Sink:            sink,
		Notifier:        notifier,
		Calendar:        calendar,
		Logger:          log,
		Errors:          helpers.NewErrorHandler(log),
		events:          make(chan func(), eventQueueSize),
		done:            make(chan struct{}),
		ctx:             context.Background(),
		projections:     projection.CacheDriven(cfg.Cache.TrendPoints, cfg.Cache.TableRows),
		primary:         projection.NewPrimaryWindow(cfg.Cache.TrendPoints),
		lastCacheRender: make(map[string]uint64),
		issued:          make(map[string]uint64),
		applied:         make(map[string]uint64),
		filter:          cfg.Filter.Initial.WithDefaults(),
		views:           make(map[string]models.MSeries),
		status:          models.MConnectionStatus{Text: "Disconnected"},
	}

	c.Subscribe("dashboard", d.onCacheUpdate)
	return d
}

// -----------------------------------------------------------------------------
// Event loop
// -----------------------------------------------------------------------------

// Run performs the initial load and then serves events and timers until ctx
// is cancelled. In-flight fetches are cancelled and awaited before returning.
func (d *Dashboard) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.ctx = ctx

	refresh := d.Config.Refresh
	aggregates := time.NewTicker(utils.Seconds(refresh.AggregatesSeconds, utils.DefaultAggregatesSeconds*time.Second))
	categories := time.NewTicker(utils.Seconds(refresh.CategoriesSeconds, utils.DefaultCategoriesSeconds*time.Second))
	statistics := time.NewTicker(utils.Seconds(refresh.StatisticsSeconds, utils.DefaultStatisticsSeconds*time.Second))
	defer aggregates.Stop()
	defer categories.Stop()
	defer statistics.Stop()

	d.Logger.Info("Dashboard: starting (cache capacity %d, filter %+v)", d.Cache.Capacity(), d.Filter())
	d.loadInitial()

	for {
		select {
		case <-ctx.Done():
			close(d.done)
			cancel()
			d.wg.Wait()
			d.Logger.Info("Dashboard: stopped")
			return nil

		case fn := <-d.events:
			fn()

		case now := <-aggregates.C:
			if d.Calendar.IsOpen(now) {
				d.refreshAggregates()
			}

		case now := <-categories.C:
			if d.Calendar.IsOpen(now) {
				d.refreshCategories(false)
			}

		case <-statistics.C:
			d.updateStatistics()
		}
	}
}

// post queues fn on the loop. It gives up silently once the loop has stopped.
func (d *Dashboard) post(fn func()) {
	select {
	case d.events <- fn:
	case <-d.done:
	}
}

// -----------------------------------------------------------------------------
// Read side
// -----------------------------------------------------------------------------

// Filter returns the active filter.
func (d *Dashboard) Filter() models.MFilterState {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.filter
}

// View returns the latest rendering of name.
func (d *Dashboard) View(name string) (models.MSeries, bool) {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	s, ok := d.views[name]
	return s, ok
}

// Views returns every rendered view ordered by name.
func (d *Dashboard) Views() []models.MSeries {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()

	out := make([]models.MSeries, 0, len(d.views))
	for _, s := range d.views {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].View < out[j].View })
	return out
}

// Statistics returns the latest statistics.
func (d *Dashboard) Statistics() models.MStatistics {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.statistics
}

// Categories returns the categories last fetched from the source. Until a
// fetch succeeds the categories present in the cache stand in.
func (d *Dashboard) Categories() []string {
	d.stateMu.RLock()
	fetched := append([]string(nil), d.categories...)
	d.stateMu.RUnlock()

	if len(fetched) == 0 {
		return d.Cache.Snapshot().Categories()
	}
	return fetched
}

// Status returns the push channel state.
func (d *Dashboard) Status() models.MConnectionStatus {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.status
}

// Points returns the cached points of category, newest first.
func (d *Dashboard) Points(category string) []models.MDataPoint {
	return d.Cache.FilteredBy(category).Points()
}

// CacheStats returns the cache counters.
func (d *Dashboard) CacheStats() models.MCacheStats {
	return d.Cache.Stats()
}

// WatchConnection registers fn for push connection changes. Call before Run.
func (d *Dashboard) WatchConnection(fn func(models.MConnectionStatus)) {
	d.connObservers = append(d.connObservers, fn)
}

// -----------------------------------------------------------------------------

type nopSink struct{}

func (nopSink) RenderSeries(models.MSeries)         {}
func (nopSink) RenderStatistics(models.MStatistics) {}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string)                   {}
func (nopNotifier) PublishStatus(models.MConnectionStatus) {}
func (nopNotifier) PublishSystem(json.RawMessage)          {}
