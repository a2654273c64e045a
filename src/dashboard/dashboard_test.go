package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"live-dashboard/src/cache"
	"live-dashboard/src/config"
	"live-dashboard/src/logger"
	"live-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call runs fn on the loop and waits for it.
func (d *Dashboard) call(fn func()) {
	finished := make(chan struct{})
	d.post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
	case <-d.done:
	}
}

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int

	recent     []models.MDataPoint
	categories []string
	totals     []models.MCategoryTotal
	failing    map[string]error

	// Optional overrides, n counts calls of that method from 1
	aggregated func(ctx context.Context, n int, f models.MFilterState) ([]models.MCategoryTotal, error)
	timeSeries func(ctx context.Context, f models.MFilterState) ([]models.MDataPoint, error)
	noScatter  bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: make(map[string]int),
		recent: []models.MDataPoint{
			point(3, "b", 30),
			point(2, "a", 20),
			point(1, "a", 10),
		},
		categories: []string{"a", "b"},
		totals:     []models.MCategoryTotal{{Category: "a", Total: 30}, {Category: "b", Total: 30}},
		failing:    make(map[string]error),
	}
}

func (s *fakeSource) called(method string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.calls[method], s.failing[method]
}

func (s *fakeSource) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *fakeSource) fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[method] = err
}

func (s *fakeSource) setAggregated(fn func(ctx context.Context, n int, f models.MFilterState) ([]models.MCategoryTotal, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregated = fn
}

func (s *fakeSource) setTimeSeries(fn func(ctx context.Context, f models.MFilterState) ([]models.MDataPoint, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeSeries = fn
}

func (s *fakeSource) Name() string { return "fake" }
func (s *fakeSource) Close() error { return nil }

func (s *fakeSource) FetchRecent(ctx context.Context) ([]models.MDataPoint, error) {
	_, err := s.called("recent")
	return s.recent, err
}

func (s *fakeSource) FetchCategories(ctx context.Context) ([]string, error) {
	_, err := s.called("categories")
	return s.categories, err
}

func (s *fakeSource) FetchAggregated(ctx context.Context, f models.MFilterState) ([]models.MCategoryTotal, error) {
	n, err := s.called("aggregated")
	s.mu.Lock()
	hook := s.aggregated
	s.mu.Unlock()
	if hook != nil {
		return hook(ctx, n, f)
	}
	return s.totals, err
}

func (s *fakeSource) FetchTimeSeries(ctx context.Context, f models.MFilterState) ([]models.MDataPoint, error) {
	_, err := s.called("time-series")
	s.mu.Lock()
	hook := s.timeSeries
	s.mu.Unlock()
	if hook != nil {
		return hook(ctx, f)
	}
	return []models.MDataPoint{point(1, "a", 10), point(2, "a", 20)}, err
}

func (s *fakeSource) FetchMovingAverage(ctx context.Context, f models.MFilterState) ([]models.MMovingAveragePoint, error) {
	_, err := s.called("moving-average")
	return []models.MMovingAveragePoint{{Timestamp: models.NewTimestamp(base), MovingAverage: 15}}, err
}

func (s *fakeSource) FetchScatter(ctx context.Context, f models.MFilterState) ([]models.MScatterPoint, error) {
	_, err := s.called("scatter")
	if s.noScatter {
		return nil, err
	}
	return []models.MScatterPoint{{Hour: 9, Value: 10}}, err
}

func (s *fakeSource) FetchHourly(ctx context.Context, category string) ([]models.MHourlyPoint, error) {
	_, err := s.called("hourly:" + category)
	return []models.MHourlyPoint{{Hour: models.NewTimestamp(base), Average: 12}}, err
}

// -----------------------------------------------------------------------------

type recordingSink struct {
	mu     sync.Mutex
	series []models.MSeries
	stats  []models.MStatistics
}

func (s *recordingSink) RenderSeries(series models.MSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = append(s.series, series)
}

func (s *recordingSink) RenderStatistics(stats models.MStatistics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = append(s.stats, stats)
}

func (s *recordingSink) renders(view string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, series := range s.series {
		if series.View == view {
			n++
		}
	}
	return n
}

func (s *recordingSink) statistics() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stats)
}

type recordingNotifier struct {
	mu       sync.Mutex
	notes    []models.MNotification
	statuses []models.MConnectionStatus
	systems  []json.RawMessage
}

func (n *recordingNotifier) Notify(level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, models.MNotification{Level: level, Message: message})
}

func (n *recordingNotifier) PublishStatus(status models.MConnectionStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

func (n *recordingNotifier) PublishSystem(body json.RawMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.systems = append(n.systems, body)
}

func (n *recordingNotifier) has(level, message string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, note := range n.notes {
		if note.Level == level && note.Message == message {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Harness
// -----------------------------------------------------------------------------

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func point(id int64, category string, value float64) models.MDataPoint {
	return models.MDataPoint{
		ID:        id,
		Timestamp: models.NewTimestamp(base.Add(time.Duration(id) * time.Minute)),
		Category:  category,
		Value:     value,
	}
}

func frame(t *testing.T, topic string, body interface{}) models.MPushFrame {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return models.MPushFrame{Topic: topic, Body: raw}
}

var allViews = []string{
	models.ViewTrend, models.ViewPie, models.ViewBar, models.ViewRecentTable,
	models.ViewPrimary, models.ViewDistribution, models.ViewComparison,
	models.ViewMovingAvg, models.ViewScatter, models.ViewHourly, models.ViewGauge,
}

type harness struct {
	d        *Dashboard
	src      *fakeSource
	sink     *recordingSink
	notifier *recordingNotifier
}

func start(t *testing.T, src *fakeSource, tweak func(cfg *models.MConfig)) *harness {
	t.Helper()
	cfg := config.Default().MConfig
	cfg.Cache.Capacity = 10
	if tweak != nil {
		tweak(cfg)
	}

	log := logger.NewLogger("ERROR", "test")
	h := &harness{src: src, sink: &recordingSink{}, notifier: &recordingNotifier{}}
	h.d = NewDashboard(cfg, cache.NewLiveSeriesCache(cfg.Cache.Capacity, log), src, h.sink, h.notifier, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

// settle waits until the initial load rendered every view.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, view := range allViews {
			if _, ok := h.d.View(view); !ok {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
	h.quiesce(t)
}

// quiesce waits until no fetch is in flight.
func (h *harness) quiesce(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		var inflight int
		h.d.call(func() { inflight = h.d.inflight })
		return inflight == 0
	}, 2*time.Second, 5*time.Millisecond)
}

// waitApplied waits until refresh seq of kind was applied.
func (h *harness) waitApplied(t *testing.T, kind string, seq uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		var applied uint64
		h.d.call(func() { applied = h.d.applied[kind] })
		return applied >= seq
	}, 2*time.Second, 5*time.Millisecond)
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestInitialLoadRendersEveryView(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)

	assert.Equal(t, 3, h.d.Cache.Len())
	assert.Equal(t, []string{"a", "b"}, h.d.Categories())
	assert.Equal(t, 1, h.src.count("hourly:a"))

	stats := h.d.Statistics()
	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 20, stats.Mean, 1e-9)
	assert.Equal(t, 2, stats.Categories)

	trend, _ := h.d.View(models.ViewTrend)
	assert.Equal(t, []float64{10, 20, 30}, trend.Values)

	primary, _ := h.d.View(models.ViewPrimary)
	assert.Equal(t, models.DefaultChartType, primary.ChartType)
	assert.Equal(t, []float64{10, 20}, primary.Values)
}

func TestSinglePushRendersEachCacheViewOnce(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)

	before := map[string]int{}
	for _, view := range allViews {
		before[view] = h.sink.renders(view)
	}

	h.d.OnFrame(frame(t, models.TopicDataPoint, point(4, "a", 40)))
	h.d.call(func() {})

	for _, view := range []string{models.ViewTrend, models.ViewPie, models.ViewBar, models.ViewRecentTable, models.ViewPrimary} {
		assert.Equal(t, before[view]+1, h.sink.renders(view), view)
	}
	assert.Equal(t, before[models.ViewScatter], h.sink.renders(models.ViewScatter))
	assert.Equal(t, 4, h.d.Cache.Len())

	recent, _ := h.d.View(models.ViewRecentTable)
	require.NotEmpty(t, recent.Rows)
	assert.Equal(t, int64(4), recent.Rows[0].ID)

	primary, _ := h.d.View(models.ViewPrimary)
	assert.Equal(t, []float64{10, 20, 40}, primary.Values)
}

func TestBatchPushNotifiesOnceAndKeepsOrder(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)
	trendBefore := h.sink.renders(models.ViewTrend)

	batch := []models.MDataPoint{point(6, "a", 60), point(5, "a", 50)}
	h.d.OnFrame(frame(t, models.TopicDataPoints, batch))
	h.d.call(func() {})

	assert.Equal(t, trendBefore+1, h.sink.renders(models.ViewTrend))
	snap := h.d.Cache.Snapshot()
	assert.Equal(t, int64(6), snap.At(0).ID)
	assert.Equal(t, int64(5), snap.At(1).ID)

	primary, _ := h.d.View(models.ViewPrimary)
	assert.Equal(t, []float64{10, 20, 50, 60}, primary.Values)

	var updates int
	h.d.call(func() { updates = h.d.updates })
	assert.Equal(t, 2, updates)
}

func TestEveryNthUpdateRefreshesAggregatesAndStatistics(t *testing.T) {
	h := start(t, newFakeSource(), func(cfg *models.MConfig) {
		cfg.Refresh.AggregateEveryUpdates = 3
	})
	h.settle(t)

	aggregated := h.src.count("aggregated")
	stats := h.sink.statistics()

	for i := int64(0); i < 2; i++ {
		h.d.OnFrame(frame(t, models.TopicDataPoint, point(10+i, "a", 1)))
	}
	h.d.call(func() {})
	assert.Equal(t, aggregated, h.src.count("aggregated"))
	assert.Equal(t, stats, h.sink.statistics())

	h.d.OnFrame(frame(t, models.TopicDataPoint, point(12, "a", 1)))
	h.d.call(func() {})
	assert.Equal(t, stats+1, h.sink.statistics())
	assert.Eventually(t, func() bool { return h.src.count("aggregated") == aggregated+1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, h.d.Statistics().Updates)
}

func TestMalformedPushIsSkipped(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)
	trend := h.sink.renders(models.ViewTrend)

	h.d.OnFrame(models.MPushFrame{Topic: models.TopicDataPoint, Body: json.RawMessage(`[1,2]`)})
	h.d.OnFrame(models.MPushFrame{Topic: models.TopicDataPoints, Body: json.RawMessage(`{"id":1}`)})
	h.d.OnFrame(models.MPushFrame{Topic: models.TopicDataPoint, Body: json.RawMessage(`null`)})
	h.d.OnFrame(models.MPushFrame{Topic: models.TopicDataPoint, Body: json.RawMessage(`{}`)})
	h.d.OnFrame(models.MPushFrame{Topic: models.TopicDataPoint, Body: json.RawMessage(`{"unexpected":true}`)})
	h.d.OnFrame(models.MPushFrame{Topic: models.TopicDataPoints, Body: json.RawMessage(`[null,{},42]`)})
	h.d.call(func() {})

	assert.Equal(t, 3, h.d.Cache.Len())
	assert.Equal(t, trend, h.sink.renders(models.ViewTrend))
	for _, p := range h.d.Points("") {
		assert.NotZero(t, p.ID)
	}
	var updates int
	h.d.call(func() { updates = h.d.updates })
	assert.Zero(t, updates)
}

// -----------------------------------------------------------------------------
// Stale completion guard
// -----------------------------------------------------------------------------

func TestAggregateRefreshReplacesCacheAggregate(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)
	h.src.setAggregated(func(ctx context.Context, n int, f models.MFilterState) ([]models.MCategoryTotal, error) {
		return []models.MCategoryTotal{{Category: "backend", Total: 99}}, nil
	})

	var seq uint64
	h.d.call(func() {
		h.d.refreshAggregates()
		seq = h.d.issued[kindAggregates]
	})
	h.waitApplied(t, kindAggregates, seq)

	pie, _ := h.d.View(models.ViewPie)
	assert.Equal(t, []string{"backend"}, pie.Labels)
	assert.Equal(t, []float64{99}, pie.Values)
}

func TestAggregateRefreshOlderThanCacheRenderIsDropped(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.src.setAggregated(func(ctx context.Context, n int, f models.MFilterState) ([]models.MCategoryTotal, error) {
		close(entered)
		<-release
		return []models.MCategoryTotal{{Category: "stale", Total: 1}}, nil
	})

	var seq uint64
	h.d.call(func() {
		h.d.refreshAggregates()
		seq = h.d.issued[kindAggregates]
	})
	<-entered

	h.d.OnFrame(frame(t, models.TopicDataPoint, point(4, "a", 40)))
	h.d.call(func() {})
	close(release)
	h.waitApplied(t, kindAggregates, seq)

	pie, _ := h.d.View(models.ViewPie)
	assert.Equal(t, []string{"a", "b"}, pie.Labels)
	assert.Equal(t, []float64{70, 30}, pie.Values)
}

func TestOutOfOrderCompletionIsDropped(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)
	calls := h.src.count("aggregated")

	release := make(chan struct{})
	h.src.setAggregated(func(ctx context.Context, n int, f models.MFilterState) ([]models.MCategoryTotal, error) {
		if n == calls+1 {
			<-release
			return []models.MCategoryTotal{{Category: "first", Total: 1}}, nil
		}
		return []models.MCategoryTotal{{Category: "second", Total: 2}}, nil
	})

	h.d.call(h.d.refreshAggregates)
	require.Eventually(t, func() bool { return h.src.count("aggregated") == calls+1 }, time.Second, 5*time.Millisecond)
	h.d.call(h.d.refreshAggregates)
	h.waitApplied(t, kindAggregates, 3)

	// The first completion arrives after the second was applied
	close(release)
	h.quiesce(t)

	pie, _ := h.d.View(models.ViewPie)
	assert.Equal(t, []string{"second"}, pie.Labels)
}

// -----------------------------------------------------------------------------
// Filter changes
// -----------------------------------------------------------------------------

func TestFilterChangeDropsOlderGeneration(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)
	cacheLen := h.d.Cache.Len()

	entered := make(chan struct{})
	release := make(chan struct{})
	h.src.setTimeSeries(func(ctx context.Context, f models.MFilterState) ([]models.MDataPoint, error) {
		if f.Category == "a" {
			close(entered)
			<-release
			return []models.MDataPoint{point(1, "a", 111)}, nil
		}
		return []models.MDataPoint{point(3, "b", 30)}, nil
	})

	require.NoError(t, h.d.SetFilter(models.MFilterState{Category: "a"}))
	<-entered
	require.NoError(t, h.d.SetFilter(models.MFilterState{Category: "b"}))

	require.Eventually(t, func() bool {
		primary, _ := h.d.View(models.ViewPrimary)
		return len(primary.Values) == 1 && primary.Values[0] == 30
	}, time.Second, 5*time.Millisecond)

	close(release)
	h.quiesce(t)

	primary, _ := h.d.View(models.ViewPrimary)
	assert.Equal(t, []float64{30}, primary.Values)
	assert.Equal(t, cacheLen, h.d.Cache.Len())
	assert.Equal(t, "b", h.d.Filter().Category)

	trend, _ := h.d.View(models.ViewTrend)
	assert.Equal(t, []float64{30}, trend.Values)

	var generation uint64
	h.d.call(func() { generation = h.d.generation })
	assert.Equal(t, uint64(2), generation)
}

func TestScatterFallsBackToCachedPoints(t *testing.T) {
	src := newFakeSource()
	src.noScatter = true
	h := start(t, src, nil)
	h.settle(t)
	require.Equal(t, 3, h.d.Cache.Len())

	h.d.Refresh()
	require.Eventually(t, func() bool {
		scatter, _ := h.d.View(models.ViewScatter)
		return len(scatter.Points) == 3
	}, 2*time.Second, 5*time.Millisecond)
	scatter, _ := h.d.View(models.ViewScatter)
	assert.Equal(t, models.MXYPoint{X: float64(base.Hour()), Y: 30}, scatter.Points[0])
}

func TestChartTypeChangeDoesNotRefetch(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)
	fetches := h.src.count("time-series")

	require.NoError(t, h.d.SetFilter(models.MFilterState{ChartType: "bar"}))
	h.d.call(func() {})

	primary, _ := h.d.View(models.ViewPrimary)
	assert.Equal(t, "bar", primary.ChartType)
	assert.Equal(t, fetches, h.src.count("time-series"))
}

func TestSetFilterRejectsInvalidValues(t *testing.T) {
	h := start(t, newFakeSource(), nil)

	assert.Error(t, h.d.SetFilter(models.MFilterState{Aggregation: "median"}))
	assert.Error(t, h.d.SetFilter(models.MFilterState{TimeRange: "yesterday"}))
	assert.Error(t, h.d.SetFilter(models.MFilterState{ChartType: "pie"}))
}

// -----------------------------------------------------------------------------
// Errors, notifications and connection state
// -----------------------------------------------------------------------------

func TestFetchFailureNotifiesWithoutRetrying(t *testing.T) {
	src := newFakeSource()
	src.fail("categories", errors.New("boom"))
	h := start(t, src, nil)

	require.Eventually(t, func() bool {
		return h.notifier.has(models.LevelWarning, "Error loading categories data")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, src.count("categories"))

	// The cached points stand in for the failed category list
	require.Eventually(t, func() bool { return h.d.Cache.Len() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"b", "a"}, h.d.Categories())
}

func TestRefreshReloadsEverything(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)

	h.d.Refresh()
	require.Eventually(t, func() bool {
		return h.src.count("recent") == 2 && h.src.count("scatter") == 2 && h.src.count("hourly:a") == 2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, h.notifier.has(models.LevelSuccess, "Dashboard refreshed"))

	h.d.Resync()
	require.Eventually(t, func() bool { return h.src.count("recent") == 3 }, time.Second, 5*time.Millisecond)
}

func TestPushNotificationsAndStatus(t *testing.T) {
	h := start(t, newFakeSource(), nil)

	var observed []models.MConnectionStatus
	var mu sync.Mutex
	h.d.call(func() {
		h.d.WatchConnection(func(s models.MConnectionStatus) {
			mu.Lock()
			defer mu.Unlock()
			observed = append(observed, s)
		})
	})

	h.d.OnConnectionChange(models.MConnectionStatus{Connected: true, Text: "Connected", Attempts: 1})
	h.d.OnFrame(models.MPushFrame{Topic: models.TopicNotifications, Body: json.RawMessage(`"disk almost full"`)})
	h.d.OnFrame(models.MPushFrame{Topic: models.TopicSystemStatus, Body: json.RawMessage(`{"cpu":12}`)})
	h.d.call(func() {})

	assert.True(t, h.d.Status().Connected)
	assert.True(t, h.notifier.has(models.LevelInfo, "disk almost full"))

	h.notifier.mu.Lock()
	assert.Len(t, h.notifier.statuses, 1)
	require.Len(t, h.notifier.systems, 1)
	assert.JSONEq(t, `{"cpu":12}`, string(h.notifier.systems[0]))
	h.notifier.mu.Unlock()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, observed, 1)
	assert.True(t, observed[0].Connected)
}

func TestPushReconnectResyncsCache(t *testing.T) {
	h := start(t, newFakeSource(), nil)
	h.settle(t)
	require.Equal(t, 1, h.src.count("recent"))

	// First connection follows the initial load, nothing to catch up on
	h.d.OnConnectionChange(models.MConnectionStatus{Connected: true, Text: "Connected", Attempts: 1})
	h.d.call(func() {})
	assert.Equal(t, 1, h.src.count("recent"))

	h.d.OnConnectionChange(models.MConnectionStatus{Connected: false, Text: "Disconnected", Attempts: 1})
	h.d.OnConnectionChange(models.MConnectionStatus{Connected: false, Text: "Disconnected", Attempts: 2})
	h.d.call(func() {})
	assert.Equal(t, 1, h.src.count("recent"))

	h.d.OnConnectionChange(models.MConnectionStatus{Connected: true, Text: "Connected", Attempts: 3})
	require.Eventually(t, func() bool { return h.src.count("recent") == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, h.d.Status().Attempts)
}
