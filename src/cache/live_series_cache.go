package cache

import (
	"fmt"
	"sync"

	"live-dashboard/src/logger"
	"live-dashboard/src/models"
	"live-dashboard/src/utils"
)

// -----------------------------------------------------------------------------

// UpdateKind names the mutation behind a notification.
type UpdateKind int

const (
	KindInitialize UpdateKind = iota
	KindIngestOne
	KindIngestBatch
)

func (k UpdateKind) String() string {
	switch k {
	case KindInitialize:
		return "initialize"
	case KindIngestOne:
		return "ingest-one"
	case KindIngestBatch:
		return "ingest-batch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Update is delivered to every listener exactly once per mutation.
type Update struct {
	Kind     UpdateKind
	Added    []models.MDataPoint
	Snapshot Snapshot
}

// Listener reacts to a cache mutation. Listeners run synchronously on the
// mutating goroutine and must not mutate the cache themselves.
type Listener func(Update)

type subscription struct {
	id       uint64
	name     string
	listener Listener
}

// -----------------------------------------------------------------------------
// LiveSeriesCache holds the most recent data points in arrival order and fans
// every mutation out to its subscribers.
// -----------------------------------------------------------------------------

type LiveSeriesCache struct {
	mu       sync.RWMutex
	notifyMu sync.Mutex // serializes mutate+notify cycles

	ring          *utils.RingBuffer
	subscriptions []subscription
	nextID        uint64

	sequence      uint64
	ingested      uint64
	evicted       uint64
	notifications uint64

	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewLiveSeriesCache(capacity int, l *logger.Logger) *LiveSeriesCache {
	return &LiveSeriesCache{
		ring:   utils.NewRingBuffer(capacity),
		Logger: l,
	}
}

// -----------------------------------------------------------------------------

// Capacity returns the fixed maximum number of points.
func (c *LiveSeriesCache) Capacity() int {
	return c.ring.Capacity()
}

// Len returns the current number of points.
func (c *LiveSeriesCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ring.Size()
}

// -----------------------------------------------------------------------------

// Subscribe registers a listener and returns a function removing it.
func (c *LiveSeriesCache) Subscribe(name string, listener Listener) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subscriptions = append(c.subscriptions, subscription{id: id, name: name, listener: listener})
	c.mu.Unlock()

	c.Logger.Debug("LiveSeriesCache: '%s' subscribed", name)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subscriptions {
			if s.id == id {
				c.subscriptions = append(c.subscriptions[:i:i], c.subscriptions[i+1:]...)
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Initialize replaces the contents with bulk, which is newest first. Only the
// leading capacity points are kept. Notifies once.
func (c *LiveSeriesCache) Initialize(bulk []models.MDataPoint) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.ring.Clear()
	kept := c.appendNewestFirst(bulk)
	update := c.commit(KindInitialize, kept, 0)
	c.mu.Unlock()

	c.notify(update)
}

// -----------------------------------------------------------------------------

// IngestOne prepends point, evicting the oldest arrival when full. Notifies once.
func (c *LiveSeriesCache) IngestOne(point models.MDataPoint) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	var evicted uint64
	if c.ring.Append(point) {
		evicted = 1
	}
	update := c.commit(KindIngestOne, []models.MDataPoint{point}, evicted)
	c.mu.Unlock()

	c.notify(update)
}

// -----------------------------------------------------------------------------

// IngestBatch prepends points keeping their relative order, so points[0] ends
// up at the front. The tail is truncated to capacity and subscribers see one
// notification. An empty batch is a no-op.
func (c *LiveSeriesCache) IngestBatch(points []models.MDataPoint) {
	if len(points) == 0 {
		return
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	before := c.ring.Size()
	kept := c.appendNewestFirst(points)
	// Everything that did not fit, held or incoming, was evicted
	evicted := uint64(before + len(points) - c.ring.Size())
	update := c.commit(KindIngestBatch, kept, evicted)
	c.mu.Unlock()

	c.notify(update)
}

// -----------------------------------------------------------------------------

// Snapshot returns an immutable copy of the contents, newest first.
func (c *LiveSeriesCache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return newSnapshot(c.ring.GetNewestFirst(), c.sequence)
}

// FilteredBy returns the points of category, newest first. An empty category
// returns the full snapshot.
func (c *LiveSeriesCache) FilteredBy(category string) Snapshot {
	return c.Snapshot().FilteredBy(category)
}

// -----------------------------------------------------------------------------

// Stats returns the operational counters.
func (c *LiveSeriesCache) Stats() models.MCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.MCacheStats{
		Capacity:      c.ring.Capacity(),
		Size:          c.ring.Size(),
		Ingested:      c.ingested,
		Evicted:       c.evicted,
		Notifications: c.notifications,
		Sequence:      c.sequence,
	}
}

// -----------------------------------------------------------------------------
// internals, c.mu held
// -----------------------------------------------------------------------------

// appendNewestFirst writes a newest-first sequence into the ring so that
// points[0] becomes the newest arrival. Points past capacity never enter.
func (c *LiveSeriesCache) appendNewestFirst(points []models.MDataPoint) []models.MDataPoint {
	n := len(points)
	if n > c.ring.Capacity() {
		n = c.ring.Capacity()
	}
	for i := n - 1; i >= 0; i-- {
		c.ring.Append(points[i])
	}

	kept := make([]models.MDataPoint, n)
	copy(kept, points[:n])
	return kept
}

func (c *LiveSeriesCache) commit(kind UpdateKind, added []models.MDataPoint, evicted uint64) Update {
	c.sequence++
	c.ingested += uint64(len(added))
	c.evicted += evicted
	c.notifications++

	return Update{
		Kind:     kind,
		Added:    added,
		Snapshot: newSnapshot(c.ring.GetNewestFirst(), c.sequence),
	}
}

// -----------------------------------------------------------------------------

func (c *LiveSeriesCache) notify(update Update) {
	c.mu.RLock()
	subs := make([]subscription, len(c.subscriptions))
	copy(subs, c.subscriptions)
	c.mu.RUnlock()

	c.Logger.Debug("LiveSeriesCache: %s #%d (+%d, size %d) -> %d subscribers",
		update.Kind, update.Snapshot.Sequence, len(update.Added), update.Snapshot.Len(), len(subs))

	for _, s := range subs {
		c.deliver(s, update)
	}
}

func (c *LiveSeriesCache) deliver(s subscription, update Update) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("LiveSeriesCache: subscriber '%s' panicked: %v", s.name, r)
		}
	}()
	s.listener(update)
}
