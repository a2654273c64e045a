package utils

import (
	"strings"
	"sync"
	"time"

	"live-dashboard/src/logger"

	"github.com/scmhub/calendar"
)

// RefreshCalendar decides whether periodic pull refreshes should run. It maps a
// MIC code (ISO 10383, e.g. "xnys") to a scmhub/calendar business calendar.
// Without a calendar every minute counts as open.
type RefreshCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Timezone *time.Location
	Logger   *logger.Logger
	mu       sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewRefreshCalendar(mic string, l *logger.Logger) *RefreshCalendar {
	rc := &RefreshCalendar{Logger: l}
	rc.SetMIC(mic)
	return rc
}

// -----------------------------------------------------------------------------

// SetMIC swaps the calendar. Unknown codes log a warning and leave the
// calendar always open.
func (rc *RefreshCalendar) SetMIC(mic string) {
	mic = strings.ToLower(strings.TrimSpace(mic))

	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.MIC = mic
	rc.Calendar = nil
	rc.Timezone = time.UTC

	if mic == "" {
		return
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		rc.Logger.Warning("RefreshCalendar: unknown MIC '%s', refreshing around the clock.", mic)
		return
	}

	rc.Calendar = cal
	if cal.Loc != nil {
		rc.Timezone = cal.Loc
	}
	rc.Logger.Info("RefreshCalendar: periodic refreshes follow the %s calendar.", mic)
}

// -----------------------------------------------------------------------------

// IsOpen checks whether periodic refreshes should run at t.
func (rc *RefreshCalendar) IsOpen(t time.Time) bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if rc.Calendar == nil {
		return true
	}
	return rc.Calendar.IsOpen(t.In(rc.Timezone))
}

// -----------------------------------------------------------------------------

// IsBusinessDay checks the calendar's business days; always true without one.
func (rc *RefreshCalendar) IsBusinessDay(t time.Time) bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if rc.Calendar == nil {
		return true
	}
	return rc.Calendar.IsBusinessDay(t.In(rc.Timezone))
}
