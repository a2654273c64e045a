package models

import (
	"bytes"
	"math"
	"strconv"
	"time"
)

// MDataPoint is one timestamped, categorized numeric observation.
type MDataPoint struct {
	ID          int64      `json:"id"`
	Timestamp   MTimestamp `json:"timestamp"`
	Category    string     `json:"category"`
	Value       float64    `json:"value"`
	Label       string     `json:"label,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Source      string     `json:"source,omitempty"`
	Description string     `json:"description,omitempty"`
}

// -----------------------------------------------------------------------------
// MTimestamp
// -----------------------------------------------------------------------------

// MTimestamp decodes every timestamp shape the backend emits. Unknown shapes
// decode to the zero time instead of failing the whole payload.
type MTimestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// NewTimestamp wraps t in UTC.
func NewTimestamp(t time.Time) MTimestamp {
	return MTimestamp{Time: t.UTC()}
}

// ParseTimestamp parses s with the known layouts. Zone-less layouts are UTC.
func ParseTimestamp(s string) (MTimestamp, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(t), true
		}
	}
	return MTimestamp{}, false
}

// UnmarshalJSON never returns an error: malformed input yields the zero time.
func (t *MTimestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = MTimestamp{}
		return nil
	}

	if data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			*t = MTimestamp{}
			return nil
		}
		parsed, _ := ParseTimestamp(s)
		*t = parsed
		return nil
	}

	// Epoch milliseconds
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(ms) || ms < minEpochMillis || ms >= maxEpochMillis {
		*t = MTimestamp{}
		return nil
	}
	*t = NewTimestamp(time.UnixMilli(int64(ms)))
	return nil
}

// Epoch milliseconds outside the int64 range decode to the zero time.
const (
	minEpochMillis = -(1 << 63)
	maxEpochMillis = 1 << 63
)

// MarshalJSON writes RFC3339 with sub-second precision in UTC, or null for
// the zero time.
func (t MTimestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}
