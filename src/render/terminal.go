package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"live-dashboard/src/models"
	"live-dashboard/src/projection"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	minTableWidth     = 60
	defaultTableWidth = 80
)

// -----------------------------------------------------------------------------
// TableSink prints the recent-points table and a statistics line to a
// terminal. Other views are ignored.
// -----------------------------------------------------------------------------

type TableSink struct {
	Out   io.Writer
	Width int // zero means the terminal width

	mu sync.Mutex
}

func NewTableSink(out io.Writer) *TableSink {
	return &TableSink{Out: out}
}

// TerminalWidth returns the width of stdout, or a fallback when stdout is
// not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minTableWidth {
		return defaultTableWidth
	}
	return width
}

func (t *TableSink) width() int {
	if t.Width > 0 {
		return t.Width
	}
	return TerminalWidth()
}

// -----------------------------------------------------------------------------

func (t *TableSink) RenderSeries(series models.MSeries) {
	if series.View != models.ViewRecentTable {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.Out, FormatTable(series.Rows, t.width()))
}

func (t *TableSink) RenderStatistics(stats models.MStatistics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.Out, "points %d | mean %.2f | min %.2f | max %.2f | std %.2f | utilization %.1f%% | categories %d | updates %d\n",
		stats.Count, stats.Mean, stats.Min, stats.Max, stats.StdDev, stats.Utilization, stats.Categories, stats.Updates)
}

// -----------------------------------------------------------------------------
// Table layout
// -----------------------------------------------------------------------------

// FormatTable lays rows out in fixed columns, the description column taking
// what is left of width. Cells are measured by display width.
func FormatTable(rows []models.MDataPoint, width int) string {
	columns := []struct {
		title string
		width int
		left  bool
	}{
		{"time", 8, true},
		{"category", 14, true},
		{"value", 12, false},
		{"unit", 6, true},
		{"description", 0, true},
	}

	fixed := 0
	for _, c := range columns[:len(columns)-1] {
		fixed += c.width + 1
	}
	columns[len(columns)-1].width = width - fixed
	if columns[len(columns)-1].width < 8 {
		columns[len(columns)-1].width = 8
	}

	var b strings.Builder
	line := func(cells ...string) {
		for i, c := range columns {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(pad(cells[i], c.width, c.left))
		}
		b.WriteByte('\n')
	}

	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = c.title
	}
	line(titles...)
	b.WriteString(strings.Repeat("-", runewidth.StringWidth(strings.TrimRight(b.String(), "\n"))))
	b.WriteByte('\n')

	for _, r := range rows {
		line(
			r.Timestamp.Format(projection.TimeLabelLayout),
			r.Category,
			strconv.FormatFloat(r.Value, 'f', 2, 64),
			r.Unit,
			r.Description,
		)
	}
	return b.String()
}

// pad fits s into width display cells, truncating with "...".
func pad(s string, width int, left bool) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	fill := strings.Repeat(" ", width-runewidth.StringWidth(s))
	if left {
		return s + fill
	}
	return fill + s
}
