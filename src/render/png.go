package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"live-dashboard/src/logger"
	"live-dashboard/src/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const maxAxisTicks = 10

var errNothingToDraw = errors.New("nothing to draw")

// -----------------------------------------------------------------------------
// PNGSink keeps the latest rendering of every view and writes them as PNG
// charts on Export.
// -----------------------------------------------------------------------------

type PNGSink struct {
	Dir    string
	Width  int
	Height int
	Logger *logger.Logger
	Now    func() time.Time

	mu     sync.Mutex
	latest map[string]models.MSeries
}

func NewPNGSink(cfg models.MExportConfig, log *logger.Logger) *PNGSink {
	return &PNGSink{
		Dir:    cfg.Dir,
		Width:  cfg.Width,
		Height: cfg.Height,
		Logger: log,
		Now:    time.Now,
		latest: make(map[string]models.MSeries),
	}
}

func (p *PNGSink) RenderSeries(series models.MSeries) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest[series.View] = series
}

func (p *PNGSink) RenderStatistics(models.MStatistics) {}

// -----------------------------------------------------------------------------

// FileName is the export name of view on day.
func FileName(view string, day time.Time) string {
	return fmt.Sprintf("%s-chart-%s.png", view, day.Format("2006-01-02"))
}

// Export writes one PNG per chartable view and returns the written paths in
// view order. Views without data are skipped. A view that fails to draw is
// skipped too and reported in the joined error.
func (p *PNGSink) Export() ([]string, error) {
	p.mu.Lock()
	views := make([]models.MSeries, 0, len(p.latest))
	for _, s := range p.latest {
		views = append(views, s)
	}
	p.mu.Unlock()
	sort.Slice(views, func(i, j int) bool { return views[i].View < views[j].View })

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	day := p.Now()
	var written []string
	var failed []error
	for _, series := range views {
		if series.View == models.ViewRecentTable {
			continue
		}

		path := filepath.Join(p.Dir, FileName(series.View, day))
		err := p.writeFile(path, series)
		if errors.Is(err, errNothingToDraw) {
			p.Logger.Debug("PNG export: %s has no data, skipped", series.View)
			continue
		}
		if err != nil {
			p.Logger.Warning("PNG export: %s skipped: %v", series.View, err)
			failed = append(failed, fmt.Errorf("exporting %s: %w", series.View, err))
			continue
		}
		written = append(written, path)
	}

	p.Logger.Info("PNG export: %d charts written to %s", len(written), p.Dir)
	return written, errors.Join(failed...)
}

func (p *PNGSink) writeFile(path string, series models.MSeries) error {
	if series.Len() == 0 {
		return errNothingToDraw
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Chart(f, series, p.Width, p.Height); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// -----------------------------------------------------------------------------
// Chart drawing
// -----------------------------------------------------------------------------

// Chart draws series as a PNG in the shape its view calls for.
func Chart(w io.Writer, series models.MSeries, width, height int) error {
	switch series.View {
	case models.ViewPie, models.ViewDistribution, models.ViewGauge:
		return pieChart(w, series, width, height)
	case models.ViewBar, models.ViewComparison:
		return barChart(w, series, width, height)
	case models.ViewScatter:
		return scatterChart(w, series, width, height)
	default:
		if series.ChartType == "bar" {
			return barChart(w, series, width, height)
		}
		return lineChart(w, series, width, height)
	}
}

func values(series models.MSeries) []chart.Value {
	out := make([]chart.Value, 0, len(series.Values))
	for i, v := range series.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		label := ""
		if i < len(series.Labels) {
			label = series.Labels[i]
		}
		out = append(out, chart.Value{Label: label, Value: v})
	}
	return out
}

func pieChart(w io.Writer, series models.MSeries, width, height int) error {
	var slices []chart.Value
	for _, v := range values(series) {
		if v.Value > 0 {
			slices = append(slices, v)
		}
	}
	if len(slices) == 0 {
		return errNothingToDraw
	}

	pie := chart.PieChart{
		Title:  series.View,
		Width:  width,
		Height: height,
		Values: slices,
	}
	return pie.Render(chart.PNG, w)
}

func barChart(w io.Writer, series models.MSeries, width, height int) error {
	bars := values(series)
	if len(bars) == 0 {
		return errNothingToDraw
	}

	barWidth := width / (3*len(bars) + 2)
	if barWidth < 4 {
		barWidth = 4
	}
	bar := chart.BarChart{
		Title:    series.View,
		Width:    width,
		Height:   height,
		BarWidth: barWidth,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}
	if lo, hi, ok := bounds(bars); ok && lo == hi {
		bar.YAxis.Range = &chart.ContinuousRange{Min: math.Min(0, lo), Max: hi + 1}
	}
	return bar.Render(chart.PNG, w)
}

func lineChart(w io.Writer, series models.MSeries, width, height int) error {
	points := values(series)
	if len(points) == 0 {
		return errNothingToDraw
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	ticks := make([]chart.Tick, 0, maxAxisTicks+1)
	step := len(points)/maxAxisTicks + 1
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.Value
		if i%step == 0 {
			ticks = append(ticks, chart.Tick{Value: float64(i), Label: p.Label})
		}
	}
	// A single point has no x range. The axis range follows the ticks, so
	// the last index always gets one.
	if len(xs) == 1 {
		xs = append(xs, 1)
		ys = append(ys, ys[0])
	}
	if last := float64(len(xs) - 1); ticks[len(ticks)-1].Value != last {
		ticks = append(ticks, chart.Tick{Value: last})
	}

	ch := chart.Chart{
		Title:      series.View,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Ticks: ticks},
		YAxis:      chart.YAxis{Range: yRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: series.View, XValues: xs, YValues: ys},
		},
	}
	return ch.Render(chart.PNG, w)
}

func scatterChart(w io.Writer, series models.MSeries, width, height int) error {
	if len(series.Points) == 0 {
		return errNothingToDraw
	}

	xs := make([]float64, len(series.Points))
	ys := make([]float64, len(series.Points))
	for i, p := range series.Points {
		xs[i] = p.X
		ys[i] = p.Y
	}

	ch := chart.Chart{
		Title:      series.View,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "hour", Range: &chart.ContinuousRange{Min: 0, Max: 24}},
		YAxis:      chart.YAxis{Range: yRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: series.View, XValues: xs, YValues: ys, Style: pointStyle(chart.ColorBlue)},
		},
	}
	return ch.Render(chart.PNG, w)
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 0,
		DotWidth:    4,
		DotColor:    col,
	}
}

// yRange pads a flat series so the axis has a non-zero range.
func yRange(ys []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	if lo == hi {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func bounds(vs []chart.Value) (lo, hi float64, ok bool) {
	if len(vs) == 0 {
		return 0, 0, false
	}
	lo, hi = vs[0].Value, vs[0].Value
	for _, v := range vs[1:] {
		lo = math.Min(lo, v.Value)
		hi = math.Max(hi, v.Value)
	}
	return lo, hi, true
}
