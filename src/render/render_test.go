package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"live-dashboard/src/logger"
	"live-dashboard/src/models"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestChartDrawsEveryChartableShape(t *testing.T) {
	tests := []struct {
		name   string
		series models.MSeries
	}{
		{"pie", models.MSeries{View: models.ViewPie, Labels: []string{"a", "b"}, Values: []float64{3, 1}}},
		{"gauge", models.MSeries{View: models.ViewGauge, Labels: []string{"utilization", "remaining"}, Values: []float64{40, 60}}},
		{"bar", models.MSeries{View: models.ViewBar, Labels: []string{"a", "b"}, Values: []float64{3, 1}}},
		{"flat bar", models.MSeries{View: models.ViewComparison, Labels: []string{"a"}, Values: []float64{5}}},
		{"trend", models.MSeries{View: models.ViewTrend, Labels: []string{"09:00:00", "09:01:00", "09:02:00"}, Values: []float64{1, 3, 2}}},
		{"single point", models.MSeries{View: models.ViewTrend, Labels: []string{"09:00:00"}, Values: []float64{7}}},
		{"primary as bars", models.MSeries{View: models.ViewPrimary, ChartType: "bar", Labels: []string{"x", "y"}, Values: []float64{1, 2}}},
		{"scatter", models.MSeries{View: models.ViewScatter, Points: []models.MXYPoint{{X: 9, Y: 1}, {X: 13, Y: 4}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Chart(&buf, tt.series, 600, 300))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
}

func TestChartRefusesEmptyViews(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Chart(&buf, models.MSeries{View: models.ViewPie}, 600, 300), errNothingToDraw)
	assert.ErrorIs(t, Chart(&buf, models.MSeries{View: models.ViewGauge, Values: []float64{0, 0}}, 600, 300), errNothingToDraw)
	assert.ErrorIs(t, Chart(&buf, models.MSeries{View: models.ViewScatter}, 600, 300), errNothingToDraw)
}

func TestPNGSinkExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink := NewPNGSink(models.MExportConfig{Dir: dir, Width: 600, Height: 300}, logger.NewLogger("ERROR", "test"))
	sink.Now = func() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC) }

	sink.RenderSeries(models.MSeries{View: models.ViewPie, Labels: []string{"a"}, Values: []float64{1}})
	sink.RenderSeries(models.MSeries{View: models.ViewTrend, Labels: []string{"t0", "t1"}, Values: []float64{1, 2}})
	sink.RenderSeries(models.MSeries{View: models.ViewHourly})
	sink.RenderSeries(models.MSeries{View: models.ViewRecentTable, Rows: []models.MDataPoint{{ID: 1}}})
	// Only the latest rendering of a view is exported
	sink.RenderSeries(models.MSeries{View: models.ViewPie, Labels: []string{"a", "b"}, Values: []float64{1, 2}})

	files, err := sink.Export()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "pie-chart-2024-06-01.png"),
		filepath.Join(dir, "trend-chart-2024-06-01.png"),
	}, files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, pngMagic), f)
	}
}

func TestPNGSinkExportsOnePointViews(t *testing.T) {
	dir := t.TempDir()
	sink := NewPNGSink(models.MExportConfig{Dir: dir, Width: 600, Height: 300}, logger.NewLogger("ERROR", "test"))
	sink.Now = func() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC) }

	sink.RenderSeries(models.MSeries{View: models.ViewPie, Labels: []string{"a"}, Values: []float64{1}})
	sink.RenderSeries(models.MSeries{View: models.ViewTrend, Labels: []string{"09:00:00"}, Values: []float64{7}})
	sink.RenderSeries(models.MSeries{View: models.ViewMovingAvg, Labels: []string{"09:00:00"}, Values: []float64{3}})
	sink.RenderSeries(models.MSeries{View: models.ViewGauge, Labels: []string{"utilization", "remaining"}, Values: []float64{40, 60}})

	files, err := sink.Export()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "gauge-chart-2024-06-01.png"),
		filepath.Join(dir, "moving-average-chart-2024-06-01.png"),
		filepath.Join(dir, "pie-chart-2024-06-01.png"),
		filepath.Join(dir, "trend-chart-2024-06-01.png"),
	}, files)
}

func TestLineChartTicksReachLastPoint(t *testing.T) {
	for _, n := range []int{1, 2, 11, 26} {
		labels := make([]string, n)
		values := make([]float64, n)
		for i := range values {
			labels[i] = fmt.Sprintf("t%d", i)
			values[i] = float64(i % 3)
		}

		var buf bytes.Buffer
		require.NoError(t, Chart(&buf, models.MSeries{View: models.ViewTrend, Labels: labels, Values: values}, 600, 300), "n=%d", n)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
	}
}

// -----------------------------------------------------------------------------

func TestFormatTableAlignsByDisplayWidth(t *testing.T) {
	rows := []models.MDataPoint{
		{Timestamp: models.NewTimestamp(time.Date(2024, 6, 1, 9, 5, 7, 0, time.UTC)), Category: "温度", Value: 21.5, Unit: "C", Description: "living room"},
		{Timestamp: models.NewTimestamp(time.Date(2024, 6, 1, 9, 5, 0, 0, time.UTC)), Category: "cpu", Value: 3, Description: strings.Repeat("x", 200)},
	}

	out := FormatTable(rows, 80)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	for _, l := range lines {
		assert.Equal(t, 80, runewidth.StringWidth(l), l)
	}
	assert.Contains(t, lines[2], "09:05:07")
	assert.Contains(t, lines[2], "21.50")
	assert.Contains(t, lines[3], "...")
}

func TestTableSinkOnlyPrintsTableAndStatistics(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTableSink(&buf)
	sink.Width = 70

	sink.RenderSeries(models.MSeries{View: models.ViewTrend, Values: []float64{1}})
	assert.Empty(t, buf.String())

	sink.RenderSeries(models.MSeries{View: models.ViewRecentTable, Rows: []models.MDataPoint{{Category: "cpu", Value: 1}}})
	assert.Contains(t, buf.String(), "category")

	buf.Reset()
	sink.RenderStatistics(models.MStatistics{Count: 3, Mean: 2, Utilization: 66.7})
	assert.Contains(t, buf.String(), "points 3")
	assert.Contains(t, buf.String(), "utilization 66.7%")
}

func TestMultiSinkFansOut(t *testing.T) {
	var a, b bytes.Buffer
	first, second := NewTableSink(&a), NewTableSink(&b)
	multi := MultiSink{first, second}

	multi.RenderStatistics(models.MStatistics{Count: 1})
	assert.Equal(t, a.String(), b.String())
	assert.NotEmpty(t, a.String())
}
