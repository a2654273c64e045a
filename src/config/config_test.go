package config

import (
	"os"
	"path/filepath"
	"testing"

	"live-dashboard/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("name: dash\n"))
	require.NoError(t, err)

	assert.Equal(t, "dash", cfg.Name)
	assert.Equal(t, utils.DefaultCacheCapacity, cfg.Cache.Capacity)
	assert.Equal(t, utils.DefaultTrendPoints, cfg.Cache.TrendPoints)
	assert.Equal(t, utils.DefaultTableRows, cfg.Cache.TableRows)
	assert.Equal(t, 30, cfg.Refresh.AggregatesSeconds)
	assert.Equal(t, 60, cfg.Refresh.CategoriesSeconds)
	assert.Equal(t, 10, cfg.Refresh.StatisticsSeconds)
	assert.Equal(t, 5, cfg.Push.ReconnectSeconds)
	assert.Equal(t, "rest", cfg.Source.Type)
	assert.Equal(t, "24h", cfg.Filter.Initial.TimeRange)
	assert.Equal(t, "sum", cfg.Filter.Initial.Aggregation)
	assert.Equal(t, "line", cfg.Filter.Initial.ChartType)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"low port", "port: 80\n"},
		{"bad log level", "log_level: LOUD\n"},
		{"unknown source", "source:\n  type: ftp\n"},
		{"sqlite without path", "source:\n  type: sqlite\n"},
		{"postgres without dsn", "source:\n  type: postgres\n"},
		{"push without url", "push:\n  enabled: true\n"},
		{"bad aggregation", "filter:\n  initial:\n    aggregation: median\n"},
		{"bad time range", "filter:\n  initial:\n    time_range: soon\n"},
		{"negative capacity", "cache:\n  capacity: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestNewConfigAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: dash
port: 9000
source:
  type: sqlite
  db_path: data.db
push:
  enabled: true
  url: ws://localhost:8080/ws
filter:
  initial:
    category: cpu
    time_range: 7d
`), 0644))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "cpu", cfg.Filter.Initial.Category)
	assert.Equal(t, "7d", cfg.Filter.Initial.TimeRange)

	out := filepath.Join(dir, "saved.yaml")
	require.NoError(t, cfg.Save(out))

	again, err := NewConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.MConfig, again.MConfig)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestShippedDefaultConfigLoads(t *testing.T) {
	cfg, err := NewConfig(filepath.Join("..", "..", "config", "default.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "live-dashboard", cfg.Name)
	assert.Equal(t, 0, cfg.GrpcPort)
	assert.True(t, cfg.Push.Enabled)
	assert.Equal(t, "rest", cfg.Source.Type)
	assert.Equal(t, utils.DefaultCacheCapacity, cfg.Cache.Capacity)
	assert.Equal(t, "sum", cfg.Filter.Initial.Aggregation)
}
