package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"live-dashboard/src/models"
	"live-dashboard/src/utils"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from YAML bytes, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	// Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a configuration that talks to a backend on localhost:8080.
func Default() *Config {
	config := &Config{MConfig: &models.MConfig{}}
	config.ApplyDefaults()
	return config
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every zero value with the dashboard defaults
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "live-dashboard"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcHost == "" {
		c.GrpcHost = c.Host
	}

	// Cache
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = utils.DefaultCacheCapacity
	}
	if c.Cache.TrendPoints == 0 {
		c.Cache.TrendPoints = utils.DefaultTrendPoints
	}
	if c.Cache.TableRows == 0 {
		c.Cache.TableRows = utils.DefaultTableRows
	}

	// Refresh cadence
	if c.Refresh.AggregatesSeconds == 0 {
		c.Refresh.AggregatesSeconds = utils.DefaultAggregatesSeconds
	}
	if c.Refresh.CategoriesSeconds == 0 {
		c.Refresh.CategoriesSeconds = utils.DefaultCategoriesSeconds
	}
	if c.Refresh.StatisticsSeconds == 0 {
		c.Refresh.StatisticsSeconds = utils.DefaultStatisticsSeconds
	}
	if c.Refresh.AggregateEveryUpdates == 0 {
		c.Refresh.AggregateEveryUpdates = utils.DefaultAggregateEveryUpdates
	}

	// Source
	if c.Source.Type == "" {
		c.Source.Type = "rest"
	}
	if c.Source.Type == "rest" && c.Source.BaseURL == "" {
		c.Source.BaseURL = "http://localhost:8080"
	}
	if c.Source.RequestTimeout == 0 {
		c.Source.RequestTimeout = utils.DefaultRequestTimeoutSeconds
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = "live-dashboard/1.0"
	}

	// Push
	if c.Push.ReconnectSeconds == 0 {
		c.Push.ReconnectSeconds = utils.DefaultReconnectSeconds
	}

	// Filter
	c.Filter.Initial = c.Filter.Initial.WithDefaults()

	// Export
	if c.Export.Dir == "" {
		c.Export.Dir = "exports"
	}
	if c.Export.Width == 0 {
		c.Export.Width = 1024
	}
	if c.Export.Height == 0 {
		c.Export.Height = 512
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARNING", "WARN", "ERROR":
	default:
		return fmt.Errorf("unsupported log level '%s'", c.LogLevel)
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	// Validate Cache configuration
	if c.Cache.Capacity < 0 || c.Cache.TrendPoints < 0 || c.Cache.TableRows < 0 {
		return fmt.Errorf("cache sizes cannot be negative")
	}

	// Validate Refresh configuration
	if c.Refresh.AggregatesSeconds < 0 || c.Refresh.CategoriesSeconds < 0 || c.Refresh.StatisticsSeconds < 0 {
		return fmt.Errorf("refresh periods cannot be negative")
	}
	if c.Refresh.AggregateEveryUpdates < 0 {
		return fmt.Errorf("aggregate_every_updates cannot be negative")
	}

	// Validate Source configuration
	switch c.Source.Type {
	case "rest":
		if _, err := url.ParseRequestURI(c.Source.BaseURL); err != nil {
			return fmt.Errorf("invalid source base_url '%s': %w", c.Source.BaseURL, err)
		}
	case "sqlite":
		if c.Source.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Source.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported source type '%s'", c.Source.Type)
	}
	if c.Source.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}

	// Validate Push configuration
	if c.Push.Enabled {
		if _, err := url.ParseRequestURI(c.Push.URL); err != nil {
			return fmt.Errorf("invalid push url '%s': %w", c.Push.URL, err)
		}
	}
	if c.Push.ReconnectSeconds < 0 {
		return fmt.Errorf("reconnect delay cannot be negative")
	}

	// Validate the initial filter
	if err := c.Filter.Initial.Validate(); err != nil {
		return fmt.Errorf("invalid initial filter: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
