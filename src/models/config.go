package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	GrpcHost string         `yaml:"grpc_host"`
	GrpcPort int            `yaml:"grpc_port"`
	Cache    MCacheConfig   `yaml:"cache"`
	Refresh  MRefreshConfig `yaml:"refresh"`
	Source   MSourceConfig  `yaml:"source"`
	Push     MPushConfig    `yaml:"push"`
	Filter   MFilterConfig  `yaml:"filter"`
	Export   MExportConfig  `yaml:"export"`
}

type MCacheConfig struct {
	Capacity    int `yaml:"capacity"`
	TrendPoints int `yaml:"trend_points"`
	TableRows   int `yaml:"table_rows"`
}

type MRefreshConfig struct {
	AggregatesSeconds     int    `yaml:"aggregates_seconds"`
	CategoriesSeconds     int    `yaml:"categories_seconds"`
	StatisticsSeconds     int    `yaml:"statistics_seconds"`
	AggregateEveryUpdates int    `yaml:"aggregate_every_updates"`
	Calendar              string `yaml:"calendar"` // MIC code, empty = always open
}

type MSourceConfig struct {
	Type               string `yaml:"type"` // rest, sqlite, postgres
	BaseURL            string `yaml:"base_url"`
	RequestTimeout     int    `yaml:"timeout"`
	UserAgent          string `yaml:"user_agent"`
	Proxy              string `yaml:"proxy"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MPushConfig struct {
	Enabled          bool   `yaml:"enabled"`
	URL              string `yaml:"url"`
	ReconnectSeconds int    `yaml:"reconnect_seconds"`
}

type MFilterConfig struct {
	Initial   MFilterState `yaml:"initial"`
	WatchFile string       `yaml:"watch_file"`
}

type MExportConfig struct {
	Dir    string `yaml:"dir"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}
