package storage

import (
	"strconv"

	"live-dashboard/src/logger"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name:        "postgres",
	driver:      "postgres",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	schema: []string{`
		CREATE TABLE IF NOT EXISTS data_points (
			id BIGINT PRIMARY KEY,
			ts BIGINT NOT NULL,
			category TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			label TEXT,
			unit TEXT,
			source TEXT,
			description TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_data_points_ts ON data_points (ts)`,
	},
}

// -----------------------------------------------------------------------------

// NewPostgresSource opens a postgres database from a lib/pq connection string.
// The search_path of the connection string selects the schema.
func NewPostgresSource(connectionString string, log *logger.Logger) (*SQLSource, error) {
	return newSQLSource(postgresDialect, connectionString, log)
}
