package storage

import (
	"live-dashboard/src/logger"

	_ "modernc.org/sqlite"
)

// dialect holds what differs between the SQL backends.
type dialect struct {
	name        string
	driver      string
	placeholder func(n int) string
	schema      []string
}

// -----------------------------------------------------------------------------

// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
var sqliteDialect = dialect{
	name:        "sqlite",
	driver:      "sqlite",
	placeholder: func(int) string { return "?" },
	schema: []string{`
		CREATE TABLE IF NOT EXISTS data_points (
			id INTEGER PRIMARY KEY,
			ts INTEGER NOT NULL,
			category TEXT NOT NULL,
			value REAL NOT NULL,
			label TEXT,
			unit TEXT,
			source TEXT,
			description TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_data_points_ts ON data_points (ts)`,
	},
}

// -----------------------------------------------------------------------------

// NewSQLiteSource opens the sqlite database at path (":memory:" works too).
func NewSQLiteSource(path string, log *logger.Logger) (*SQLSource, error) {
	src, err := newSQLSource(sqliteDialect, path, log)
	if err != nil {
		return nil, err
	}

	// A single connection keeps ":memory:" one database
	src.DB.SetMaxOpenConns(1)
	if _, err := src.DB.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		src.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	return src, nil
}
