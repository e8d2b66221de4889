// Package store is the SQLite statistics backend: deviation samples,
// imported centerlines and saved bookmarks.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/ridealong/internal/config"
	"github.com/banshee-data/ridealong/internal/monitoring"
)

var logf = monitoring.Component("Store")

// Store wraps the SQLite database.
type Store struct {
	db         *sql.DB
	path       string
	maxBuckets int
	resolution float64
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, path: path}
	s.Configure(config.Empty())
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func applyPragmas(db *sql.DB) error {
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return nil
}

// Configure applies the aggregation settings of a tuning config.
func (s *Store) Configure(c *config.Config) {
	s.maxBuckets = c.GetMaxProfileBuckets()
	s.resolution = c.GetHistogramResolution()
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
