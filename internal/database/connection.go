package database

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DB is the global database connection
var DB *sqlx.DB

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrOrphanForm is returned when a verb form points at a missing verb
	ErrOrphanForm = errors.New("verb form without parent verb")
	// ErrInvalidLevel is returned for a level outside [0, MaxLevel]
	ErrInvalidLevel = errors.New("level out of range")
)

// Config selects the database driver and data source
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Connect opens the configured database, creates the schema and stores
// the connection in DB
func Connect(cfg Config) error {
	db, err := Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens a database and initializes its schema
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" {
		driver = "sqlite3"
	}

	if driver == "sqlite3" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrap(err, "failed to create data directory")
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if driver == "sqlite3" {
		// SQLite doesn't support multiple writers; one connection also
		// keeps an in-memory database and its pragmas alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the global database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

func isPostgres(db *sqlx.DB) bool {
	return db.DriverName() == "postgres"
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if isPostgres(db) {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		name  string
		query string
	}{
		{"items", `
			CREATE TABLE IF NOT EXISTS items (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				source_text TEXT NOT NULL,
				target_text TEXT NOT NULL,
				article TEXT NOT NULL DEFAULT '',
				example_sentence TEXT NOT NULL DEFAULT '',
				example_translation TEXT NOT NULL DEFAULT '',
				level INTEGER NOT NULL DEFAULT 0 CHECK (level >= 0 AND level <= 100),
				last_level_change_at TIMESTAMP NULL,
				in_learning BOOLEAN NOT NULL DEFAULT FALSE,
				verb_id TEXT NULL REFERENCES items(id) ON DELETE CASCADE,
				tense TEXT NOT NULL DEFAULT '',
				person INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL
			)
		`},
		{"items verb index", `CREATE INDEX IF NOT EXISTS idx_items_verb_id ON items(verb_id)`},
		{"items source index", `CREATE INDEX IF NOT EXISTS idx_items_source ON items(kind, source_text)`},
		{"settings", `
			CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)
		`},
		{"session_results", `
			CREATE TABLE IF NOT EXISTS session_results (
				id ` + serial + `,
				items INTEGER NOT NULL,
				completed INTEGER NOT NULL,
				answers INTEGER NOT NULL,
				correct INTEGER NOT NULL,
				started_at TIMESTAMP NOT NULL,
				finished_at TIMESTAMP NOT NULL
			)
		`},
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt.query); err != nil {
			return errors.Wrapf(err, "failed to create %s", stmt.name)
		}
	}
	return nil
}
