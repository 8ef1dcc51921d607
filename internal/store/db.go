// Package store is the persistence engine: it opens a database from a
// connection URL, creates the catalog schema, and gives the pipeline a
// transactional session with chunked upserts, predicate-scoped
// invalidation, SCD duplication and content hashing.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// Store wraps a sql.DB opened for one dialect. It is safe for concurrent
// reads; writers must each use their own Session, and parallel vendor
// pulls must each open their own Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	scd     bool
	log     *slog.Logger
}

// Options tune how the store is opened.
type Options struct {
	// SCD enables slowly-changing-dimension duplication: every live-table
	// write also appends to the _scd companion in the same transaction.
	SCD bool
	Log *slog.Logger
}

// Open connects to the database behind a connection URL such as
// sqlite:///var/lib/skucrawler/db.sqlite or sqlite://:memory:, and
// ensures all catalog tables exist. Only the SQLite driver is linked;
// other schemes fail with a configuration error.
func Open(connURL string, opts Options) (*Store, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	scheme, dsn, err := splitConnURL(connURL)
	if err != nil {
		return nil, err
	}

	var dialect Dialect
	var driver string
	switch scheme {
	case "sqlite":
		dialect, driver = DialectSQLite, "sqlite"
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	case "postgresql", "mysql", "oracle", "sqlserver":
		return nil, fmt.Errorf("no %s driver linked: this build supports sqlite:// connection strings", scheme)
	default:
		return nil, fmt.Errorf("unsupported connection string scheme %q", scheme)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer at a time: the pipeline holds a single session per
	// vendor, and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dialect: dialect, scd: opts.SCD, log: opts.Log}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return s, nil
}

func splitConnURL(connURL string) (scheme, dsn string, err error) {
	u, err := url.Parse(connURL)
	if err != nil || u.Scheme == "" {
		return "", "", fmt.Errorf("invalid connection string %q: expected scheme://...", connURL)
	}
	// sqlite://:memory: parses its path into odd places depending on the
	// slash count; reconstruct from the raw string instead.
	rest := strings.TrimPrefix(connURL, u.Scheme+"://")
	return u.Scheme, rest, nil
}

// RawDB exposes the underlying handle for tests and the hash command.
func (s *Store) RawDB() *sql.DB { return s.db }

// Dialect returns the SQL dialect the store was opened with.
func (s *Store) Dialect() Dialect { return s.dialect }

// SCDEnabled reports whether SCD duplication is on.
func (s *Store) SCDEnabled() bool { return s.scd }

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	stmts := CreateStatements(s.dialect, true)
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// CountRows returns the number of rows in a table.
func (s *Store) CountRows(table string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s rows: %w", table, err)
	}
	return n, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

// scdTables lists every SCD companion present in the schema.
func scdTables() []*catalog.Table {
	var out []*catalog.Table
	for _, t := range catalog.Tables() {
		if t.SCD {
			out = append(out, t)
		}
	}
	return out
}
