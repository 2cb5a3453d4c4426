// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// the SQLite sources — it works everywhere Go works.
//
// The whole persistent state of the application is one database file with
// two tables, users and posts. All access goes through parameterized
// statements; every write is a single-statement implicit transaction, so
// there is never partial row state to observe.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import: the driver registers itself with database/sql under the
	// name "sqlite" in its init function.
	_ "modernc.org/sqlite"
)

// schema is the full table definition, written to be idempotent so it can
// run on every startup.
//
// Note the UNIQUE constraint on username: concurrent registrations of the
// same name are serialized by SQLite itself, and the loser's INSERT fails
// with a constraint violation that user.go translates to a duplicate-
// username conflict. The application adds no locking of its own.
const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS posts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id  INTEGER NOT NULL REFERENCES users(id),
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
	CREATE INDEX IF NOT EXISTS idx_posts_author_id  ON posts(author_id);
`

// DB wraps a sql.DB connection pool and implements the repository
// interfaces (see user.go and post.go).
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the
// schema. Use ":memory:" in tests for a throwaway database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database is private to its connection: with a pool of
	// more than one, each connection would see a different empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Force an immediate connection so a bad path or permissions problem
	// surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight — important for a
	// web server where requests overlap.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite; posts.author_id needs them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool, flushing the WAL and releasing the file
// lock. Always defer it next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate applies the schema. CREATE TABLE IF NOT EXISTS makes this safe to
// run on every startup.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Reset drops both tables and recreates them from scratch. Destructive —
// every user and post is gone afterwards. Exists for the initdb command;
// the server never calls it.
func (db *DB) Reset() error {
	if _, err := db.conn.Exec(`
		DROP TABLE IF EXISTS posts;
		DROP TABLE IF EXISTS users;
	`); err != nil {
		return fmt.Errorf("sqlite: dropping tables: %w", err)
	}
	return db.migrate()
}
