// Package sqlite implements the repository interfaces on top of an embedded
// SQLite database file (modernc.org/sqlite, pure Go, no CGo).
//
// SCHEMA:
//
//	users   (id INTEGER PK AUTOINCREMENT, email TEXT UNIQUE, password TEXT)
//	resumes (id INTEGER PK AUTOINCREMENT, user_id INTEGER REFERENCES users(id),
//	         file_name TEXT, file_data BLOB, uploaded_at TEXT)
//
// Column names and types match databases created by earlier deployments, so
// an existing users.db can be opened as-is.
//
// Two ways to prepare the schema exist:
//   - New runs migrate(), which only creates missing tables. Used by the
//     server on every start.
//   - Initialize is the one-shot setup command. It keeps users but drops and
//     recreates resumes, wiping every stored résumé.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// uploadedAtLayout is the text format of resumes.uploaded_at.
const uploadedAtLayout = "2006-01-02 15:04:05"

// DB wraps a sql.DB connection pool and implements both
// repository.UserRepository and repository.ResumeRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs the non-destructive
// migrations.
//
// dbPath examples:
//   - "data/users.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.migrate(context.Background()); err != nil {
		db.conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Initialize opens the database at dbPath and resets the schema the way the
// setup command always has: users is created if absent and preserved,
// resumes is dropped and recreated empty.
func Initialize(ctx context.Context, dbPath string) (*DB, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.ResetResumes(ctx); err != nil {
		db.conn.Close()
		return nil, err
	}

	return db, nil
}

func open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and every new connection to
	// ":memory:" would see its own empty database. One connection covers both.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health route.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

const createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		email    TEXT UNIQUE,
		password TEXT
	);`

const createResumesTable = `
	CREATE TABLE IF NOT EXISTS resumes (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER,
		file_name   TEXT,
		file_data   BLOB,
		uploaded_at TEXT,
		FOREIGN KEY (user_id) REFERENCES users (id)
	);
	CREATE INDEX IF NOT EXISTS idx_resumes_user_id ON resumes(user_id);`

// migrate creates any missing table. It never drops or alters data.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, createResumesTable); err != nil {
		return fmt.Errorf("creating resumes table: %w", err)
	}
	return nil
}

// ResetResumes creates users if needed, then drops and recreates resumes.
// DESTRUCTIVE: every stored résumé is lost. Users are kept.
func (db *DB) ResetResumes(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("sqlite: creating users table: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, `DROP TABLE IF EXISTS resumes`); err != nil {
		return fmt.Errorf("sqlite: dropping resumes table: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, createResumesTable); err != nil {
		return fmt.Errorf("sqlite: creating resumes table: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
