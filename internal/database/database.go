package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver
)

// New opens the SQLite database file and verifies the connection.
func New(dataSourceName string) (*sqlx.DB, error) {
	if dir := filepath.Dir(dataSourceName); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dataSourceName + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; keep every statement on one connection.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
// It is safe to run on every start.
func Migrate(db *sqlx.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id_user INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		nom TEXT NOT NULL,
		prenom TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		token TEXT,
		token_expires_at TEXT,
		password TEXT NOT NULL,
		role TEXT CHECK(role IN ('coach', 'athlete')) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS details (
		id_details INTEGER PRIMARY KEY AUTOINCREMENT,
		id_user INTEGER NOT NULL,
		gender TEXT,
		age INTEGER,
		weight REAL,
		height REAL,
		FOREIGN KEY (id_user) REFERENCES users(id_user) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS performances (
		id_performance INTEGER PRIMARY KEY AUTOINCREMENT,
		id_user INTEGER NOT NULL,
		power_max REAL,
		hr_max REAL,
		vo2_max REAL,
		rf_max REAL,
		cadence_max REAL,
		vo2_class TEXT,
		ressenti INTEGER,
		date_performance TEXT DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (id_user) REFERENCES users(id_user) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_users_token ON users(token);
	CREATE INDEX IF NOT EXISTS idx_details_user ON details(id_user);
	CREATE INDEX IF NOT EXISTS idx_performances_user ON performances(id_user);
	`
	if _, err := db.Exec(sqlStmt); err != nil {
		return err
	}

	// Databases created before token expiry tracking lack this column.
	return ensureColumn(db, "users", "token_expires_at", "TEXT")
}

func ensureColumn(db *sqlx.DB, table, column, decl string) error {
	var names []string
	if err := db.Select(&names, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		return fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	for _, n := range names {
		if n == column {
			return nil
		}
	}

	log.Info().Str("table", table).Str("column", column).Msg("Adding missing column")
	_, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// WithTx runs fn inside a transaction, committing on success and rolling back otherwise.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		safeRollback(tx)
		return err
	}
	return tx.Commit()
}

func safeRollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warn().Err(err).Msg("Rollback failed")
	}
}
