package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is written in the subset of SQL shared by Postgres and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS schools (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		code       TEXT NOT NULL UNIQUE,
		address    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		school_id     TEXT REFERENCES schools(id) ON DELETE CASCADE,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id             TEXT PRIMARY KEY,
		school_id      TEXT NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
		photo_id       TEXT NOT NULL,
		full_name      TEXT NOT NULL,
		class_name     TEXT NOT NULL,
		roll_no        TEXT NOT NULL DEFAULT '',
		father_name    TEXT NOT NULL DEFAULT '',
		mother_name    TEXT NOT NULL DEFAULT '',
		date_of_birth  TEXT NOT NULL DEFAULT '',
		address        TEXT NOT NULL DEFAULT '',
		contact        TEXT NOT NULL DEFAULT '',
		photo_url      TEXT,
		photo_key      TEXT,
		photo_uploaded BOOLEAN NOT NULL DEFAULT FALSE,
		updated_by     TEXT,
		updated_at     TIMESTAMP,
		created_at     TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_school_photo ON students(school_id, photo_id)`,
	`CREATE INDEX IF NOT EXISTS idx_students_school_class ON students(school_id, class_name, full_name)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_school ON accounts(school_id)`,
}

// Migrate creates missing tables and indexes. It is safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}
