// Package db owns the sqlite database: schema migration, subject seeding, and
// all typed queries used by the API layer and the statistics engine.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the sql handle so callers receive an explicit dependency instead
// of a package-level global.
type DB struct {
	sql *sql.DB
}

func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "gakushu.db")
	handle, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	d := &DB{sql: handle}
	if err := d.migrate(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			user_type TEXT NOT NULL DEFAULT 'student' CHECK(user_type IN ('student','admin')),
			grade TEXT NOT NULL DEFAULT '',
			class_name TEXT NOT NULL DEFAULT '',
			student_number TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			is_approved INTEGER NOT NULL DEFAULT 0,
			password_changed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT NOT NULL UNIQUE,
			expires_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subjects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '#95A5A6'
		)`,
		`CREATE TABLE IF NOT EXISTS study_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			study_date TEXT NOT NULL,
			subject_id INTEGER REFERENCES subjects(id) ON DELETE SET NULL,
			hours INTEGER NOT NULL DEFAULT 0,
			minutes INTEGER NOT NULL DEFAULT 0,
			memo TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_study_records_user_date
			ON study_records(user_id, study_date)`,
		`CREATE TABLE IF NOT EXISTS user_goals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			daily_goal_minutes INTEGER NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			type TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '#3498DB',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := d.sql.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}

	return d.seedSubjects()
}

// seedSubjects inserts the fixed subject set on first run. Subjects are a
// static reference table; students never create them.
func (d *DB) seedSubjects() error {
	var count int
	if err := d.sql.QueryRow("SELECT COUNT(*) FROM subjects").Scan(&count); err != nil {
		return fmt.Errorf("count subjects: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := []Subject{
		{Name: "国語", Color: "#E74C3C"},
		{Name: "数学", Color: "#3498DB"},
		{Name: "英語", Color: "#2ECC71"},
		{Name: "理科", Color: "#9B59B6"},
		{Name: "社会", Color: "#F39C12"},
		{Name: "その他", Color: "#95A5A6"},
	}
	for _, s := range seed {
		if _, err := d.sql.Exec("INSERT INTO subjects (name, color) VALUES (?, ?)", s.Name, s.Color); err != nil {
			return fmt.Errorf("seed subject %s: %w", s.Name, err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}
