package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

func NewConnection(connectStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Println("Database connection established")
	return db, nil
}

// EnsureSchema creates the run and record tables when they do not exist
// yet, so a fresh database works without a separate migration step.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS extraction_runs (
			id SERIAL PRIMARY KEY,
			deck_name TEXT NOT NULL,
			input_path TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			found INT NOT NULL,
			succeeded INT NOT NULL,
			failed INT NOT NULL,
			total_bytes BIGINT NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS extraction_records (
			id SERIAL PRIMARY KEY,
			run_id INT NOT NULL REFERENCES extraction_runs(id) ON DELETE CASCADE,
			slide_number INT NOT NULL,
			part_path TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			declared_name TEXT NOT NULL DEFAULT '',
			type_label TEXT NOT NULL DEFAULT '',
			mime TEXT NOT NULL DEFAULT '',
			size_bytes BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_kind TEXT NOT NULL DEFAULT '',
			error_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
