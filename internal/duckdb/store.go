// Package duckdb persists NMD predictions and caches parsed transcripts.
// Transcripts are cached as gob files (fast, pure Go).
// Prediction results are stored in DuckDB (queryable across runs).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// stagingTable receives appended rows before they replace stored results.
const stagingTable = "nmd_results_staging"

// Store manages a DuckDB connection holding prediction results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS nmd_results (
		transcript_id VARCHAR,
		threshold BIGINT,
		gene_id VARCHAR,
		gene_name VARCHAR,
		chrom VARCHAR,
		stop_to_last_ej BIGINT,
		num_down_ejs BIGINT,
		utr3_length BIGINT,
		is_nmd BOOLEAN,
		ptc_seqname VARCHAR,
		ptc_position BIGINT,
		ptc_strand VARCHAR,
		PRIMARY KEY (transcript_id, threshold)
	)`)
	if err != nil {
		return err
	}

	// Same columns without the key, filled by the Appender before results
	// are moved into nmd_results.
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + stagingTable + ` AS
		SELECT * FROM nmd_results LIMIT 0`)
	return err
}
