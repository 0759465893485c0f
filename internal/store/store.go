// Package store persists shortlisting results in a local SQLite database.
//
// The pipeline itself never touches the store; the CLI saves reports after a
// run and reads them back for the shortlisted view.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/cv-shortlister/internal/pipeline"
)

// Store manages the results database.
type Store struct {
	db *sql.DB
}

// Candidate is one persisted row.
type Candidate struct {
	ID          string
	RunID       string
	Name        string
	Email       string
	CVFile      string
	JobTitle    string
	MatchScore  float64
	Shortlisted bool
	CreatedAt   time.Time
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	const schema = `CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		cv_file TEXT,
		job_title TEXT NOT NULL,
		match_score REAL NOT NULL,
		is_shortlisted INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}

	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_candidates_run_id ON candidates(run_id)`); err != nil {
		return fmt.Errorf("creating run index: %w", err)
	}

	return nil
}

// SaveReport stores one row per scored candidate in a single transaction.
func (s *Store) SaveReport(ctx context.Context, report *pipeline.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO candidates
		(id, run_id, name, email, cv_file, job_title, match_score, is_shortlisted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC().Format(time.RFC3339)
	for _, result := range report.Results {
		_, err := tx.ExecContext(ctx, insert,
			uuid.NewString(),
			report.RunID.String(),
			result.Name,
			result.Email,
			result.Source,
			report.JobTitle,
			result.Score,
			result.Shortlisted,
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting candidate %s: %w", result.Name, err)
		}
	}

	return tx.Commit()
}

// Shortlisted returns all stored shortlisted candidates ordered by match
// score, best first.
func (s *Store) Shortlisted(ctx context.Context) ([]Candidate, error) {
	const query = `SELECT id, run_id, name, email, cv_file, job_title, match_score, is_shortlisted, created_at
		FROM candidates WHERE is_shortlisted = 1 ORDER BY match_score DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying shortlisted candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		var createdAt string
		if err := rows.Scan(&c.ID, &c.RunID, &c.Name, &c.Email, &c.CVFile, &c.JobTitle, &c.MatchScore, &c.Shortlisted, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning candidate row: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}
