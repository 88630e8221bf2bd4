package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	executed_at TIMESTAMP NOT NULL,
	total_tests INTEGER NOT NULL,
	passed_tests INTEGER NOT NULL,
	failed_tests INTEGER NOT NULL,
	pass_rate REAL NOT NULL,
	response_time_ms INTEGER NOT NULL,
	results_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at);
`

// Store persists execution records to a sqlite database so history survives
// the process. The engine core never opens one on its own; hosts opt in.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) a sqlite-backed history store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends one record.
func (s *Store) Save(rec ExecutionRecord) error {
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO executions (executed_at, total_tests, passed_tests, failed_tests, pass_rate, response_time_ms, results_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ExecutedAt, rec.TotalTests, rec.PassedTests, rec.FailedTests, rec.PassRate, rec.ResponseTimeMs, string(results),
	)
	if err != nil {
		return fmt.Errorf("saving execution record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, most recent first. limit <= 0 means
// no bound.
func (s *Store) Recent(limit int) ([]ExecutionRecord, error) {
	query := `SELECT executed_at, total_tests, passed_tests, failed_tests, pass_rate, response_time_ms, results_json
		 FROM executions ORDER BY executed_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading execution records: %w", err)
	}
	defer rows.Close()

	var records []ExecutionRecord
	for rows.Next() {
		var rec ExecutionRecord
		var executedAt time.Time
		var resultsJSON string
		if err := rows.Scan(&executedAt, &rec.TotalTests, &rec.PassedTests, &rec.FailedTests, &rec.PassRate, &rec.ResponseTimeMs, &resultsJSON); err != nil {
			return nil, fmt.Errorf("scanning execution record: %w", err)
		}
		rec.ExecutedAt = executedAt
		if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
			return nil, fmt.Errorf("decoding results: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
