// Package sqlite persists execution records in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voxkit/datamap/internal/storage"
)

// Store is a SQLite implementation of ExecutionStore.
type Store struct {
	db *sql.DB
}

var _ storage.ExecutionStore = (*Store)(nil)

// New opens (or creates) the database at path and initializes the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			function TEXT NOT NULL,
			outcome TEXT NOT NULL,
			expression_index INTEGER NOT NULL DEFAULT -1,
			webhook_index INTEGER NOT NULL DEFAULT -1,
			attempts TEXT,
			response_text TEXT,
			action_count INTEGER NOT NULL DEFAULT 0,
			response_tokens INTEGER NOT NULL DEFAULT 0,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_function ON executions(function, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_created ON executions(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RecordExecution(ctx context.Context, rec *storage.ExecutionRecord) error {
	var attempts []byte
	if len(rec.Attempts) > 0 {
		var err error
		attempts, err = json.Marshal(rec.Attempts)
		if err != nil {
			return fmt.Errorf("marshal attempts: %w", err)
		}
	}

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (
			id, function, outcome, expression_index, webhook_index,
			attempts, response_text, action_count, response_tokens,
			duration_ns, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Function, rec.Outcome, rec.ExpressionIndex, rec.WebhookIndex,
		nullableText(attempts), rec.ResponseText, rec.ActionCount, rec.ResponseTokens,
		rec.Duration.Nanoseconds(), created,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*storage.ExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, function, outcome, expression_index, webhook_index,
		       attempts, response_text, action_count, response_tokens,
		       duration_ns, created_at
		FROM executions WHERE id = ?`, id)

	rec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	return rec, err
}

func (s *Store) ListExecutions(ctx context.Context, opts storage.ListOptions) ([]*storage.ExecutionRecord, error) {
	query := `
		SELECT id, function, outcome, expression_index, webhook_index,
		       attempts, response_text, action_count, response_tokens,
		       duration_ns, created_at
		FROM executions WHERE 1=1`
	var args []any

	if opts.Function != "" {
		query += " AND function = ?"
		args = append(args, opts.Function)
	}
	if opts.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, opts.Outcome)
	}

	query += " ORDER BY created_at DESC, id"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []*storage.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanExecution(row scannable) (*storage.ExecutionRecord, error) {
	var (
		rec        storage.ExecutionRecord
		attempts   sql.NullString
		durationNS int64
	)

	err := row.Scan(
		&rec.ID, &rec.Function, &rec.Outcome, &rec.ExpressionIndex, &rec.WebhookIndex,
		&attempts, &rec.ResponseText, &rec.ActionCount, &rec.ResponseTokens,
		&durationNS, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Duration = time.Duration(durationNS)
	if attempts.Valid && attempts.String != "" {
		if err := json.Unmarshal([]byte(attempts.String), &rec.Attempts); err != nil {
			return nil, fmt.Errorf("unmarshal attempts: %w", err)
		}
	}

	return &rec, nil
}

func nullableText(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
