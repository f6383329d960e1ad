// Package store persists merge runs, their merged items and their
// accumulated errors to PostgreSQL via pgx.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for the merge engine")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Merge engine schema initialized")
	return nil
}

// RunRecord is one stored merge run: its config snapshot, status and
// timestamps. Run in package mergeservice is the live in-memory
// counterpart; this is the row shape persisted once a run finishes.
type RunRecord struct {
	ID         string
	Status     string
	ConfigJSON string
	CreatedAt  string
	FinishedAt *string
}

// SaveRun upserts a run's status and config snapshot.
func (s *PostgresStore) SaveRun(ctx context.Context, run RunRecord) error {
	sql := `
		INSERT INTO merge_runs (id, status, config_json, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, finished_at = EXCLUDED.finished_at;
	`
	_, err := s.pool.Exec(ctx, sql, run.ID, run.Status, run.ConfigJSON, run.CreatedAt, run.FinishedAt)
	return err
}

// SaveMergedItems persists the merged annotations for a run in one
// transaction, batching the per-item inserts the way a production
// writer would rather than round-tripping per row.
func (s *PostgresStore) SaveMergedItems(ctx context.Context, runID string, items []MergedItemRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertSQL := `
		INSERT INTO merged_items (run_id, item_id, subset, annotations_json)
		VALUES ($1, $2, $3, $4);
	`
	for _, it := range items {
		payload, err := json.Marshal(it.Annotations)
		if err != nil {
			return fmt.Errorf("failed to marshal merged item %s/%s: %v", it.Subset, it.ItemID, err)
		}
		if _, err := tx.Exec(ctx, insertSQL, runID, it.ItemID, it.Subset, payload); err != nil {
			return fmt.Errorf("failed to insert merged item %s/%s: %v", it.Subset, it.ItemID, err)
		}
	}

	return tx.Commit(ctx)
}

// MergedItemRecord is the per-item payload SaveMergedItems writes.
type MergedItemRecord struct {
	ItemID      string
	Subset      string
	Annotations any
}

// SaveErrors persists the quality/merge-class errors a run accumulated.
func (s *PostgresStore) SaveErrors(ctx context.Context, runID string, errs []ErrorRecord) error {
	if len(errs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertSQL := `
		INSERT INTO merge_errors (run_id, item_id, subset, kind, message)
		VALUES ($1, $2, $3, $4, $5);
	`
	for _, e := range errs {
		if _, err := tx.Exec(ctx, insertSQL, runID, e.ItemID, e.Subset, e.Kind, e.Message); err != nil {
			return fmt.Errorf("failed to insert merge error: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// ErrorRecord is the row shape for one accumulated merge error.
type ErrorRecord struct {
	ItemID  string
	Subset  string
	Kind    string
	Message string
}

// GetRunErrors fetches the error rows for a run, paginated the way
// production list endpoints are.
func (s *PostgresStore) GetRunErrors(ctx context.Context, runID string, page, limit int) ([]ErrorRecord, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM merge_errors WHERE run_id = $1`, runID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT item_id, subset, kind, message FROM merge_errors
		WHERE run_id = $1
		ORDER BY item_id
		LIMIT $2 OFFSET $3
	`, runID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []ErrorRecord
	for rows.Next() {
		var e ErrorRecord
		if err := rows.Scan(&e.ItemID, &e.Subset, &e.Kind, &e.Message); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if out == nil {
		out = []ErrorRecord{}
	}
	return out, total, nil
}

// GetPool exposes the connection pool for callers that need a raw
// handle.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
