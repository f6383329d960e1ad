// Package localstore persists merge runs to an embedded SQLite database
// so the standalone CLI can save and re-inspect a run without a
// PostgreSQL server, mirroring internal/store's schema at a smaller
// scale.
package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS merge_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	config_json TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS merged_items (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT NOT NULL REFERENCES merge_runs(id),
	item_id          TEXT NOT NULL,
	subset           TEXT NOT NULL,
	annotations_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_local_merged_items_run ON merged_items(run_id);

CREATE TABLE IF NOT EXISTS merge_errors (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL REFERENCES merge_runs(id),
	item_id TEXT NOT NULL,
	subset  TEXT NOT NULL,
	kind    TEXT NOT NULL,
	message TEXT NOT NULL
);
`

// Store is a file-backed SQLite handle for one local CLI session.
type Store struct {
	db *sql.DB
}

// Open creates or reopens the database at path and ensures its schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun upserts a run's status and config snapshot.
func (s *Store) SaveRun(id, status, configJSON, createdAt string) error {
	_, err := s.db.Exec(`
		INSERT INTO merge_runs (id, status, config_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status;
	`, id, status, configJSON, createdAt)
	return err
}

// MergedItemRecord is the per-item payload SaveMergedItems writes.
type MergedItemRecord struct {
	ItemID      string
	Subset      string
	Annotations any
}

// SaveMergedItems persists a run's merged items in one transaction.
func (s *Store) SaveMergedItems(runID string, items []MergedItemRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO merged_items (run_id, item_id, subset, annotations_json)
		VALUES (?, ?, ?, ?);
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		payload, err := json.Marshal(it.Annotations)
		if err != nil {
			return fmt.Errorf("marshal merged item %s/%s: %w", it.Subset, it.ItemID, err)
		}
		if _, err := stmt.Exec(runID, it.ItemID, it.Subset, payload); err != nil {
			return fmt.Errorf("insert merged item %s/%s: %w", it.Subset, it.ItemID, err)
		}
	}
	return tx.Commit()
}

// ErrorRecord is the row shape for one accumulated merge error.
type ErrorRecord struct {
	ItemID  string
	Subset  string
	Kind    string
	Message string
}

// SaveErrors persists a run's accumulated quality/merge errors.
func (s *Store) SaveErrors(runID string, errs []ErrorRecord) error {
	if len(errs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO merge_errors (run_id, item_id, subset, kind, message)
		VALUES (?, ?, ?, ?, ?);
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range errs {
		if _, err := stmt.Exec(runID, e.ItemID, e.Subset, e.Kind, e.Message); err != nil {
			return fmt.Errorf("insert merge error: %w", err)
		}
	}
	return tx.Commit()
}

// GetRunErrors fetches every stored error row for a run.
func (s *Store) GetRunErrors(runID string) ([]ErrorRecord, error) {
	rows, err := s.db.Query(`
		SELECT item_id, subset, kind, message FROM merge_errors
		WHERE run_id = ? ORDER BY item_id;
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ErrorRecord
	for rows.Next() {
		var e ErrorRecord
		if err := rows.Scan(&e.ItemID, &e.Subset, &e.Kind, &e.Message); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
