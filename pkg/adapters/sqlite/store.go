package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/snapshot"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	instance_id TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL,
	label TEXT NOT NULL,
	taken_at TEXT NOT NULL,
	data BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// Store implements ports.SnapshotStore on a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the snapshot of instanceID.
func (s *Store) Save(ctx context.Context, instanceID string, snap *snapshot.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshots(instance_id, snapshot_id, label, taken_at, data, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(instance_id) DO UPDATE SET
	snapshot_id=excluded.snapshot_id,
	label=excluded.label,
	taken_at=excluded.taken_at,
	data=excluded.data,
	updated_at=excluded.updated_at`,
		instanceID, snap.ID, snap.Label, ts(snap.Time), data, ts(time.Now()))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", instanceID, err)
	}
	return nil
}

// Load returns the snapshot of instanceID.
func (s *Store) Load(ctx context.Context, instanceID string) (*snapshot.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE instance_id = ?`, instanceID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", instanceID, err)
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", instanceID, err)
	}
	return &snap, nil
}

func (s *Store) Delete(ctx context.Context, instanceID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE instance_id = ?`, instanceID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", instanceID, err)
	}
	return nil
}

// List returns the saved instance IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT instance_id FROM snapshots ORDER BY instance_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan instance id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
