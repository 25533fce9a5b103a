package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Snapshot is the metadata of one persisted buffer.
type Snapshot struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Reason    string    `json:"reason,omitempty"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var snap Snapshot
	var createdAt int64
	if err := row.Scan(&snap.ID, &snap.Seq, &snap.Checksum, &snap.Size, &createdAt, &snap.Reason); err != nil {
		return Snapshot{}, err
	}
	snap.CreatedAt = time.UnixMilli(createdAt).UTC()
	return snap, nil
}

// Latest returns the newest buffer. found is false when the store is empty.
func (s *Store) Latest(ctx context.Context) (buf []byte, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT data FROM snapshots ORDER BY seq DESC LIMIT 1
	`).Scan(&buf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read latest snapshot: %w", err)
	}
	return buf, true, nil
}

// Get returns the buffer of the snapshot with the given id.
// Returns ErrNotFound if no such snapshot exists.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	var buf []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = ?`, id).Scan(&buf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return buf, nil
}

// History returns snapshot metadata, newest first. limit <= 0 means all.
// Returns an empty slice (not nil) when there are no snapshots.
func (s *Store) History(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, checksum, size, created_at, reason
		FROM snapshots
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		history = append(history, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return history, nil
}
