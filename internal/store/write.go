package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/readtrack/internal/ir"
)

// Save appends buf as a new snapshot and returns its metadata.
//
// If the latest snapshot already has the same checksum, nothing is written
// and that snapshot is returned with created=false.
func (s *Store) Save(ctx context.Context, buf []byte, reason string) (snap Snapshot, created bool, err error) {
	checksum := ir.SnapshotChecksum(buf)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	latest, err := scanSnapshot(tx.QueryRowContext(ctx, `
		SELECT id, seq, checksum, size, created_at, reason
		FROM snapshots
		ORDER BY seq DESC
		LIMIT 1
	`))
	switch {
	case err == nil && latest.Checksum == checksum:
		return latest, false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return Snapshot{}, false, fmt.Errorf("save snapshot: read latest: %w", err)
	}

	snap = Snapshot{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Seq:       latest.Seq + 1,
		Checksum:  checksum,
		Size:      int64(len(buf)),
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		Reason:    reason,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, seq, checksum, size, data, created_at, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		snap.ID,
		snap.Seq,
		snap.Checksum,
		snap.Size,
		buf,
		snap.CreatedAt.UnixMilli(),
		snap.Reason,
	)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, false, fmt.Errorf("save snapshot: commit: %w", err)
	}
	return snap, true, nil
}

// Prune deletes all but the newest keep snapshots and returns how many were
// removed. keep below 1 is treated as 1: the latest snapshot is never pruned.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE seq NOT IN (
			SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: rows affected: %w", err)
	}
	return n, nil
}
