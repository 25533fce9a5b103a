package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/readtrack/internal/config"
	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/source"
	"github.com/roach88/readtrack/internal/store"
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".readtrack", "config.yaml")
}

// snapshotLog is the part of *store.Store a session uses.
type snapshotLog interface {
	Save(ctx context.Context, buf []byte, reason string) (store.Snapshot, bool, error)
	Get(ctx context.Context, id string) ([]byte, error)
	History(ctx context.Context, limit int) ([]store.Snapshot, error)
	Prune(ctx context.Context, keep int) (int64, error)
	Close() error
}

// session is one command's view of the persisted tracker.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	snaps   snapshotLog
	tracker *progress.Tracker
	// fresh is true when the database held no snapshot.
	fresh bool
}

// resolveConfig loads the config file and applies the --db flag.
func resolveConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return config.SetupLogger(w, cfg.LogLevel)
}

// openSession opens the snapshot database and loads the newest buffer.
// An empty database yields a tracker holding only the default source.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}

	snaps, err := store.Open(cfg.DBPath, store.WithClock(opts.Now))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	buf, found, err := snaps.Latest(ctx)
	if err != nil {
		snaps.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read latest snapshot", err)
	}
	if !found {
		buf = progress.EncodeSources([]source.Config{source.Default()})
	}

	logger.Debug("session opened", "db", cfg.DBPath, "fresh", !found)
	return &session{
		cfg:     cfg,
		logger:  logger,
		snaps:   snaps,
		tracker: progress.LoadTracker(buf, progress.WithLogger(logger)),
		fresh:   !found,
	}, nil
}

// save persists the tracker and prunes old snapshots. prev is the buffer
// the tracker held before the mutation being saved; a failed save restores it.
func (s *session) save(ctx context.Context, reason string, prev []byte) (store.Snapshot, error) {
	snap, created, err := s.snaps.Save(ctx, s.tracker.Serialize(), reason)
	if err != nil {
		s.tracker.ReplaceAll(prev)
		s.logger.Warn("snapshot save failed, change rolled back", "reason", reason, "error", err)
		return store.Snapshot{}, WrapExitError(ExitCommandError, "failed to save snapshot", err)
	}
	if created {
		if n, err := s.snaps.Prune(ctx, s.cfg.KeepSnapshots); err != nil {
			s.logger.Warn("prune snapshots failed", "error", err)
		} else if n > 0 {
			s.logger.Debug("pruned snapshots", "deleted", n)
		}
	}
	s.logger.Debug("snapshot saved", "id", snap.ID, "seq", snap.Seq, "created", created)
	return snap, nil
}

func (s *session) Close() error {
	if err := s.snaps.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
