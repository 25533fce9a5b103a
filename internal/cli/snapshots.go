package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/readtrack/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List saved snapshots, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			snaps, err := s.snaps.History(cmd.Context(), limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list snapshots", err)
			}
			if snaps == nil {
				snaps = []store.Snapshot{}
			}
			return newFormatter(rootOpts, cmd).Success(historyList(snaps))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum snapshots to list (0 for all)")

	return cmd
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot-id>",
		Short: "Restore progress from an earlier snapshot",
		Long: `Replace all sources and records with those of an earlier snapshot.
The restored state is saved as a new snapshot; history is never rewritten.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := newFormatter(rootOpts, cmd)

			s, err := openSession(ctx, rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			buf, err := s.snaps.Get(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				_ = out.Error(ErrCodeNotFound, fmt.Sprintf("snapshot %s not found", args[0]), nil)
				return reportedExit(ExitCommandError, "snapshot not found")
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read snapshot", err)
			}

			prev := s.tracker.Serialize()
			s.tracker.ReplaceAll(buf)
			snap, err := s.save(ctx, "restore "+args[0], prev)
			if err != nil {
				return err
			}
			return out.Saved(summary{Sources: s.tracker.NumConfigs(), Records: s.tracker.NumRecords()}, snap.ID)
		},
	}
}

// pruneResult reports how many snapshots were deleted.
type pruneResult struct {
	Deleted int64 `json:"deleted"`
	Kept    int   `json:"kept"`
}

func (r pruneResult) String() string {
	return fmt.Sprintf("Deleted %d snapshots, keeping the newest %d", r.Deleted, r.Kept)
}

// NewPruneCommand creates the prune command.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old snapshots",
		Long: `Delete all but the newest snapshots. The newest snapshot is always kept.
Without --keep, keep_snapshots from the config is used.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if keep <= 0 {
				keep = s.cfg.KeepSnapshots
			}
			n, err := s.snaps.Prune(cmd.Context(), keep)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to prune snapshots", err)
			}
			return newFormatter(rootOpts, cmd).Success(pruneResult{Deleted: n, Kept: keep})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "number of snapshots to keep")

	return cmd
}
