package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/readtrack/internal/ir"
	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/source"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sources",
		Short:         "List configured sources",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return newFormatter(rootOpts, cmd).Success(sourceList(s.tracker.AllConfigs()))
		},
	}
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "records",
		Short:         "List read records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			return newFormatter(rootOpts, cmd).Success(recordList(s.tracker.AllRecords()))
		},
	}
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Show search URLs for a keyword",
		Long: `Expand each configured source's search URL template for a keyword.

Sources without a search URL are skipped.

Example:
  readtrack search "lost tome"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			hits := searchList{}
			for _, v := range s.tracker.AllConfigs() {
				cfg, ok := progress.FromValue[source.Config](v)
				if !ok {
					continue
				}
				if u := cfg.SearchFor(args[0]); u != "" {
					hits = append(hits, searchHit{Source: cfg.Name, URL: u})
				}
			}
			return newFormatter(rootOpts, cmd).Success(hits)
		},
	}
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Record string
}

// addResult describes an admitted record.
type addResult struct {
	Action    string `json:"action"` // "inserted" | "updated"
	NovelID   string `json:"novelId"`
	SourceURL string `json:"mainPageUrl"`
	// Checksum hashes the record as stored after the merge.
	Checksum string `json:"checksum"`
}

func (r addResult) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Action, r.NovelID, r.SourceURL)
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record reading progress",
		Long: `Record reading progress for one novel.

The record is admitted only if some configured source's main page is a
prefix of its mainPageUrl. A record with the same novelId and mainPageUrl
as an existing one updates that record in place; otherwise it is appended.
readAt is set to the current time when the record omits it.

Exit codes:
  0 - Record admitted
  1 - Record rejected (invalid record or no matching source)
  2 - Command error

Example:
  readtrack add --record '{"novelId":"42","mainPageUrl":"https://www.xbiquge.so/book/42/","chapterId":"7"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Record, "record", "", "record as JSON (required)")
	_ = cmd.MarkFlagRequired("record")

	return cmd
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts.RootOptions, cmd)

	v, err := ir.ParseValue([]byte(opts.Record))
	if err != nil {
		_ = out.Error(ErrCodeBadInput, "invalid --record JSON", err.Error())
		return reportedExit(ExitCommandError, "invalid --record JSON")
	}
	v = progress.StampReadAt(v, opts.now().UnixMilli())

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	novelID, sourceURL := progress.RecordIdentity(v)
	existed := s.tracker.Exists(novelID, sourceURL)
	prev := s.tracker.Serialize()

	if !s.tracker.AdmitRecord(v) {
		_ = out.Error(ErrCodeRejected, "record rejected: invalid record or no configured source matches its url", nil)
		return reportedExit(ExitFailure, "record rejected")
	}

	snap, err := s.save(ctx, "add", prev)
	if err != nil {
		return err
	}

	result := addResult{Action: "inserted", NovelID: novelID, SourceURL: sourceURL}
	result.Checksum, _ = progress.RecordChecksum(s.tracker, novelID, sourceURL)
	if existed {
		result.Action = "updated"
	}
	return out.Saved(result, snap.ID)
}

// existsResult is the answer to an exists query.
type existsResult struct {
	Exists    bool   `json:"exists"`
	NovelID   string `json:"novelId"`
	SourceURL string `json:"mainPageUrl"`
}

func (r existsResult) String() string {
	if r.Exists {
		return "found"
	}
	return "not found"
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <novel-id> <source-url>",
		Short: "Check whether a record exists",
		Long: `Check whether a record with exactly this novel id and source url exists.
No url normalization is applied.

Exit codes:
  0 - Record exists
  1 - Record does not exist
  2 - Command error`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result := existsResult{
				Exists:    s.tracker.Exists(args[0], args[1]),
				NovelID:   args[0],
				SourceURL: args[1],
			}
			if err := newFormatter(rootOpts, cmd).Success(result); err != nil {
				return err
			}
			if !result.Exists {
				return reportedExit(ExitFailure, "record not found")
			}
			return nil
		},
	}
}
