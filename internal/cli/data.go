package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/readtrack/internal/catalog"
	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/source"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Sources string
	Force   bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the progress database",
		Long: `Create the progress database and write its first snapshot.

Without --sources the tracker starts with the built-in default source. With
--sources the source list is read from a catalog file (.yaml, .yml, .toml,
.json or .cue). An existing database is left alone unless --force is given,
which replaces all sources and discards every record.

Examples:
  readtrack init
  readtrack init --sources sources.yaml
  readtrack init --sources sources.cue --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sources, "sources", "", "source catalog file")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "reinitialize an existing database")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.fresh && !opts.Force {
		_ = out.Error(ErrCodeInitialized, "database already initialized (use --force to reset)",
			map[string]string{"db": s.cfg.DBPath})
		return reportedExit(ExitCommandError, "database already initialized")
	}

	buf := progress.EncodeSources([]source.Config{source.Default()})
	if opts.Sources != "" {
		configs, err := catalog.LoadFile(opts.Sources)
		if err != nil {
			_ = out.Error(ErrCodeCatalog, "failed to load source catalog", err.Error())
			return reportedExit(ExitCommandError, "failed to load source catalog")
		}
		out.VerboseLog("Loaded %d sources from %s", len(configs), opts.Sources)
		buf = catalog.Buffer(configs)
	}

	prev := s.tracker.Serialize()
	s.tracker.ReplaceAll(buf)
	snap, err := s.save(ctx, "init", prev)
	if err != nil {
		return err
	}
	return out.Saved(summary{Sources: s.tracker.NumConfigs(), Records: s.tracker.NumRecords()}, snap.ID)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all progress with a serialized buffer",
		Long: `Replace all sources and records with the contents of a buffer file.

The file is the JSON document written by export. Use "-" to read standard
input. A file that cannot be decoded resets the tracker to the default
source with no records, exactly as loading a corrupt buffer does.

Examples:
  readtrack import backup.json
  cat backup.json | readtrack import -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts, cmd)

	var (
		buf []byte
		err error
	)
	if path == "-" {
		buf, err = io.ReadAll(cmd.InOrStdin())
	} else {
		buf, err = os.ReadFile(path)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read buffer", err)
	}

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	prev := s.tracker.Serialize()
	s.tracker.ReplaceAll(buf)
	snap, err := s.save(ctx, "import", prev)
	if err != nil {
		return err
	}
	return out.Saved(summary{Sources: s.tracker.NumConfigs(), Records: s.tracker.NumRecords()}, snap.ID)
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the serialized buffer",
		Long: `Write the current buffer, exactly as it is persisted, to standard output
or to a file. The output can be read back with import.

Examples:
  readtrack export
  readtrack export --out backup.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	buf := s.tracker.Serialize()
	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(buf)
		return err
	}

	if err := os.WriteFile(opts.Output, buf, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write buffer", err)
	}
	return newFormatter(opts.RootOptions, cmd).Success(
		fmt.Sprintf("Wrote %d bytes to %s", len(buf), opts.Output))
}
