package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/readtrack/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve progress over HTTP",
		Long: `Serve the tracker over a JSON HTTP API until interrupted.

Every change made through the API is saved as a snapshot.

Examples:
  readtrack serve
  readtrack serve --listen 0.0.0.0:8787`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if listen == "" {
				listen = s.cfg.Listen
			}
			srv := server.New(s.tracker, s.snaps,
				server.WithLogger(s.logger),
				server.WithClock(rootOpts.Now),
				server.WithKeep(s.cfg.KeepSnapshots),
			)
			if err := srv.ListenAndServe(ctx, listen); err != nil {
				return WrapExitError(ExitCommandError, "server failed", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")

	return cmd
}
