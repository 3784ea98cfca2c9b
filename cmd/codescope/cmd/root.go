// Package cmd provides the CLI commands for codescope.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	cserrors "github.com/codescope/codescope/internal/errors"
	"github.com/codescope/codescope/internal/logging"
	"github.com/codescope/codescope/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// exitCoder is implemented by errors that must propagate a specific
// process exit code instead of the default 1, e.g. a query that ran
// cleanly but matched nothing.
type exitCoder interface {
	ExitCode() int
}

// exitError wraps an exit code that isn't itself a failure worth
// printing as "Error: ...".
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }
func (e *exitError) ExitCode() int { return e.code }

// noResultsErr is returned by query, terms, outline, and keywords when
// the command legitimately ran but produced nothing, distinct from a
// failure.
func noResultsErr() error { return &exitError{code: 2} }

// NewRootCmd creates the root command for the codescope CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codescope",
		Short: "Local-first intent-first code and text search",
		Long: `codescope indexes a workspace's source and text files, trains a
co-occurrence model over the token graph it finds, and ranks query
results by expanded term evidence and block-tree clustering.

Everything runs locally against a per-workspace SQLite store and a set
of on-disk ANN indexes; there is no server, daemon, or network call.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("codescope version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "write debug logs to ~/.codescope/logs/")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newTrainCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newTermsCmd())
	cmd.AddCommand(newOutlineCmd())
	cmd.AddCommand(newMarkCmd())
	cmd.AddCommand(newKeywordsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func formatErr(err error) string {
	if _, ok := err.(*cserrors.Error); ok {
		out := cserrors.FormatForCLI(err)
		if len(out) > 0 && out[len(out)-1] == '\n' {
			out = out[:len(out)-1]
		}
		return out
	}
	return "Error: " + err.Error()
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command, printing any failure to stderr. The
// returned error, if non-nil, should be passed to ExitCode to determine
// the process exit status.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err == nil {
		return nil
	}
	if _, ok := err.(exitCoder); !ok {
		fmt.Fprintln(cmd.ErrOrStderr(), formatErr(err))
	}
	return err
}

// ExitCode maps an error returned by Execute to a process exit status:
// 0 on success, 2 for a query that ran but matched nothing, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	return 1
}
