package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/engine"
	"github.com/codescope/codescope/internal/expand"
	"github.com/codescope/codescope/internal/output"
)

func newTrainCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "train [path]",
		Short: "Train the co-occurrence models over an already-indexed workspace",
		Long: `train rebuilds the line and/or scope co-occurrence models over a
workspace's existing index, rolls up block centroids, and rebuilds the
token and centroid ANN indexes from the result.

Run index first — train has nothing to learn from an empty store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			root, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			mode := expand.ParseMode(model)
			if mode == expand.ModeNone && model != "" {
				return exitErrInvalidModel(model)
			}

			eng, err := engine.Open(root)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Lock.Lock(); err != nil {
				return err
			}
			defer eng.Lock.Unlock()

			out := output.New(cmd.OutOrStdout())
			return runTrainPass(ctx, eng, out, mode)
		},
	}

	cmd.Flags().StringVar(&model, "model", "all", "which model to train: line, block, or all")

	return cmd
}

func exitErrInvalidModel(got string) error {
	return fmt.Errorf("--model must be one of line, block, all (got %q)", got)
}
