package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/engine"
	"github.com/codescope/codescope/internal/store"
)

func newOutlineCmd() *cobra.Command {
	var (
		root  string
		file  string
		level int
	)

	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Print the block tree codescope derived for indexed files",
		Long: `outline prints, for every indexed file matching --file (a glob
against repo-relative paths, or every file if omitted), the hierarchical
block structure a query's scorer propagates evidence through.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			abs, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			eng, err := engine.Open(abs)
			if err != nil {
				return err
			}
			defer eng.Close()

			paths, err := store.ListFilePaths(ctx, eng.Store.DB())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			matched := 0
			for _, p := range paths {
				if file != "" {
					ok, err := filepath.Match(file, p)
					if err != nil {
						return fmt.Errorf("bad --file pattern: %w", err)
					}
					if !ok {
						continue
					}
				}

				f, err := store.GetFileByPath(ctx, eng.Store.DB(), p)
				if err != nil {
					return err
				}
				if f == nil {
					continue
				}
				blocks, err := store.BlocksByFile(ctx, eng.Store.DB(), f.ID)
				if err != nil {
					return err
				}
				if len(blocks) == 0 {
					continue
				}

				matched++
				fmt.Fprintln(w, p)
				printBlockTree(ctx, eng, w, blocks, level)
			}

			if matched == 0 {
				return noResultsErr()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "workspace root to query")
	cmd.Flags().StringVar(&file, "file", "", "glob restricting which indexed file(s) to outline")
	cmd.Flags().IntVar(&level, "level", 0, "maximum block depth to print (0 = all)")

	return cmd
}

// printBlockTree prints one file's blocks in storage order (parents
// before children), indented by their level, each annotated with its
// cached first line as a readable header.
func printBlockTree(ctx context.Context, eng *engine.Engine, w io.Writer, blocks []store.Block, maxLevel int) {
	for _, b := range blocks {
		if maxLevel > 0 && b.Level > maxLevel {
			continue
		}
		header, ok, err := store.GetLine(ctx, eng.Store.DB(), b.FileID, b.LineStart)
		if err != nil || !ok {
			header = ""
		}
		indent := strings.Repeat("  ", b.Level)
		fmt.Fprintf(w, "%s%s:%d-%d  %s\n", indent, b.Kind, b.LineStart, b.LineEnd, strings.TrimSpace(header))
	}
}
