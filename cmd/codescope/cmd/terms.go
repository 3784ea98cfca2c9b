package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/engine"
	"github.com/codescope/codescope/internal/expand"
	"github.com/codescope/codescope/internal/output"
	"github.com/codescope/codescope/internal/store"
	"github.com/codescope/codescope/internal/vector"
)

func newTermsCmd() *cobra.Command {
	var (
		root string
		mode string
		topK int
		ann  bool
	)

	cmd := &cobra.Command{
		Use:   "terms TOKEN",
		Short: "Show a token's trained co-occurrence neighbors",
		Long: `terms looks up a token's exact neighbor list from the trained
co-occurrence model(s) and prints it ranked by similarity.

Pass --ann to supplement the exact neighbor rows with an approximate
search over the same model's token vector index, useful once the
trained neighbor list has gone stale relative to a newer --train pass.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := args[0]

			abs, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			eng, err := engine.Open(abs)
			if err != nil {
				return err
			}
			defer eng.Close()

			tok, err := store.GetTokenByText(ctx, eng.Store.DB(), text)
			if err != nil {
				return err
			}
			if tok == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "no token %q in the index\n", text)
				return noResultsErr()
			}

			m := expand.ParseMode(mode)
			if m == expand.ModeNone {
				m = expand.ModeAll
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("•", "%s (kind %s, df %d)", tok.Text, tok.Kind, tok.DF)

			printed := 0
			if m == expand.ModeLine || m == expand.ModeAll {
				printed += printNeighbors(ctx, eng, out, "line", store.ModelLine, tok.ID, topK, ann, eng.TokenLineANN)
			}
			if m == expand.ModeBlock || m == expand.ModeAll {
				printed += printNeighbors(ctx, eng, out, "scope", store.ModelScope, tok.ID, topK, ann, eng.TokenBlockANN)
			}

			if printed == 0 {
				return noResultsErr()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "workspace root to query")
	cmd.Flags().StringVar(&mode, "model", "all", "which model's neighbors to show: line, block, or all")
	cmd.Flags().IntVar(&topK, "top-k", 10, "maximum neighbors to print per model")
	cmd.Flags().BoolVar(&ann, "ann", false, "also search the model's ANN index for additional candidates")

	return cmd
}

func printNeighbors(ctx context.Context, eng *engine.Engine, out *output.Writer, label string, modelID int, tokenID int64, topK int, ann bool, idx *vector.Index) int {
	neighbors, err := store.NeighborsOf(ctx, eng.Store.DB(), modelID, tokenID)
	if err != nil {
		out.Warningf("%s neighbors: %v", label, err)
		return 0
	}
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}

	seen := make(map[int64]bool, len(neighbors))
	count := 0
	for _, n := range neighbors {
		nt, err := store.GetTokenByID(ctx, eng.Store.DB(), n.NeighborID)
		if err != nil || nt == nil {
			continue
		}
		seen[n.NeighborID] = true
		out.Statusf("  ", "[%s] %-24s %.3f", label, nt.Text, float64(n.Similarity)/65535.0)
		count++
	}

	if !ann || idx == nil {
		return count
	}
	vec, ok := idx.Get(tokenID)
	if !ok {
		return count
	}
	for _, cand := range idx.Search(vec, topK+1) {
		if cand.ID == tokenID || seen[cand.ID] {
			continue
		}
		nt, err := store.GetTokenByID(ctx, eng.Store.DB(), cand.ID)
		if err != nil || nt == nil {
			continue
		}
		out.Statusf("  ", "[%s:ann] %-20s %.3f", label, nt.Text, 1.0-float64(cand.Distance))
		count++
	}
	return count
}
