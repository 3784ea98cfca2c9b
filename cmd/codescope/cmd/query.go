package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/engine"
	"github.com/codescope/codescope/internal/expand"
	"github.com/codescope/codescope/internal/output"
	"github.com/codescope/codescope/internal/resultid"
	"github.com/codescope/codescope/internal/scorer"
	"github.com/codescope/codescope/internal/snippet"
	"github.com/codescope/codescope/internal/store"
)

func newQueryCmd() *cobra.Command {
	var (
		format      string
		expandMode  string
		clusterMode string
		topK        int
		explain     bool
		rawVectors  bool
		interactive bool
		noColor     bool
		root        string
	)

	cmd := &cobra.Command{
		Use:   "query TEXT",
		Short: "Search an indexed workspace",
		Long: `query expands each distinct term in TEXT against the trained
co-occurrence neighbors, scores every candidate block by propagating
weighted evidence up the block tree, and prints the top-ranked results.

Exit status is 0 when results are returned, 2 when the query ran
cleanly but matched nothing, and 1 on any other error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := args[0]

			abs, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			eng, err := engine.Open(abs)
			if err != nil {
				return err
			}
			defer eng.Close()

			cfg := eng.Config.Query
			expOpts := expand.Options{
				Mode:          expand.ParseMode(expandMode),
				TopM:          cfg.ExpansionTopK,
				MinSimilarity: cfg.MinSimilarity,
				MaxDFPercent:  cfg.MaxDFPercent,
			}
			expansions, err := expand.Expand(ctx, eng.Store.DB(), query, expOpts)
			if err != nil {
				return err
			}

			scoreOpts := scorer.Options{
				TopK:          firstPositive(topK, cfg.TopK),
				MaxCandidates: cfg.MaxCandidates,
				ClusterMode:   scorer.ClusterMode(firstNonEmpty(clusterMode, cfg.ClusterMode)),
				RawVectors:    rawVectors,
			}
			results, err := scorer.Score(ctx, eng.Store.DB(), expansions, scoreOpts)
			if err != nil {
				return err
			}

			rendered, err := renderResults(ctx, eng, results, explain)
			if err != nil {
				return err
			}

			resultFormat := output.ParseFormat(format)
			if interactive && len(rendered) > 0 && resultFormat == output.FormatHuman && isatty.IsTerminal(os.Stdout.Fd()) {
				return output.RunInteractive(rendered, noColor)
			}

			w := cmd.OutOrStdout()
			switch resultFormat {
			case output.FormatGrep:
				output.WriteGrep(w, rendered)
			case output.FormatJSON:
				if err := output.WriteJSON(w, rendered); err != nil {
					return err
				}
			case output.FormatJSONL:
				if err := output.WriteJSONL(w, rendered); err != nil {
					return err
				}
			default:
				output.WriteHuman(w, rendered, noColor)
			}

			if len(rendered) == 0 {
				return noResultsErr()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "workspace root to query")
	cmd.Flags().StringVar(&format, "format", "human", "output format: human, grep, json, jsonl")
	cmd.Flags().StringVar(&expandMode, "expand", "all", "expansion mode: none, line, block, all")
	cmd.Flags().StringVar(&clusterMode, "cluster-mode", "", "clustering signal: centroid or concentration (default from config)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of results to return (default from config)")
	cmd.Flags().BoolVar(&explain, "explain", false, "include per-hit scoring detail in the output")
	cmd.Flags().BoolVar(&rawVectors, "raw-vectors", false, "score term evidence unweighted by expansion similarity")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "browse results in a scrollable terminal UI (only when stdout is a TTY and --format is human)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable styled output")

	return cmd
}

// renderResults carves a snippet, resolves a stable result id, and
// optionally attaches explain detail for every scored block.
func renderResults(ctx context.Context, eng *engine.Engine, results []scorer.Result, explain bool) ([]output.Result, error) {
	snipOpts := snippet.DefaultOptions()
	out := make([]output.Result, 0, len(results))

	for _, r := range results {
		file, err := store.GetFileByID(ctx, eng.Store.DB(), r.FileID)
		if err != nil {
			return nil, err
		}
		if file == nil {
			continue
		}

		hitLines := make([]int, 0, r.TotalHitLines)
		for _, h := range r.Hits {
			for _, ln := range h.Lines {
				hitLines = append(hitLines, int(ln))
			}
		}

		carved := snippet.Carve(eng.Root, file.Path, r.LineStart, r.LineEnd, hitLines, snipOpts)

		var header string
		if carved.SnippetStart > r.LineStart {
			if text, ok, err := store.GetLine(ctx, eng.Store.DB(), r.FileID, r.LineStart); err == nil && ok {
				header = text
			}
		}

		res := output.Result{
			ResultID:     resultid.Of(file.Path, r.LineStart, r.LineEnd, file.ContentHash),
			FilePath:     file.Path,
			FileType:     file.FileType,
			BlockID:      r.BlockID,
			LineStart:    r.LineStart,
			LineEnd:      r.LineEnd,
			Score:        r.Score,
			HeaderText:   header,
			Snippet:      carved.Content,
			SnippetStart: carved.SnippetStart,
			Ancestry:     r.Ancestry,
			Warn:         carved.Warn,
		}
		if explain {
			res.Hits = make([]output.Hit, len(r.Hits))
			for i, h := range r.Hits {
				res.Hits[i] = output.Hit{
					ExpandedToken:    h.ExpandedToken,
					OriginatingQuery: h.OriginatingQuery,
					Similarity:       h.Similarity,
					Lines:            h.Lines,
					Contribution:     h.Contribution,
				}
			}
		}
		out = append(out, res)
	}
	return out, nil
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
