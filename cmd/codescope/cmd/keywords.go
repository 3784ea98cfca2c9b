package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/engine"
	"github.com/codescope/codescope/internal/keywords"
	"github.com/codescope/codescope/internal/output"
)

func newKeywordsCmd() *cobra.Command {
	var (
		root     string
		top      int
		minCount int
		minRatio float64
		apply    bool
	)

	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Scan for tokens that cluster in file headers and footers",
		Long: `keywords scans the indexed corpus for tokens whose postings
disproportionately fall in the first or last few lines of their files —
license boilerplate, shebangs, copyright notices — and prints them
ranked by header/footer ratio.

Pass --apply to flag the top N candidates with the keyword kind on
their token row. The flag is advisory only: it does not change a
token's document frequency or its weight in scoring.`,
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

			opts := keywords.DefaultOptions()
			if minCount > 0 {
				opts.MinCount = minCount
			}
			if minRatio > 0 {
				opts.MinRatio = minRatio
			}

			candidates, err := keywords.Scan(ctx, eng.Store.DB(), opts)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				return noResultsErr()
			}

			shown := candidates
			if top > 0 && top < len(shown) {
				shown = shown[:top]
			}

			out := output.New(cmd.OutOrStdout())
			for _, c := range shown {
				out.Statusf("•", "%-28s df=%-5d header/footer=%-5d ratio=%.3f", c.Text, c.DF, c.HeaderFooter, c.Ratio)
			}

			if apply {
				if err := eng.Lock.Lock(); err != nil {
					return err
				}
				defer eng.Lock.Unlock()

				n, err := keywords.Apply(ctx, eng.Store.DB(), candidates, top)
				if err != nil {
					return err
				}
				out.Statusf("✓", "flagged %d tokens as keyword", n)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "workspace root to query")
	cmd.Flags().IntVar(&top, "top", 0, "limit to the top N candidates (0 = all)")
	cmd.Flags().IntVar(&minCount, "min-count", 0, "minimum document frequency to consider a token (default from keywords package)")
	cmd.Flags().Float64Var(&minRatio, "min-ratio", 0, "minimum header/footer ratio to consider a token (default from keywords package)")
	cmd.Flags().BoolVar(&apply, "apply", false, "flag the shown candidates with the keyword kind")

	return cmd
}
