package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/engine"
	"github.com/codescope/codescope/internal/output"
	"github.com/codescope/codescope/internal/store"
)

func newMarkCmd() *cobra.Command {
	var (
		root      string
		useful    bool
		notUseful bool
		promising bool
		note      string
	)

	cmd := &cobra.Command{
		Use:   "mark RESULT_ID",
		Short: "Record feedback on a past query result",
		Long: `mark records a judgment against a result id printed by a previous
query. Feedback is stored for later review; it does not feed back into
scoring.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			resultID := args[0]

			kind, err := feedbackKind(useful, notUseful, promising)
			if err != nil {
				return err
			}

			abs, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			eng, err := engine.Open(abs)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.Lock.Lock(); err != nil {
				return err
			}
			defer eng.Lock.Unlock()

			event := &store.FeedbackEvent{
				ResultID:  resultID,
				Kind:      kind,
				Note:      note,
				CreatedAt: time.Now().Unix(),
			}
			if err := store.InsertFeedbackEvent(ctx, eng.Store.DB(), event); err != nil {
				return err
			}
			if err := store.UpsertFeedbackStats(ctx, eng.Store.DB(), kind); err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("✓", "marked %s as %s", resultID, kind)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "workspace root")
	cmd.Flags().BoolVar(&useful, "useful", false, "mark the result useful")
	cmd.Flags().BoolVar(&notUseful, "not-useful", false, "mark the result not useful")
	cmd.Flags().BoolVar(&promising, "promising", false, "mark the result promising but unconfirmed")
	cmd.Flags().StringVar(&note, "note", "", "optional free-text note")

	return cmd
}

func feedbackKind(useful, notUseful, promising bool) (string, error) {
	kind := ""
	count := 0
	if useful {
		count++
		kind = "useful"
	}
	if notUseful {
		count++
		kind = "not_useful"
	}
	if promising {
		count++
		kind = "promising"
	}
	if count != 1 {
		return "", fmt.Errorf("exactly one of --useful, --not-useful, --promising is required")
	}
	return kind, nil
}
