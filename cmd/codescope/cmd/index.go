package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/cooc"
	"github.com/codescope/codescope/internal/engine"
	"github.com/codescope/codescope/internal/expand"
	cserrors "github.com/codescope/codescope/internal/errors"
	"github.com/codescope/codescope/internal/indexer"
	"github.com/codescope/codescope/internal/output"
	"github.com/codescope/codescope/internal/store"
	"github.com/codescope/codescope/internal/vector"
	"github.com/codescope/codescope/internal/watcher"
)

func newIndexCmd() *cobra.Command {
	var (
		rebuild bool
		train   bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a workspace for searching",
		Long: `index scans a workspace, tokenizes every eligible file, and builds
the block forest, postings, and token document frequencies the query
pipeline reads from.

Pass --train to also (re)train the co-occurrence models and rebuild the
ANN indexes in the same pass, and --watch to keep indexing incrementally
as files change until interrupted.`,
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

			if rebuild {
				if err := clearWorkspaceData(root); err != nil {
					return err
				}
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

			ix, err := indexer.New(eng.Store.DB(), eng.Root, eng.Config, nil)
			if err != nil {
				return err
			}

			stats, err := ix.Run(ctx)
			if err != nil {
				return err
			}
			printIndexStats(out, stats)

			if train {
				if err := runTrainPass(ctx, eng, out, expand.ModeAll); err != nil {
					return err
				}
			}

			if watch {
				return runWatch(ctx, eng, ix, out, train)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "clear the workspace's index and start fresh")
	cmd.Flags().BoolVar(&train, "train", false, "also train the co-occurrence models and ANN indexes")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep indexing incrementally as files change")

	return cmd
}

func printIndexStats(out *output.Writer, stats *indexer.Stats) {
	out.Statusf("✓", "indexed %d files (%d skipped, %d removed), %d tokens in %s",
		stats.FilesIndexed, stats.FilesSkipped, stats.FilesRemoved, stats.TotalTokens, stats.Elapsed.Round(1e6))
}

// clearWorkspaceData removes a workspace's entire cache directory —
// the store and every ANN index — so the next Open starts from empty.
func clearWorkspaceData(root string) error {
	paths := engine.ResolvePaths(root)
	if err := os.RemoveAll(paths.CacheDir); err != nil {
		return cserrors.Store("clear workspace cache failed", err)
	}
	return nil
}

// runTrainPass retrains the co-occurrence model(s) selected by mode over
// the full corpus, rolls up block centroids when the scope model is
// retrained, and repopulates the ANN indexes touched by whichever models
// were retrained, saving them to disk. mode reuses expand.Mode since it
// already names this line/block/all choice; ModeNone trains both.
func runTrainPass(ctx context.Context, eng *engine.Engine, out *output.Writer, mode expand.Mode) error {
	if mode == expand.ModeNone {
		mode = expand.ModeAll
	}
	tr := cooc.New(eng.Store.DB(), eng.Config.Train, nil)

	trainLine := mode == expand.ModeLine || mode == expand.ModeAll
	trainScope := mode == expand.ModeBlock || mode == expand.ModeAll

	if trainLine {
		lineStats, err := tr.TrainLine(ctx)
		if err != nil {
			return err
		}
		out.Statusf("∑", "line model: %d cells, %d eligible tokens, %d neighbor rows",
			lineStats.CellsWritten, lineStats.EligibleTokens, lineStats.NeighborsWritten)
		if err := populateTokenANN(ctx, eng, store.ModelLine, eng.TokenLineANN); err != nil {
			return err
		}
	}

	if trainScope {
		scopeStats, err := tr.TrainScope(ctx)
		if err != nil {
			return err
		}
		out.Statusf("∑", "scope model: %d cells, %d eligible tokens, %d neighbor rows",
			scopeStats.CellsWritten, scopeStats.EligibleTokens, scopeStats.NeighborsWritten)

		fileIDs, err := store.ListFileIDs(ctx, eng.Store.DB())
		if err != nil {
			return err
		}
		for _, fileID := range fileIDs {
			if ctx.Err() != nil {
				return cserrors.Canceled()
			}
			if _, err := vector.Rollup(ctx, eng.Store.DB(), fileID, store.ModelScope); err != nil {
				return err
			}
		}
		if err := populateTokenANN(ctx, eng, store.ModelScope, eng.TokenBlockANN); err != nil {
			return err
		}
		if err := populateCentroidANN(ctx, eng, fileIDs); err != nil {
			return err
		}
	}

	if err := eng.Save(); err != nil {
		return err
	}
	out.Status("✓", "trained co-occurrence models and rebuilt ANN indexes")
	return nil
}

// populateTokenANN rebuilds one model's token-vector ANN index from the
// co-occurrence cells just (re)trained for it.
func populateTokenANN(ctx context.Context, eng *engine.Engine, modelID int, idx *vector.Index) error {
	tokens, err := store.AllTokens(ctx, eng.Store.DB())
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		if ctx.Err() != nil {
			return cserrors.Canceled()
		}
		cells, err := store.CellsForToken(ctx, eng.Store.DB(), modelID, tok.ID)
		if err != nil {
			return err
		}
		if len(cells) == 0 {
			continue
		}
		sparse := make(map[int64]float64, len(cells))
		for _, c := range cells {
			sparse[c.ContextID] = float64(c.Count)
		}
		idx.Add(tok.ID, vector.Project(sparse))
	}
	return nil
}

// populateCentroidANN rebuilds the block-centroid ANN index by reading
// back the scope-model centroids vector.Rollup just stored.
func populateCentroidANN(ctx context.Context, eng *engine.Engine, fileIDs []int64) error {
	for _, fileID := range fileIDs {
		blocks, err := store.BlocksByFile(ctx, eng.Store.DB(), fileID)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			blob, ok, err := store.GetBlockCentroid(ctx, eng.Store.DB(), b.ID, store.ModelScope)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			eng.CentroidANN.Add(b.ID, vector.Dequantize(blob))
		}
	}
	return nil
}

// runWatch keeps the workspace's index current as files change until ctx
// is canceled, reindexing only the directories a batch of events touched
// and, when train is set, retraining after every batch.
func runWatch(ctx context.Context, eng *engine.Engine, ix *indexer.Indexer, out *output.Writer, train bool) error {
	opts := watcher.DefaultOptions().WithDefaults()
	w, err := watcher.NewHybridWatcher(opts)
	if err != nil {
		return err
	}
	// Start blocks until ctx is done, so it runs beside the event loop.
	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, eng.Root) }()
	defer w.Stop()

	out.Statusf("→", "watching %s for changes (%s watcher)", eng.Root, w.WatcherType())

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-startErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		case events, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := reindexChangedDirs(ctx, ix, events, out); err != nil {
				return err
			}
			if train {
				if err := runTrainPass(ctx, eng, out, expand.ModeAll); err != nil {
					return err
				}
			}
		case werr, ok := <-w.Errors():
			if !ok {
				continue
			}
			out.Warningf("watch error: %v", werr)
		}
	}
}

// reindexChangedDirs reindexes the distinct subtrees a batch of file
// events touched, deduplicating so a burst of edits under one directory
// triggers a single RunSubtree call.
func reindexChangedDirs(ctx context.Context, ix *indexer.Indexer, events []watcher.FileEvent, out *output.Writer) error {
	dirs := make(map[string]bool)
	for _, e := range events {
		dir := filepath.Dir(e.Path)
		if dir == "." {
			dir = ""
		}
		dirs[dir] = true
	}
	for dir := range dirs {
		stats, err := ix.RunSubtree(ctx, dir)
		if err != nil {
			return err
		}
		label := dir
		if label == "" {
			label = "."
		}
		out.Statusf("↻", "reindexed %s: %d files updated, %d removed", label, stats.FilesIndexed, stats.FilesRemoved)
	}
	return nil
}
