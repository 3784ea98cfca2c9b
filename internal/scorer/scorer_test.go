package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/block"
	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/cooc"
	"github.com/codescope/codescope/internal/expand"
	"github.com/codescope/codescope/internal/store"
	"github.com/codescope/codescope/internal/vector"
)

func testDB(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func reindexFile(t *testing.T, db *store.Store, path string, lines []string) int64 {
	t.Helper()
	_, err := store.Reindex(context.Background(), db.DB(), store.ReindexInput{
		Path:        path,
		MTime:       1,
		Size:        int64(len(lines)),
		ContentHash: path + "-hash",
		IndexedAt:   1,
		FileType:    block.FileTypeCode,
		Lines:       lines,
		TabWidth:    8,
		IndentWidth: 4,
		MaxTokenLen: 128,
	})
	require.NoError(t, err)

	f, err := store.GetFileByPath(context.Background(), db.DB(), path)
	require.NoError(t, err)
	require.NotNil(t, f)
	return f.ID
}

func identityExpansion(ctx context.Context, t *testing.T, db *store.Store, text string) expand.Expansion {
	t.Helper()
	tok, err := store.GetTokenByText(ctx, db.DB(), text)
	require.NoError(t, err)
	require.NotNil(t, tok, "token %q must already be indexed", text)
	return expand.Expansion{
		QueryToken: text,
		Candidates: []expand.Candidate{{Token: tok.Text, TokenID: tok.ID, Kind: tok.Kind, Similarity: 1.0}},
	}
}

func TestScoreRanksBlockWithTheHitAboveOthers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	reindexFile(t, db, "a.go", []string{
		"package main",
		"",
		"func retryRequest() {",
		"\tretryCount := 1",
		"}",
		"",
		"func unrelated() {",
		"\tx := 1",
		"}",
	})

	results, err := Score(ctx, db.DB(), []expand.Expansion{identityExpansion(ctx, t, db, "retryCount")}, Options{
		TopK: 10, ClusterMode: ClusterConcentration,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	require.Equal(t, "a.go", top.FilePath)
	require.Greater(t, top.Score, 0.0)
	require.Equal(t, 1, top.TotalHitLines)
	require.Len(t, top.Hits, 1)
	require.Equal(t, "retryCount", top.Hits[0].ExpandedToken)
}

func TestScoreFallsBackToConcentrationWithoutTrainedCentroids(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	reindexFile(t, db, "a.go", []string{
		"func retryRequest() {",
		"\tretryCount := 1",
		"\tretryDelay := 2",
		"}",
	})

	results, err := Score(ctx, db.DB(), []expand.Expansion{identityExpansion(ctx, t, db, "retryCount")}, Options{
		TopK: 10, ClusterMode: ClusterCentroid,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	// No block centroids exist yet, so clustering must have fallen back to
	// concentration mode rather than erroring or scoring everything as 0.
	for _, r := range results {
		require.GreaterOrEqual(t, r.Cluster, 0.0)
	}
}

func TestScoreUsesTrainedBlockCentroidWhenAvailable(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	fileID := reindexFile(t, db, "a.go", []string{
		"package main",
		"",
		"func retryRequest() {",
		"\tretryCount := 1",
		"\tretryDelay := 2",
		"}",
	})

	tr := cooc.New(db.DB(), config.Default().Train, nil)
	_, err := tr.TrainScope(ctx)
	require.NoError(t, err)

	stats, err := vector.Rollup(ctx, db.DB(), fileID, store.ModelScope)
	require.NoError(t, err)
	require.Greater(t, stats.BlocksWritten, 0)

	results, err := Score(ctx, db.DB(), []expand.Expansion{identityExpansion(ctx, t, db, "retryCount")}, Options{
		TopK: 10, ClusterMode: ClusterCentroid,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestConcentrationClusterNeedsAtLeastTwoChildrenWithHits(t *testing.T) {
	require.Equal(t, 0.0, concentrationCluster(map[int64]int{1: 5}))
	require.Equal(t, 0.0, concentrationCluster(map[int64]int{1: 0, 2: 0}))

	even := concentrationCluster(map[int64]int{1: 5, 2: 5})
	require.InDelta(t, 0.0, even, 1e-9, "an even split across two children is maximum entropy")

	skewed := concentrationCluster(map[int64]int{1: 9, 2: 1})
	require.Greater(t, skewed, 0.0)
}

func TestSortResultsBreaksTiesDeterministically(t *testing.T) {
	results := []Result{
		{FilePath: "b.go", LineStart: 1, Score: 1.0, DistinctExpandedTokens: 1, TotalHitLines: 1},
		{FilePath: "a.go", LineStart: 5, Score: 1.0, DistinctExpandedTokens: 1, TotalHitLines: 1},
		{FilePath: "a.go", LineStart: 1, Score: 1.0, DistinctExpandedTokens: 1, TotalHitLines: 1},
	}
	sortResults(results)
	require.Equal(t, "a.go", results[0].FilePath)
	require.Equal(t, 1, results[0].LineStart)
	require.Equal(t, "a.go", results[1].FilePath)
	require.Equal(t, 5, results[1].LineStart)
	require.Equal(t, "b.go", results[2].FilePath)
}

func TestDedupeAncestorsKeepsHigherScoringDescendant(t *testing.T) {
	results := []Result{
		{BlockID: 1, FileID: 10, Score: 1.0, Ancestry: []int64{1}},
		{BlockID: 2, FileID: 10, Score: 2.0, Ancestry: []int64{1, 2}},
	}
	out := dedupeAncestors(results)
	require.Len(t, out, 1)
	require.Equal(t, int64(2), out[0].BlockID)
}

func TestDedupeAncestorsKeepsAncestorWhenItScoresHigher(t *testing.T) {
	results := []Result{
		{BlockID: 1, FileID: 10, Score: 3.0, Ancestry: []int64{1}},
		{BlockID: 2, FileID: 10, Score: 2.0, Ancestry: []int64{1, 2}},
	}
	out := dedupeAncestors(results)
	require.Len(t, out, 1)
	require.Equal(t, int64(1), out[0].BlockID)
}

func TestDedupeAncestorsLeavesUnrelatedBlocksAlone(t *testing.T) {
	results := []Result{
		{BlockID: 1, FileID: 10, Score: 1.0, Ancestry: []int64{1}},
		{BlockID: 2, FileID: 11, Score: 2.0, Ancestry: []int64{2}},
	}
	out := dedupeAncestors(results)
	require.Len(t, out, 2)
}

func TestIsAncestorChecksMembership(t *testing.T) {
	require.True(t, isAncestor([]int64{1, 2, 3}, 2))
	require.False(t, isAncestor([]int64{1, 2, 3}, 9))
}
