package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/block"
	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/cooc"
	"github.com/codescope/codescope/internal/store"
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

func TestRollupWritesLeafAndInternalCentroids(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	fileID := reindexFile(t, db, "a.go", []string{
		"package main",
		"",
		"func retryRequest() {",
		"\tretryCount := 1",
		"\tretryDelay := 2",
		"}",
		"",
		"func retryOther() {",
		"\tretryCount := 3",
		"\tretryDelay := 4",
		"}",
	})

	tr := cooc.New(db.DB(), config.Default().Train, nil)
	_, err := tr.TrainLine(ctx)
	require.NoError(t, err)

	stats, err := Rollup(ctx, db.DB(), fileID, store.ModelLine)
	require.NoError(t, err)
	require.Greater(t, stats.BlocksWritten, 0)

	blocks, err := store.BlocksByFile(ctx, db.DB(), fileID)
	require.NoError(t, err)

	var root store.Block
	for _, b := range blocks {
		if b.ParentID == 0 {
			root = b
			break
		}
	}
	require.NotZero(t, root.ID)

	blob, ok, err := store.GetBlockCentroid(ctx, db.DB(), root.ID, store.ModelLine)
	require.NoError(t, err)
	if ok {
		v := Dequantize(blob)
		require.Len(t, v, Dims)
	}
}

func TestRollupSkipsBlocksWithNoEligibleTokens(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	fileID := reindexFile(t, db, "empty.go", []string{
		"// just a comment",
		"",
	})

	stats, err := Rollup(ctx, db.DB(), fileID, store.ModelLine)
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Zero(t, stats.BlocksWritten)
}

func TestClampTokenCountRespectsBounds(t *testing.T) {
	require.Equal(t, 8, clampTokenCount(1))
	require.Equal(t, 64, clampTokenCount(1000))
	require.Equal(t, 15, clampTokenCount(50))
}
