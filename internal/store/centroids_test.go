package store

import (
	"context"
	"testing"

	"github.com/codescope/codescope/internal/block"
	"github.com/stretchr/testify/require"
)

func TestBlockCentroidRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	db := s.DB()

	stats, err := Reindex(ctx, db, ReindexInput{
		Path: "a.go", MTime: 1, Size: 1, ContentHash: "h", IndexedAt: 1,
		FileType: block.FileTypeCode, Lines: []string{"x := 1"}, TabWidth: 8, IndentWidth: 4, MaxTokenLen: 128,
	})
	require.NoError(t, err)

	blocks, err := BlocksByFile(ctx, db, stats.FileID)
	require.NoError(t, err)
	require.NotEmpty(t, blocks)

	vector := []byte{0, 1, 0, 2, 0, 3}
	require.NoError(t, UpsertBlockCentroid(ctx, db, blocks[0].ID, ModelScope, vector))

	got, ok, err := GetBlockCentroid(ctx, db, blocks[0].ID, ModelScope)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, vector, got)

	_, ok, err = GetBlockCentroid(ctx, db, blocks[0].ID, ModelLine)
	require.NoError(t, err)
	require.False(t, ok)
}
