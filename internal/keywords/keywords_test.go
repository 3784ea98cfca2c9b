package keywords

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/block"
	"github.com/codescope/codescope/internal/store"
)

func testDB(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func reindexFile(t *testing.T, db *store.Store, path string, lines []string) {
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
}

func TestScanFlagsTokenConfinedToHeaders(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		reindexFile(t, db, string(rune('a'+i))+".go", []string{
			"// copyright acme corp",
			"package main",
			"",
			"func run() { x := 1; _ = x }",
			"",
		})
	}

	candidates, err := Scan(ctx, db.DB(), Options{WindowLines: 1, MinRatio: 0.5, MinCount: 5})
	require.NoError(t, err)

	var found bool
	for _, c := range candidates {
		if c.Text == "copyright" {
			found = true
			require.Equal(t, 1.0, c.Ratio)
		}
	}
	require.True(t, found, "expected 'copyright' to be flagged as header-confined")

	for _, c := range candidates {
		require.NotEqual(t, "run", c.Text, "'run' appears in the body, not the header/footer window")
	}
}

func TestScanSkipsTokensBelowMinCount(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	reindexFile(t, db, "solo.go", []string{"// rare_header_word", "package main"})

	candidates, err := Scan(ctx, db.DB(), Options{WindowLines: 1, MinRatio: 0.1, MinCount: 5})
	require.NoError(t, err)

	for _, c := range candidates {
		require.NotEqual(t, "rare_header_word", c.Text)
	}
}

func TestApplyMarksOnlyRequestedCount(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		reindexFile(t, db, string(rune('a'+i))+".go", []string{
			"// copyright acme corp",
			"package main",
		})
	}

	candidates, err := Scan(ctx, db.DB(), Options{WindowLines: 1, MinRatio: 0.5, MinCount: 5})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	marked, err := Apply(ctx, db.DB(), candidates, 1)
	require.NoError(t, err)
	require.Equal(t, 1, marked)

	tok, err := store.GetTokenByText(ctx, db.DB(), candidates[0].Text)
	require.NoError(t, err)
	require.Equal(t, "keyword", tok.Kind)
}
