package store

import (
	"context"
	"testing"

	"github.com/codescope/codescope/internal/block"
	"github.com/stretchr/testify/require"
)

func TestReindexBuildsPostingsBlocksAndLineCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lines := []string{
		"package main",
		"",
		"func main() {",
		"\tretryCount := 1",
		"}",
	}
	in := ReindexInput{
		Path:        "main.go",
		MTime:       1,
		Size:        int64(len(lines)),
		ContentHash: "h1",
		IndexedAt:   1,
		FileType:    block.FileTypeCode,
		Lines:       lines,
		TabWidth:    8,
		IndentWidth: 4,
		MaxTokenLen: 128,
	}

	stats, err := Reindex(ctx, s.DB(), in)
	require.NoError(t, err)
	require.NotZero(t, stats.FileID)
	require.Equal(t, len(lines), stats.LineCount)
	require.NotZero(t, stats.BlockCount)

	tok, err := GetTokenByText(ctx, s.DB(), "retryCount")
	require.NoError(t, err)
	require.NotNil(t, tok)
	require.Equal(t, 1, tok.DF)

	postings, err := PostingsByToken(ctx, s.DB(), tok.ID)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.Equal(t, []int32{4}, postings[0].Lines)

	text, ok, err := GetLine(ctx, s.DB(), stats.FileID, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "package main", text)

	blob, err := GetBlockLineMap(ctx, s.DB(), stats.FileID)
	require.NoError(t, err)
	ids, err := DecodeBlockLineMap(blob)
	require.NoError(t, err)
	require.Len(t, ids, len(lines))
}

func TestReindexRebuildsOnSecondPass(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := ReindexInput{
		Path: "a.go", MTime: 1, Size: 1, ContentHash: "h1", IndexedAt: 1,
		FileType: block.FileTypeCode, Lines: []string{"x := 1"}, TabWidth: 8, IndentWidth: 4, MaxTokenLen: 128,
	}
	stats1, err := Reindex(ctx, s.DB(), first)
	require.NoError(t, err)

	second := first
	second.Lines = []string{"y := 2"}
	second.ContentHash = "h2"
	stats2, err := Reindex(ctx, s.DB(), second)
	require.NoError(t, err)
	require.Equal(t, stats1.FileID, stats2.FileID)

	_, ok, err := GetLine(ctx, s.DB(), stats2.FileID, 1)
	require.NoError(t, err)
	require.True(t, ok)

	xTok, err := GetTokenByText(ctx, s.DB(), "x")
	require.NoError(t, err)
	require.NotNil(t, xTok)
	require.Equal(t, 0, xTok.DF, "token only present in the old version must drop to DF 0")
}

func TestReindexMarkdownProse(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := ReindexInput{
		Path: "doc.md", MTime: 1, Size: 1, ContentHash: "h", IndexedAt: 1,
		FileType: block.FileTypeMarkdown,
		Lines:    []string{"# Title", "", "Some words here"},
		MaxTokenLen: 128,
	}
	stats, err := Reindex(ctx, s.DB(), in)
	require.NoError(t, err)
	require.Equal(t, 3, stats.LineCount)

	tok, err := GetTokenByText(ctx, s.DB(), "words")
	require.NoError(t, err)
	require.NotNil(t, tok)
	require.Equal(t, "word", tok.Kind)
}
