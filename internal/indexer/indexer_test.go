package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/store"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newIndexer(t *testing.T, root string) (*Indexer, *store.Store) {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.Default()
	ix, err := New(s.DB(), root, cfg, nil)
	require.NoError(t, err)
	return ix, s
}

func TestRunIndexesNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	writeFile(t, root, "README.md", "# Title\n\nSome words here.\n")

	ix, s := newIndexer(t, root)
	stats, err := ix.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.FilesIndexed)
	require.Equal(t, 0, stats.FilesSkipped)
	require.Greater(t, stats.TotalTokens, 0)

	paths, err := store.ListFilePaths(context.Background(), s.DB())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"main.go", "README.md"}, paths)
}

func TestRunSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")

	ix, _ := newIndexer(t, root)
	ctx := context.Background()

	stats, err := ix.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesIndexed)

	stats, err = ix.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.FilesIndexed)
	require.Equal(t, 1, stats.FilesSkipped)
}

func TestRunReindexesChangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")

	ix, _ := newIndexer(t, root)
	ctx := context.Background()

	_, err := ix.Run(ctx)
	require.NoError(t, err)

	writeFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")
	stats, err := ix.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesIndexed)
}

func TestRunReconcilesRemovedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.go", "package b\n")

	ix, s := newIndexer(t, root)
	ctx := context.Background()

	stats, err := ix.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.FilesIndexed)

	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))

	stats, err = ix.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.FilesRemoved)

	paths, err := store.ListFilePaths(ctx, s.DB())
	require.NoError(t, err)
	require.Equal(t, []string{"a.go"}, paths)
}

func TestRunSubtreeSkipsReconciliation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", "package pkg\n")
	writeFile(t, root, "other.go", "package main\n")

	ix, s := newIndexer(t, root)
	ctx := context.Background()

	_, err := ix.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "other.go")))

	stats, err := ix.RunSubtree(ctx, "pkg")
	require.NoError(t, err)
	require.Equal(t, 0, stats.FilesRemoved)

	paths, err := store.ListFilePaths(ctx, s.DB())
	require.NoError(t, err)
	require.Contains(t, paths, "other.go")
}

func TestRunRespectsContextCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, root, filepath.Join("pkg", "f"+string(rune('a'+i))+".go"), "package pkg\n")
	}

	ix, _ := newIndexer(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.Run(ctx)
	require.Error(t, err)
}
