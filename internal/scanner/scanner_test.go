package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/codescope/codescope/internal/block"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan ScanResult) []*FileInfo {
	t.Helper()
	var files []*FileInfo
	for res := range ch {
		require.NoError(t, res.Error)
		files = append(files, res.File)
	}
	return files
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanDiscoversFilesAndClassifies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "README.md", "# hello\n")
	writeFile(t, root, "config.yaml", "key: value\n")

	s, err := New()
	require.NoError(t, err)

	ch, err := s.Scan(context.Background(), &ScanOptions{RootDir: root})
	require.NoError(t, err)
	files := drain(t, ch)
	require.Len(t, files, 3)

	byPath := map[string]*FileInfo{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	require.Equal(t, block.FileTypeCode, byPath["main.go"].FileType)
	require.Equal(t, block.FileTypeMarkdown, byPath["README.md"].FileType)
	require.Equal(t, block.FileTypeConfig, byPath["config.yaml"].FileType)
}

func TestScanSkipsDefaultExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, root, "vendor/lib/lib.go", "package lib\n")

	s, err := New()
	require.NoError(t, err)
	ch, err := s.Scan(context.Background(), &ScanOptions{RootDir: root})
	require.NoError(t, err)
	files := drain(t, ch)

	require.Len(t, files, 1)
	require.Equal(t, "main.go", files[0].Path)
}

func TestScanSkipsSensitiveFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, ".env", "SECRET=1\n")
	writeFile(t, root, "id_rsa", "not a key\n")

	s, err := New()
	require.NoError(t, err)
	ch, err := s.Scan(context.Background(), &ScanOptions{RootDir: root})
	require.NoError(t, err)
	files := drain(t, ch)

	require.Len(t, files, 1)
	require.Equal(t, "main.go", files[0].Path)
}

func TestScanSkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	binPath := filepath.Join(root, "data.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 0x00}, 0o644))

	s, err := New()
	require.NoError(t, err)
	ch, err := s.Scan(context.Background(), &ScanOptions{RootDir: root})
	require.NoError(t, err)
	files := drain(t, ch)

	require.Len(t, files, 1)
	require.Equal(t, "main.go", files[0].Path)
}

func TestScanRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "ignored.go", "package main\n")
	writeFile(t, root, ".gitignore", "ignored.go\n")

	s, err := New()
	require.NoError(t, err)
	ch, err := s.Scan(context.Background(), &ScanOptions{RootDir: root, RespectGitignore: true})
	require.NoError(t, err)
	files := drain(t, ch)

	require.Len(t, files, 1)
	require.Equal(t, "main.go", files[0].Path)
}

func TestScanRespectsCustomExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "generated/thing.go", "package generated\n")

	s, err := New()
	require.NoError(t, err)
	ch, err := s.Scan(context.Background(), &ScanOptions{
		RootDir:         root,
		ExcludePatterns: []string{"**/generated/**"},
	})
	require.NoError(t, err)
	files := drain(t, ch)

	require.Len(t, files, 1)
	require.Equal(t, "main.go", files[0].Path)
}

func TestScanRespectsMaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package main\n")
	writeFile(t, root, "large.go", "package main\n// "+string(make([]byte, 100)))

	s, err := New()
	require.NoError(t, err)
	ch, err := s.Scan(context.Background(), &ScanOptions{RootDir: root, MaxFileSize: 20})
	require.NoError(t, err)
	files := drain(t, ch)

	require.Len(t, files, 1)
	require.Equal(t, "small.go", files[0].Path)
}

func TestScanSubtreeReturnsRootRelativePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", "package pkg\n")
	writeFile(t, root, "pkg/b.go", "package pkg\n")
	writeFile(t, root, "other.go", "package main\n")

	s, err := New()
	require.NoError(t, err)
	ch, err := s.ScanSubtree(context.Background(), &ScanOptions{RootDir: root}, "pkg")
	require.NoError(t, err)
	files := drain(t, ch)

	require.Len(t, files, 2)
	for _, f := range files {
		require.True(t, filepath.Dir(f.Path) == "pkg")
	}
}

func TestScanSubtreeMissingDirReturnsEmpty(t *testing.T) {
	root := t.TempDir()
	s, err := New()
	require.NoError(t, err)
	ch, err := s.ScanSubtree(context.Background(), &ScanOptions{RootDir: root}, "does-not-exist")
	require.NoError(t, err)
	files := drain(t, ch)
	require.Empty(t, files)
}

func TestInvalidateGitignoreCacheForcesReread(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\n")
	writeFile(t, root, "b.go", "package main\n")
	writeFile(t, root, ".gitignore", "a.go\n")

	s, err := New()
	require.NoError(t, err)

	ch, err := s.Scan(context.Background(), &ScanOptions{RootDir: root, RespectGitignore: true})
	require.NoError(t, err)
	require.Len(t, drain(t, ch), 1)

	writeFile(t, root, ".gitignore", "b.go\n")
	s.InvalidateGitignoreCache()

	ch, err = s.Scan(context.Background(), &ScanOptions{RootDir: root, RespectGitignore: true})
	require.NoError(t, err)
	files := drain(t, ch)
	require.Len(t, files, 1)
	require.Equal(t, "a.go", files[0].Path)
}
