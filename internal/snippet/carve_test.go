package snippet

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, lineCount int) {
	t.Helper()
	lines := make([]string, lineCount)
	for i := range lines {
		lines[i] = "line " + strconv.Itoa(i+1)
	}
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestCarveReturnsWholeBlockWhenSmall(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", 10)

	r := Carve(root, "a.go", 1, 10, []int{5}, DefaultOptions())
	require.Empty(t, r.Warn)
	require.Equal(t, 1, r.SnippetStart)
	require.Equal(t, 10, strings.Count(r.Content, "\n")+1)
}

func TestCarveClustersDistantHitsIntoSeparateRegions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", 100)

	r := Carve(root, "a.go", 1, 100, []int{10, 80}, DefaultOptions())
	require.Empty(t, r.Warn)
	require.Contains(t, r.Content, "...")
	require.Contains(t, r.Content, "line 10")
	require.Contains(t, r.Content, "line 80")
}

func TestCarveMergesCloseHitsIntoOneRegion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", 100)

	r := Carve(root, "a.go", 1, 100, []int{50, 52}, DefaultOptions())
	require.Empty(t, r.Warn)
	// Header (lines 1-2) is far from the hit region near line 50, so it
	// must appear as its own region separated by an ellipsis, but the
	// two close hits themselves should not split into two ellipsis-joined
	// regions.
	require.Equal(t, 1, strings.Count(r.Content, "..."))
}

func TestCarveIncludesSeparateHeaderWhenNotOverlapping(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", 100)

	r := Carve(root, "a.go", 1, 100, []int{50}, DefaultOptions())
	require.Empty(t, r.Warn)
	require.Contains(t, r.Content, "line 1")
	require.Contains(t, r.Content, "...")
}

func TestCarveOmitsSeparateHeaderWhenOverlapping(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", 100)

	r := Carve(root, "a.go", 1, 100, []int{2}, DefaultOptions())
	require.Empty(t, r.Warn)
	require.NotContains(t, r.Content, "...")
}

func TestCarveTrimsToMaxLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", 200)

	opts := Options{MaxLines: 12, ContextLines: 2, ClusterGap: 4}
	r := Carve(root, "a.go", 1, 200, []int{10, 20, 30, 150}, opts)
	require.Empty(t, r.Warn)

	total := 0
	for _, part := range strings.Split(r.Content, "\n") {
		if part != "..." {
			total++
		}
	}
	require.LessOrEqual(t, total, opts.MaxLines)
}

func TestCarveReturnsFileNotFoundWarning(t *testing.T) {
	root := t.TempDir()
	r := Carve(root, "missing.go", 1, 10, nil, DefaultOptions())
	require.Equal(t, "file not found", r.Warn)
	require.Empty(t, r.Content)
}

func TestClusterHitsGroupsCloseHitsTogether(t *testing.T) {
	regions := clusterHits([]int{1, 3, 4, 20}, 4)
	require.Len(t, regions, 2)
	require.Equal(t, region{start: 1, end: 4}, regions[0])
	require.Equal(t, region{start: 20, end: 20}, regions[1])
}

func TestMergeAdjacentCombinesCloseRegions(t *testing.T) {
	merged := mergeAdjacent([]region{{start: 1, end: 5}, {start: 7, end: 10}}, 1)
	require.Len(t, merged, 1)
	require.Equal(t, region{start: 1, end: 10}, merged[0])
}

func TestMergeAdjacentKeepsFarRegionsSeparate(t *testing.T) {
	merged := mergeAdjacent([]region{{start: 1, end: 5}, {start: 20, end: 25}}, 1)
	require.Len(t, merged, 2)
}
