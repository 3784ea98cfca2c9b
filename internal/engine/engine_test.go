package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathsLayout(t *testing.T) {
	p := ResolvePaths("/work/proj")
	require.Equal(t, filepath.Join("/work/proj", ".cache"), p.CacheDir)
	require.Equal(t, filepath.Join("/work/proj", ".cache", "codescope.db"), p.DBPath)
	require.Equal(t, filepath.Join("/work/proj", ".cache", "codescope.token.line.ann"), p.TokenLineANN)
	require.Equal(t, filepath.Join("/work/proj", ".cache", "codescope.token.block.ann"), p.TokenBlockANN)
	require.Equal(t, filepath.Join("/work/proj", ".cache", "codescope.centroid.block.ann"), p.CentroidANN)
}

func TestOpenOnFreshWorkspaceYieldsEmptyANNIndexes(t *testing.T) {
	root := t.TempDir()

	eng, err := Open(root)
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()

	require.Equal(t, 0, eng.TokenLineANN.Len())
	require.Equal(t, 0, eng.TokenBlockANN.Len())
	require.Equal(t, 0, eng.CentroidANN.Len())
	require.NotNil(t, eng.Config)
	require.NotNil(t, eng.Store)
}

func TestSaveThenOpenRoundTripsANNIndexes(t *testing.T) {
	root := t.TempDir()

	eng, err := Open(root)
	require.NoError(t, err)
	v := make([]float32, 256)
	v[0] = 1
	eng.TokenLineANN.Add(7, v)
	require.NoError(t, eng.Save())
	require.NoError(t, eng.Close())

	reopened, err := Open(root)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, ok := reopened.TokenLineANN.Get(7)
	require.True(t, ok)
	require.Equal(t, v, got)
}

func TestWriteLockIsExclusiveAcrossEngines(t *testing.T) {
	root := t.TempDir()

	eng1, err := Open(root)
	require.NoError(t, err)
	defer func() { _ = eng1.Close() }()
	require.NoError(t, eng1.Lock.Lock())

	eng2, err := Open(root)
	require.NoError(t, err)
	defer func() { _ = eng2.Close() }()

	acquired, err := eng2.Lock.TryLock()
	require.NoError(t, err)
	require.False(t, acquired, "a second engine must not acquire the write lock while the first holds it")
}
