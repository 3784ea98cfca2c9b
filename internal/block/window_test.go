package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "line"
	}
	return lines
}

func TestWindowSmallFileIsOneBlock(t *testing.T) {
	a := &WindowAdapter{}
	lines := makeLines(10)
	res, err := a.Build(lines)
	require.NoError(t, err)
	require.NoError(t, res.Validate(len(lines)))
	assert.Len(t, res.Blocks, 1)
	assert.Equal(t, 1, res.Blocks[0].LineStart)
	assert.Equal(t, 10, res.Blocks[0].LineEnd)
}

func TestWindowDefaultSizing(t *testing.T) {
	a := &WindowAdapter{}
	lines := makeLines(120)
	res, err := a.Build(lines)
	require.NoError(t, err)
	require.NoError(t, res.Validate(len(lines)))
	assert.Greater(t, len(res.Blocks), 1)
	// Every line must fall in the span of the block it's mapped to.
	for i, id := range res.LineBlocks {
		b := res.Blocks[id]
		line := i + 1
		assert.GreaterOrEqual(t, line, b.LineStart)
		assert.LessOrEqual(t, line, b.LineEnd)
	}
	// The last block must reach EOF.
	last := res.Blocks[len(res.Blocks)-1]
	assert.Equal(t, 120, last.LineEnd)
}

func TestWindowCustomSizeOverlap(t *testing.T) {
	a := &WindowAdapter{Size: 10, Overlap: 2}
	lines := makeLines(25)
	res, err := a.Build(lines)
	require.NoError(t, err)
	require.NoError(t, res.Validate(len(lines)))
	// stride 8: windows [1,10],[9,18],[17,25(capped)]
	assert.Equal(t, 1, res.Blocks[0].LineStart)
	assert.Equal(t, 10, res.Blocks[0].LineEnd)
	assert.Equal(t, 9, res.Blocks[1].LineStart)
}

func TestWindowEmptyFile(t *testing.T) {
	a := &WindowAdapter{}
	res, err := a.Build(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Blocks)
}
