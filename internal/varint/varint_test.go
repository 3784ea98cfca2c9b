package varint

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 40, ^uint64(0)}
	for _, v := range values {
		buf := Encode(nil, v)
		got, err := Decode(bufio.NewReader(bytes.NewReader(buf)))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestDecodePrematureEOF(t *testing.T) {
	// A continuation byte with nothing following it.
	buf := []byte{0x80}
	_, err := Decode(bufio.NewReader(bytes.NewReader(buf)))
	require.Error(t, err)
	var me *MalformedVarintError
	assert.ErrorAs(t, err, &me)
}

func TestDecodeShiftOverflow(t *testing.T) {
	// Ten continuation bytes push shift past 64 before a terminator appears.
	buf := bytes.Repeat([]byte{0xFF}, 10)
	buf = append(buf, 0x01)
	_, err := Decode(bufio.NewReader(bytes.NewReader(buf)))
	require.Error(t, err)
}

func TestLinesRoundTrip(t *testing.T) {
	cases := [][]int32{
		nil,
		{1},
		{1, 2, 3, 10, 11, 1000},
		{5, 5, 5}, // duplicate lines (same line, multiple tokens) still round-trip
	}
	for _, lines := range cases {
		encoded := EncodeLines(lines)
		decoded, err := DecodeLines(encoded)
		require.NoError(t, err)
		if len(lines) == 0 {
			assert.Empty(t, decoded)
		} else {
			assert.Equal(t, lines, decoded)
		}
	}
}

func TestLinesNonDecreasingProperty(t *testing.T) {
	// Property: for any non-decreasing Int32 list, decode(encode(xs)) == xs.
	candidates := [][]int32{
		{0, 0, 1, 4, 4, 4, 9, 100},
		{2, 2, 2, 2},
		{},
	}
	for _, xs := range candidates {
		got, err := DecodeLines(EncodeLines(xs))
		require.NoError(t, err)
		if len(xs) == 0 {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, xs, got)
	}
}
