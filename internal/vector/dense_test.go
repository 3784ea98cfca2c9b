package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash64IsDeterministic(t *testing.T) {
	require.Equal(t, hash64(42), hash64(42))
	require.NotEqual(t, hash64(42), hash64(43))
}

func TestProjectNormalizesToUnitLength(t *testing.T) {
	v := Project(map[int64]float64{1: 3, 2: 5, 99: 1})
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	require.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-6)
}

func TestProjectOfEmptyMapIsZeroVector(t *testing.T) {
	v := Project(map[int64]float64{})
	for _, f := range v {
		require.Equal(t, float32(0), f)
	}
}

func TestQuantizeDequantizeRoundTrips(t *testing.T) {
	original := Project(map[int64]float64{7: 1, 8: -2, 9: 4})
	blob := Quantize(original)
	require.Len(t, blob, Dims*2)

	restored := Dequantize(blob)
	require.Len(t, restored, Dims)
	for i := range original {
		require.InDelta(t, original[i], restored[i], 1e-4)
	}
}

func TestQuantizeClampsOutOfRangeValues(t *testing.T) {
	blob := Quantize([]float32{2, -2, 0})
	restored := Dequantize(blob)
	require.InDelta(t, 1.0, restored[0], 1e-4)
	require.InDelta(t, -1.0, restored[1], 1e-4)
	require.Equal(t, float32(0), restored[2])
}

func TestDotOfIdenticalUnitVectorsIsOne(t *testing.T) {
	v := Project(map[int64]float64{1: 1, 2: 1})
	require.InDelta(t, 1.0, Dot(v, v), 1e-6)
}

func TestMeanPoolAveragesElementwise(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	mean := MeanPool([][]float32{a, b})
	require.InDelta(t, 0.5, mean[0], 1e-6)
	require.InDelta(t, 0.5, mean[1], 1e-6)
	require.InDelta(t, 0, mean[2], 1e-6)
}

func TestMeanPoolOfEmptySetIsNil(t *testing.T) {
	require.Nil(t, MeanPool(nil))
}

func TestNormalizeOfZeroVectorStaysZero(t *testing.T) {
	v := Normalize(make([]float32, Dims))
	for _, f := range v {
		require.Equal(t, float32(0), f)
	}
}
