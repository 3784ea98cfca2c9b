// Package idf holds the single inverse-document-frequency formula used
// by both the block centroid rollup and the scope scorer, so the two
// never drift apart.
package idf

import "math"

// Of returns ln((N+1)/(df+1)) + 1 for a token with document frequency df
// in a corpus of n files.
func Of(n, df int) float64 {
	return math.Log(float64(n+1)/float64(df+1)) + 1
}
