// Package keywords implements corpus-wide header/footer analysis:
// tokens that cluster disproportionately at the start or end of files
// (license boilerplate, shebang lines, copyright notices) get flagged
// with the learned "keyword" kind on their token row. The flag is
// advisory metadata only; it does not change DF, IDF, or how the
// scorer weights the token.
package keywords

import (
	"context"
	"database/sql"
	"sort"

	"github.com/codescope/codescope/internal/store"
	"github.com/codescope/codescope/internal/tokenize"
)

// Options parameterizes the scan: a header/footer window, a minimum
// ratio of a token's postings that must fall in that window, and a
// minimum document frequency for the token to be considered at all.
type Options struct {
	WindowLines int
	MinRatio    float64
	MinCount    int
}

// DefaultOptions returns the advisory defaults: a 3% header/footer
// ratio, a minimum document frequency of 5, over the first/last 3
// lines of each file.
func DefaultOptions() Options {
	return Options{WindowLines: 3, MinRatio: 0.03, MinCount: 5}
}

// Candidate is one token the scan considers for the keyword flag.
type Candidate struct {
	TokenID      int64
	Text         string
	DF           int
	HeaderFooter int
	Ratio        float64
}

// eligibleKind restricts the scan to token kinds that accumulate
// postings (ident, word, compound); symbol tokens never reach
// postings and keyword is the destination kind, not a source.
func eligibleKind(kind string) bool {
	switch kind {
	case tokenize.KindIdent.String(), tokenize.KindWord.String(), tokenize.KindCompound.String():
		return true
	default:
		return false
	}
}

// Scan walks every eligible token and reports which ones cross the
// header/footer ratio threshold, ordered by descending ratio (ties
// broken by descending document frequency, then token text).
func Scan(ctx context.Context, db *sql.DB, opts Options) ([]Candidate, error) {
	tokens, err := store.AllTokens(ctx, db)
	if err != nil {
		return nil, err
	}

	fileLineCounts := make(map[int64]int)

	var candidates []Candidate
	for _, tok := range tokens {
		if !eligibleKind(tok.Kind) || tok.DF < opts.MinCount {
			continue
		}

		postings, err := store.PostingsByToken(ctx, db, tok.ID)
		if err != nil {
			return nil, err
		}
		if len(postings) == 0 {
			continue
		}

		hitFiles := 0
		for _, p := range postings {
			lineCount, ok := fileLineCounts[p.FileID]
			if !ok {
				f, err := store.GetFileByID(ctx, db, p.FileID)
				if err != nil {
					return nil, err
				}
				if f == nil {
					continue
				}
				lineCount = f.LineCount
				fileLineCounts[p.FileID] = lineCount
			}
			if inHeaderOrFooter(p.Lines, lineCount, opts.WindowLines) {
				hitFiles++
			}
		}

		ratio := float64(hitFiles) / float64(len(postings))
		if ratio < opts.MinRatio {
			continue
		}
		candidates = append(candidates, Candidate{
			TokenID:      tok.ID,
			Text:         tok.Text,
			DF:           tok.DF,
			HeaderFooter: hitFiles,
			Ratio:        ratio,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Ratio != candidates[j].Ratio {
			return candidates[i].Ratio > candidates[j].Ratio
		}
		if candidates[i].DF != candidates[j].DF {
			return candidates[i].DF > candidates[j].DF
		}
		return candidates[i].Text < candidates[j].Text
	})
	return candidates, nil
}

// inHeaderOrFooter reports whether any line in lines falls within the
// first or last window lines of a file with lineCount total lines.
func inHeaderOrFooter(lines []int32, lineCount, window int) bool {
	for _, ln := range lines {
		if int(ln) <= window || int(ln) > lineCount-window {
			return true
		}
	}
	return false
}

// Apply flags the first n candidates (0 means all) with the keyword
// kind, returning how many rows were updated.
func Apply(ctx context.Context, db *sql.DB, candidates []Candidate, n int) (int, error) {
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}
	for i := 0; i < n; i++ {
		if err := store.MarkTokenKeyword(ctx, db, candidates[i].TokenID); err != nil {
			return i, err
		}
	}
	return n, nil
}
