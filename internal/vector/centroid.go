package vector

import (
	"context"
	"database/sql"
	"math"
	"sort"

	"github.com/codescope/codescope/internal/idf"
	"github.com/codescope/codescope/internal/store"
)

// Stats summarizes one file's centroid rollup.
type Stats struct {
	BlocksWritten int
	BlocksSkipped int
}

// Rollup computes and stores a dense centroid for every block of a file
// under the given co-occurrence model, bottom-up: a leaf block's
// centroid is the idf-weighted average of its top tokens' own
// co-occurrence rows, projected once to dense; an internal block's
// centroid is the element-wise mean of its children's dense centroids.
// A leaf with no eligible tokens, or whose selected tokens carry no
// co-occurrence data yet (model untrained), is skipped rather than
// stored with a zero vector.
func Rollup(ctx context.Context, db *sql.DB, fileID int64, modelID int) (*Stats, error) {
	blocks, err := store.BlocksByFile(ctx, db, fileID)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return &Stats{}, nil
	}

	totalFiles, err := store.TotalFileCount(ctx, db)
	if err != nil {
		return nil, err
	}
	lineTokens, err := linesToTokens(ctx, db, fileID)
	if err != nil {
		return nil, err
	}

	childrenOf := make(map[int64][]int64, len(blocks))
	for _, b := range blocks {
		if b.ParentID != 0 {
			childrenOf[b.ParentID] = append(childrenOf[b.ParentID], b.ID)
		}
	}

	stats := &Stats{}
	dense := make(map[int64][]float32, len(blocks))

	// Blocks are stored parents-before-children (topological insertion
	// order), so walking the slice in reverse visits every block's
	// children before the block itself.
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		childIDs := childrenOf[b.ID]

		var centroid []float32
		if len(childIDs) == 0 {
			centroid, err = leafCentroid(ctx, db, b, lineTokens, totalFiles, modelID)
			if err != nil {
				return nil, err
			}
		} else {
			vecs := make([][]float32, 0, len(childIDs))
			for _, cid := range childIDs {
				if v, ok := dense[cid]; ok {
					vecs = append(vecs, v)
				}
			}
			if len(vecs) > 0 {
				centroid = vecs[0]
				if len(vecs) > 1 {
					centroid = MeanPool(vecs)
				}
			}
		}

		if centroid == nil {
			stats.BlocksSkipped++
			continue
		}

		normalized := Normalize(centroid)
		dense[b.ID] = normalized
		if err := store.UpsertBlockCentroid(ctx, db, b.ID, modelID, Quantize(normalized)); err != nil {
			return nil, err
		}
		stats.BlocksWritten++
	}

	return stats, nil
}

type tokenIDF struct {
	id  int64
	idf float64
}

// leafCentroid returns nil (not an error) when the block has no eligible
// tokens, or its selected tokens have no co-occurrence row yet.
func leafCentroid(ctx context.Context, db *sql.DB, b store.Block, lineTokens map[int32][]int64, totalFiles, modelID int) ([]float32, error) {
	seen := make(map[int64]bool)
	for ln := b.LineStart; ln <= b.LineEnd; ln++ {
		for _, t := range lineTokens[int32(ln)] {
			seen[t] = true
		}
	}
	if len(seen) == 0 {
		return nil, nil
	}

	cands := make([]tokenIDF, 0, len(seen))
	for t := range seen {
		tok, err := store.GetTokenByID(ctx, db, t)
		if err != nil {
			return nil, err
		}
		if tok == nil || !isEligibleKind(tok.Kind) {
			continue
		}
		cands = append(cands, tokenIDF{id: t, idf: idf.Of(totalFiles, tok.DF)})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].idf != cands[j].idf {
			return cands[i].idf > cands[j].idf
		}
		return cands[i].id < cands[j].id
	})

	take := clampTokenCount(b.EligibleCount)
	if take > len(cands) {
		take = len(cands)
	}

	combined := make(map[int64]float64)
	var sumIdf float64
	for _, c := range cands[:take] {
		cells, err := store.CellsForToken(ctx, db, modelID, c.id)
		if err != nil {
			return nil, err
		}
		for _, cell := range cells {
			combined[cell.ContextID] += c.idf * float64(cell.Count)
		}
		sumIdf += c.idf
	}
	if sumIdf == 0 || len(combined) == 0 {
		return nil, nil
	}
	for k := range combined {
		combined[k] /= sumIdf
	}

	return Project(combined), nil
}

func isEligibleKind(kind string) bool {
	switch kind {
	case "ident", "word", "compound":
		return true
	default:
		return false
	}
}

// clampTokenCount computes the leaf token budget: round(0.30 * eligible
// token count), clamped to [8, 64].
func clampTokenCount(eligible int) int {
	n := int(math.Round(0.30 * float64(eligible)))
	if n < 8 {
		n = 8
	}
	if n > 64 {
		n = 64
	}
	return n
}

// linesToTokens inverts a file's postings into line -> distinct token ids
// present on that line, the same shape internal/cooc builds its line
// model from.
func linesToTokens(ctx context.Context, db *sql.DB, fileID int64) (map[int32][]int64, error) {
	postings, err := store.PostingsByFile(ctx, db, fileID)
	if err != nil {
		return nil, err
	}
	out := make(map[int32][]int64)
	for _, p := range postings {
		for _, ln := range p.Lines {
			out[ln] = append(out[ln], p.TokenID)
		}
	}
	return out, nil
}
