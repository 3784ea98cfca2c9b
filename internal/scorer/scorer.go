// Package scorer implements the scope-aware scorer: turn an expanded
// query into ranked candidate blocks by propagating weighted term
// evidence up the block tree, combining it with a clustering signal,
// and breaking ties deterministically.
package scorer

import (
	"context"
	"database/sql"
	"math"
	"sort"

	"github.com/codescope/codescope/internal/expand"
	"github.com/codescope/codescope/internal/idf"
	"github.com/codescope/codescope/internal/store"
	"github.com/codescope/codescope/internal/vector"
)

// ClusterMode selects how the clustering signal is computed.
type ClusterMode string

const (
	ClusterCentroid      ClusterMode = "centroid"
	ClusterConcentration ClusterMode = "concentration"
)

const (
	salienceAlpha = 0.5
	clusterLambda = 0.5
)

// Options carries the query-time knobs that shape scoring.
type Options struct {
	TopK          int
	MaxCandidates int
	ClusterMode   ClusterMode
	// RawVectors forces every expanded candidate's similarity to 1.0,
	// so TF is unweighted by semantic closeness.
	RawVectors bool
}

// HitEntry is one contributing (expanded token, originating query
// token) pair at a result, with the lines it hit and its contribution
// to that result's score — the explain-mode detail.
type HitEntry struct {
	ExpandedToken      string
	OriginatingQuery   string
	Similarity         float64
	Lines              []int32
	Contribution       float64
}

// Result is one scored candidate block.
type Result struct {
	BlockID                int64
	FileID                 int64
	FilePath               string
	LineStart, LineEnd     int
	Score                  float64
	Salience               float64
	Cluster                float64
	DistinctExpandedTokens int
	TotalHitLines          int
	Hits                   []HitEntry
	// Ancestry holds this block's ancestor chain, root first, ending
	// with the block itself.
	Ancestry []int64

	// directChildren is each direct child block's subtree raw hit
	// count, carried from scoreFile to applyClustering for the
	// concentration-entropy computation; not part of the public shape.
	directChildren map[int64]int
}

type lineHit struct {
	queryToken   string
	expanded     string
	expandedID   int64
	similarity   float64
	lineInBlock  int32
}

type blockAccum struct {
	file      store.File
	block     store.Block
	ownRaw    int
	ownWeighted map[string]float64 // query token -> Σ|lines|*similarity contributed at this exact block
	ownHits   []lineHit
	expandedIDs map[int64]bool
}

// Score runs the full scoring pipeline over a set of expansions and
// returns ranked results, already truncated to Options.TopK.
func Score(ctx context.Context, db *sql.DB, expansions []expand.Expansion, opts Options) ([]Result, error) {
	totalFiles, err := store.TotalFileCount(ctx, db)
	if err != nil {
		return nil, err
	}

	queryIDF := make(map[string]float64, len(expansions))
	queryTokenIDs := make(map[string]int64, len(expansions))
	for _, ex := range expansions {
		if len(ex.Candidates) == 0 {
			continue
		}
		primary := ex.Candidates[0]
		df := 0
		if primary.TokenID != 0 {
			tok, err := store.GetTokenByID(ctx, db, primary.TokenID)
			if err != nil {
				return nil, err
			}
			if tok != nil {
				df = tok.DF
			}
		}
		queryIDF[ex.QueryToken] = idf.Of(totalFiles, df)
		queryTokenIDs[ex.QueryToken] = primary.TokenID
	}

	// --- Step 1: collect hits, grouped by file. ---
	type fileHits struct {
		hitsByBlock map[int64][]lineHit
	}
	byFile := make(map[int64]*fileHits)

	for _, ex := range expansions {
		for _, c := range ex.Candidates {
			if c.TokenID == 0 {
				continue
			}
			similarity := c.Similarity
			if opts.RawVectors {
				similarity = 1.0
			}
			postings, err := store.PostingsByToken(ctx, db, c.TokenID)
			if err != nil {
				return nil, err
			}
			for _, p := range postings {
				blob, err := store.GetBlockLineMap(ctx, db, p.FileID)
				if err != nil {
					return nil, err
				}
				lineBlocks, err := store.DecodeBlockLineMap(blob)
				if err != nil {
					return nil, err
				}
				fh, ok := byFile[p.FileID]
				if !ok {
					fh = &fileHits{hitsByBlock: make(map[int64][]lineHit)}
					byFile[p.FileID] = fh
				}
				for _, ln := range p.Lines {
					idx := int(ln) - 1
					if idx < 0 || idx >= len(lineBlocks) {
						continue
					}
					blockID := lineBlocks[idx]
					fh.hitsByBlock[blockID] = append(fh.hitsByBlock[blockID], lineHit{
						queryToken: ex.QueryToken, expanded: c.Token, expandedID: c.TokenID,
						similarity: similarity, lineInBlock: ln,
					})
				}
			}
		}
	}

	var results []Result
	for fileID, fh := range byFile {
		file, err := store.GetFileByID(ctx, db, fileID)
		if err != nil {
			return nil, err
		}
		if file == nil {
			continue
		}
		blocks, err := store.BlocksByFile(ctx, db, fileID)
		if err != nil {
			return nil, err
		}
		fileResults, err := scoreFile(ctx, db, *file, blocks, fh.hitsByBlock, queryIDF, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, fileResults...)
		if opts.MaxCandidates > 0 && len(results) > opts.MaxCandidates*4 {
			// Safety valve against pathological fan-out; real truncation
			// to top-k happens after the full sort below.
			break
		}
	}

	results, err = applyClustering(ctx, db, results, queryTokenIDs, opts)
	if err != nil {
		return nil, err
	}

	sortResults(results)

	if opts.ClusterMode == ClusterCentroid {
		results = dedupeAncestors(results)
	}

	topK := opts.TopK
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func scoreFile(
	ctx context.Context,
	db *sql.DB,
	file store.File,
	blocks []store.Block,
	hitsByBlock map[int64][]lineHit,
	queryIDF map[string]float64,
	opts Options,
) ([]Result, error) {
	byID := make(map[int64]store.Block, len(blocks))
	childrenOf := make(map[int64][]int64, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
		if b.ParentID != 0 {
			childrenOf[b.ParentID] = append(childrenOf[b.ParentID], b.ID)
		}
	}

	own := make(map[int64]*blockAccum, len(hitsByBlock))
	for blockID, hits := range hitsByBlock {
		b, ok := byID[blockID]
		if !ok {
			continue
		}
		acc := &blockAccum{file: file, block: b, ownWeighted: make(map[string]float64), expandedIDs: make(map[int64]bool)}
		for _, h := range hits {
			acc.ownRaw++
			acc.ownWeighted[h.queryToken] += h.similarity
			acc.expandedIDs[h.expandedID] = true
			acc.ownHits = append(acc.ownHits, h)
		}
		own[blockID] = acc
	}

	// subtreeRaw propagates raw hit counts bottom-up for every block
	// (not just hit ones), in reverse topological (children-before-
	// parent) order, so direct-child entropy can be computed at any
	// ancestor.
	subtreeRaw := make(map[int64]int, len(blocks))
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		total := 0
		if acc, ok := own[b.ID]; ok {
			total += acc.ownRaw
		}
		for _, cid := range childrenOf[b.ID] {
			total += subtreeRaw[cid]
		}
		subtreeRaw[b.ID] = total
	}

	// Merge each hit block's own stats into itself and every ancestor.
	merged := make(map[int64]*blockAccum)
	for blockID, acc := range own {
		cur := blockID
		for {
			b, ok := byID[cur]
			if !ok {
				break
			}
			dst, ok := merged[cur]
			if !ok {
				dst = &blockAccum{file: file, block: b, ownWeighted: make(map[string]float64), expandedIDs: make(map[int64]bool)}
				merged[cur] = dst
			}
			dst.ownRaw += acc.ownRaw
			for q, w := range acc.ownWeighted {
				dst.ownWeighted[q] += w
			}
			for id := range acc.expandedIDs {
				dst.expandedIDs[id] = true
			}
			dst.ownHits = append(dst.ownHits, acc.ownHits...)
			if b.ParentID == 0 {
				break
			}
			cur = b.ParentID
		}
	}

	var out []Result
	for blockID, acc := range merged {
		salience := computeSalience(acc, queryIDF)

		directChildren := make(map[int64]int, len(childrenOf[blockID]))
		for _, cid := range childrenOf[blockID] {
			directChildren[cid] = subtreeRaw[cid]
		}

		ancestry := ancestorChain(byID, blockID)

		r := Result{
			BlockID: blockID, FileID: file.ID, FilePath: file.Path,
			LineStart: acc.block.LineStart, LineEnd: acc.block.LineEnd,
			Salience: salience, TotalHitLines: acc.ownRaw,
			DistinctExpandedTokens: len(acc.expandedIDs),
			Hits:                   buildHits(acc, queryIDF),
			Ancestry:               ancestry,
			directChildren:         directChildren,
		}
		out = append(out, r)
	}
	return out, nil
}

func computeSalience(acc *blockAccum, queryIDF map[string]float64) float64 {
	var sum float64
	for q, tfw := range acc.ownWeighted {
		sum += math.Log(1+tfw) * queryIDF[q]
	}
	size := float64(acc.block.EligibleCount)
	return sum / math.Pow(1+size, salienceAlpha)
}

func buildHits(acc *blockAccum, queryIDF map[string]float64) []HitEntry {
	type key struct {
		expanded string
		query    string
	}
	grouped := make(map[key]*HitEntry)
	for _, h := range acc.ownHits {
		k := key{expanded: h.expanded, query: h.queryToken}
		e, ok := grouped[k]
		if !ok {
			e = &HitEntry{ExpandedToken: h.expanded, OriginatingQuery: h.queryToken, Similarity: h.similarity}
			grouped[k] = e
		}
		e.Lines = append(e.Lines, h.lineInBlock)
	}
	out := make([]HitEntry, 0, len(grouped))
	for _, e := range grouped {
		tf := float64(len(e.Lines))
		e.Contribution = math.Log(1+tf*e.Similarity) * queryIDF[e.OriginatingQuery]
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Contribution > out[j].Contribution })
	return out
}

func ancestorChain(byID map[int64]store.Block, blockID int64) []int64 {
	var chain []int64
	cur := blockID
	for {
		b, ok := byID[cur]
		if !ok {
			break
		}
		chain = append([]int64{cur}, chain...)
		if b.ParentID == 0 {
			break
		}
		cur = b.ParentID
	}
	return chain
}

func applyClustering(ctx context.Context, db *sql.DB, results []Result, queryTokenIDs map[string]int64, opts Options) ([]Result, error) {
	mode := opts.ClusterMode
	if mode == "" {
		mode = ClusterCentroid
	}

	var queryCentroid []float32
	if mode == ClusterCentroid {
		qc, err := buildQueryCentroid(ctx, db, queryTokenIDs)
		if err != nil {
			return nil, err
		}
		queryCentroid = qc
		if queryCentroid == nil {
			mode = ClusterConcentration
		}
	}

	for i := range results {
		cluster := 0.0
		useCentroid := mode == ClusterCentroid
		if useCentroid {
			blob, ok, err := store.GetBlockCentroid(ctx, db, results[i].BlockID, store.ModelScope)
			if err != nil {
				return nil, err
			}
			if !ok {
				useCentroid = false
			} else {
				dense := vector.Dequantize(blob)
				dot := vector.Dot(queryCentroid, dense)
				if dot < 0 {
					dot = 0
				}
				if dot > 1 {
					dot = 1
				}
				cluster = dot
			}
		}
		if !useCentroid {
			cluster = concentrationCluster(results[i].directChildren)
		}
		results[i].Cluster = cluster
		results[i].Score = results[i].Salience * (1 + clusterLambda*cluster)
	}
	return results, nil
}

// concentrationCluster computes the concentration-mode clustering
// signal: entropy over a candidate's direct children's raw hit counts,
// normalized by the maximum possible entropy for that many children.
// Fewer than two children with hits means nothing to concentrate
// against.
func concentrationCluster(directChildren map[int64]int) float64 {
	var counts []int
	var total int
	for _, c := range directChildren {
		if c > 0 {
			counts = append(counts, c)
			total += c
		}
	}
	if len(counts) < 2 {
		return 0
	}

	var entropy float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log(p)
	}
	hMax := math.Log(float64(len(counts)))
	if hMax == 0 {
		return 0
	}
	return 1 - entropy/hMax
}

// buildQueryCentroid averages the known query tokens' own scope-model
// co-occurrence rows into one sparse vector and projects it to dense,
// the query-side half of centroid-mode clustering. Returns nil if no
// query token has co-occurrence data (untrained model), signaling the
// caller to fall back to concentration mode.
func buildQueryCentroid(ctx context.Context, db *sql.DB, queryTokenIDs map[string]int64) ([]float32, error) {
	combined := make(map[int64]float64)
	contributors := 0
	for _, tokenID := range queryTokenIDs {
		if tokenID == 0 {
			continue
		}
		cells, err := store.CellsForToken(ctx, db, store.ModelScope, tokenID)
		if err != nil {
			return nil, err
		}
		if len(cells) == 0 {
			continue
		}
		contributors++
		for _, cell := range cells {
			combined[cell.ContextID] += float64(cell.Count)
		}
	}
	if contributors == 0 {
		return nil, nil
	}
	for k := range combined {
		combined[k] /= float64(contributors)
	}
	return vector.Normalize(vector.Project(combined)), nil
}

// sortResults orders results by highest score first, ties broken by
// distinct expanded tokens hit then total hit lines, and any
// remaining tie broken deterministically by (file path, line start)
// ascending.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DistinctExpandedTokens != b.DistinctExpandedTokens {
			return a.DistinctExpandedTokens > b.DistinctExpandedTokens
		}
		if a.TotalHitLines != b.TotalHitLines {
			return a.TotalHitLines > b.TotalHitLines
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.LineStart < b.LineStart
	})
}

// dedupeAncestors drops the weaker of an ancestor/descendant pair:
// when both an ancestor and a descendant block of the same file
// survive ranking, keep only the higher-scoring of the two (the
// descendant on a tie).
func dedupeAncestors(results []Result) []Result {
	drop := make(map[int]bool)
	for i := range results {
		for j := range results {
			if i == j || drop[i] || drop[j] {
				continue
			}
			if results[i].FileID != results[j].FileID {
				continue
			}
			if !isAncestor(results[j].Ancestry, results[i].BlockID) {
				continue
			}
			// i is an ancestor of j (j's own ancestry chain contains i).
			if results[i].Score > results[j].Score {
				drop[j] = true
			} else {
				drop[i] = true
			}
		}
	}
	out := make([]Result, 0, len(results))
	for i, r := range results {
		if !drop[i] {
			out = append(out, r)
		}
	}
	return out
}

func isAncestor(ancestry []int64, blockID int64) bool {
	for _, id := range ancestry {
		if id == blockID {
			return true
		}
	}
	return false
}
