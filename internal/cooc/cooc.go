// Package cooc trains the two sparse token co-occurrence models:
// a line model built from a sliding window over each file's posting
// lines, and a scope model swept over the block forest. Both write into
// the same cooc_cells table, partitioned by model id, and both feed the
// same neighbor-computation pass.
package cooc

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/codescope/codescope/internal/config"
	cserrors "github.com/codescope/codescope/internal/errors"
	"github.com/codescope/codescope/internal/store"
)

// Trainer builds and refreshes the co-occurrence models over an
// indexed corpus.
type Trainer struct {
	DB     *sql.DB
	Config config.TrainConfig
	Logger *slog.Logger
}

// New constructs a Trainer. logger may be nil.
func New(db *sql.DB, cfg config.TrainConfig, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}
	return &Trainer{DB: db, Config: cfg, Logger: logger}
}

// Stats summarizes one training pass over a single model.
type Stats struct {
	CellsWritten     int
	EligibleTokens   int
	NeighborsWritten int
}

// TrainLine rebuilds the line co-occurrence model over every indexed
// file, then computes neighbors for it.
func (tr *Trainer) TrainLine(ctx context.Context) (*Stats, error) {
	if err := tr.buildLineModel(ctx); err != nil {
		return nil, err
	}
	return tr.computeNeighbors(ctx, store.ModelLine)
}

// TrainScope rebuilds the scope co-occurrence model over every
// indexed file's block forest, then computes neighbors for it.
func (tr *Trainer) TrainScope(ctx context.Context) (*Stats, error) {
	if err := tr.buildScopeModel(ctx); err != nil {
		return nil, err
	}
	return tr.computeNeighbors(ctx, store.ModelScope)
}

// accumulator holds in-memory symmetric co-occurrence weights for one
// model, keyed by the canonical (lower token id first) pair, before a
// single pass writes both directions to the store.
type accumulator struct {
	cells map[[2]int64]int64
}

func newAccumulator() *accumulator {
	return &accumulator{cells: make(map[[2]int64]int64)}
}

// add accumulates a symmetric weight between two distinct tokens,
// canonicalizing the pair order to avoid double-counting in memory.
func (a *accumulator) add(x, y int64, weight int64) {
	if x == y || weight == 0 {
		return
	}
	key := [2]int64{x, y}
	if x > y {
		key = [2]int64{y, x}
	}
	a.cells[key] += weight
}

// flush writes both directions of every accumulated pair in a single
// transaction, after clearing the model's prior rows.
func (a *accumulator) flush(ctx context.Context, db *sql.DB, modelID int) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, cserrors.Store("begin cooc flush transaction failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := store.ClearModel(ctx, tx, modelID); err != nil {
		return 0, err
	}
	for pair, weight := range a.cells {
		if err := store.UpsertCoocCell(ctx, tx, modelID, pair[0], pair[1], weight); err != nil {
			return 0, err
		}
		if err := store.UpsertCoocCell(ctx, tx, modelID, pair[1], pair[0], weight); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, cserrors.Store("commit cooc flush transaction failed", err)
	}
	committed = true
	return len(a.cells), nil
}

// sweep runs a sliding window of radius W over a flattened token
// sequence (already in the order the model wants to treat as
// contiguous — ascending line order for the line model, header-line
// order for the scope model's sibling sweep) and accumulates weighted
// co-occurrence for every distinct pair within the window.
func sweep(acc *accumulator, tokens []int64, windowRadius int) {
	n := len(tokens)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n && j-i <= windowRadius; j++ {
			dist := j - i
			weight := int64(windowRadius-dist+1)
			if weight <= 0 {
				continue
			}
			acc.add(tokens[i], tokens[j], weight)
		}
	}
}

// buildLineModel builds the line model: one pass per file,
// flattening posting-lines in ascending order and sweeping a sliding
// window of radius CoocWindowSize over the resulting token sequence.
func (tr *Trainer) buildLineModel(ctx context.Context) error {
	fileIDs, err := store.ListFileIDs(ctx, tr.DB)
	if err != nil {
		return err
	}

	acc := newAccumulator()
	for _, fileID := range fileIDs {
		if ctx.Err() != nil {
			return cserrors.Canceled()
		}
		postings, err := store.PostingsByFile(ctx, tr.DB, fileID)
		if err != nil {
			return err
		}
		lineTokens := make(map[int32][]int64)
		for _, p := range postings {
			for _, ln := range p.Lines {
				lineTokens[ln] = append(lineTokens[ln], p.TokenID)
			}
		}
		lines := make([]int32, 0, len(lineTokens))
		for ln := range lineTokens {
			lines = append(lines, ln)
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })

		var flat []int64
		for _, ln := range lines {
			flat = append(flat, lineTokens[ln]...)
		}
		sweep(acc, flat, tr.Config.CoocWindowSize)
	}

	_, err = acc.flush(ctx, tr.DB, store.ModelLine)
	return err
}

// buildScopeModel builds the scope model: for every file's
// blocks, leaves sweep their own line range, internal blocks sweep the
// header lines of their direct children, and the file root additionally
// sweeps the headers of all top-level blocks together.
func (tr *Trainer) buildScopeModel(ctx context.Context) error {
	fileIDs, err := store.ListFileIDs(ctx, tr.DB)
	if err != nil {
		return err
	}

	acc := newAccumulator()
	for _, fileID := range fileIDs {
		if ctx.Err() != nil {
			return cserrors.Canceled()
		}
		if err := tr.sweepFileScope(ctx, acc, fileID); err != nil {
			return err
		}
	}

	_, err = acc.flush(ctx, tr.DB, store.ModelScope)
	return err
}

func (tr *Trainer) sweepFileScope(ctx context.Context, acc *accumulator, fileID int64) error {
	blocks, err := store.BlocksByFile(ctx, tr.DB, fileID)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return nil
	}

	postings, err := store.PostingsByFile(ctx, tr.DB, fileID)
	if err != nil {
		return err
	}
	lineTokens := make(map[int32][]int64)
	for _, p := range postings {
		for _, ln := range p.Lines {
			lineTokens[ln] = append(lineTokens[ln], p.TokenID)
		}
	}

	children := make(map[int64][]store.Block)
	var topLevel []store.Block
	byID := make(map[int64]store.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
		if b.ParentID == 0 {
			topLevel = append(topLevel, b)
		} else {
			children[b.ParentID] = append(children[b.ParentID], b)
		}
	}

	tokensInRange := func(start, end int) []int64 {
		var out []int64
		for ln := int32(start); ln <= int32(end); ln++ {
			out = append(out, lineTokens[ln]...)
		}
		return out
	}

	headerTokens := func(b store.Block) []int64 {
		return lineTokens[int32(b.LineStart)]
	}

	for _, b := range blocks {
		kids := children[b.ID]
		if len(kids) == 0 {
			sweep(acc, tokensInRange(b.LineStart, b.LineEnd), tr.Config.CoocWindowSize)
			continue
		}
		var headers []int64
		for _, c := range kids {
			headers = append(headers, headerTokens(c)...)
		}
		sweep(acc, headers, tr.Config.CoocWindowSize)
	}

	var rootHeaders []int64
	for _, b := range topLevel {
		rootHeaders = append(rootHeaders, headerTokens(b)...)
	}
	sweep(acc, rootHeaders, tr.Config.CoocWindowSize)

	return nil
}

// eligible reports whether a token's kind and accumulated total weight
// qualify it for neighbor computation.
func eligible(kind string, total int64, minCount int) bool {
	if total < int64(minCount) {
		return false
	}
	switch kind {
	case "ident", "word", "compound":
		return true
	default:
		return false
	}
}

// computeNeighbors computes nearest-neighbor tokens: stream cells
// into in-memory vectors/inverted-index/totals, filter eligible tokens,
// cache norms, then for each eligible token accumulate dot products via
// the inverted index and write quantized top-K neighbors.
func (tr *Trainer) computeNeighbors(ctx context.Context, modelID int) (*Stats, error) {
	cells, err := store.CellsForModel(ctx, tr.DB, modelID)
	if err != nil {
		return nil, err
	}

	vectors := make(map[int64]map[int64]int64)
	inv := make(map[int64][]tokenCount)
	totals := make(map[int64]int64)
	for _, c := range cells {
		if vectors[c.TokenID] == nil {
			vectors[c.TokenID] = make(map[int64]int64)
		}
		vectors[c.TokenID][c.ContextID] = c.Count
		inv[c.ContextID] = append(inv[c.ContextID], tokenCount{token: c.TokenID, count: c.Count})
		totals[c.TokenID] += c.Count
	}

	kindCache := make(map[int64]string, len(totals))
	eligibleTokens := make(map[int64]bool, len(totals))
	for tokenID, total := range totals {
		tok, err := store.GetTokenByID(ctx, tr.DB, tokenID)
		if err != nil {
			return nil, err
		}
		if tok == nil {
			continue
		}
		kindCache[tokenID] = tok.Kind
		if eligible(tok.Kind, total, tr.Config.CoocMinCount) {
			eligibleTokens[tokenID] = true
		}
	}

	norms := make(map[int64]float64, len(eligibleTokens))
	for tokenID := range eligibleTokens {
		var sumSq float64
		for _, count := range vectors[tokenID] {
			sumSq += float64(count) * float64(count)
		}
		norm := math.Sqrt(sumSq)
		norms[tokenID] = norm
		if err := store.UpsertNorm(ctx, tr.DB, modelID, tokenID, norm); err != nil {
			return nil, err
		}
	}

	topK := tr.Config.CoocTopK
	if topK <= 0 {
		topK = 32
	}

	neighborsWritten := 0
	type chunkResult struct {
		tokenID   int64
		neighbors []store.Neighbor
	}

	tokenIDs := make([]int64, 0, len(eligibleTokens))
	for id := range eligibleTokens {
		tokenIDs = append(tokenIDs, id)
	}
	sort.Slice(tokenIDs, func(i, j int) bool { return tokenIDs[i] < tokenIDs[j] })

	workers := 4
	if len(tokenIDs) < workers {
		workers = len(tokenIDs)
	}
	if workers < 1 {
		workers = 1
	}
	chunks := chunkTokenIDs(tokenIDs, workers)

	results := make([][]chunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for ci, chunk := range chunks {
		ci, chunk := ci, chunk
		g.Go(func() error {
			var out []chunkResult
			for _, t := range chunk {
				if gctx.Err() != nil {
					return cserrors.Canceled()
				}
				neighbors := tr.neighborsFor(modelID, t, vectors, inv, norms, eligibleTokens, topK)
				out = append(out, chunkResult{tokenID: t, neighbors: neighbors})
			}
			results[ci] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tx, err := tr.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, cserrors.Store("begin neighbor write transaction failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, chunk := range results {
		for _, r := range chunk {
			if err := store.UpsertNeighbors(ctx, tx, modelID, r.tokenID, r.neighbors); err != nil {
				return nil, err
			}
			neighborsWritten += len(r.neighbors)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, cserrors.Store("commit neighbor write transaction failed", err)
	}
	committed = true

	return &Stats{
		CellsWritten:     len(cells),
		EligibleTokens:   len(eligibleTokens),
		NeighborsWritten: neighborsWritten,
	}, nil
}

type tokenCount struct {
	token int64
	count int64
}

// neighborsFor computes token t's top-K neighbors by walking its own
// context vector and, for each context, the inverted index of other
// tokens sharing it — accumulating a running dot product per candidate
// without materializing a dense similarity matrix.
func (tr *Trainer) neighborsFor(
	modelID int,
	t int64,
	vectors map[int64]map[int64]int64,
	inv map[int64][]tokenCount,
	norms map[int64]float64,
	eligible map[int64]bool,
	topK int,
) []store.Neighbor {
	dots := make(map[int64]int64)
	for context, countT := range vectors[t] {
		for _, cand := range inv[context] {
			if cand.token == t || !eligible[cand.token] {
				continue
			}
			dots[cand.token] += countT * cand.count
		}
	}

	normT := norms[t]
	type sim struct {
		token      int64
		similarity float64
	}
	var sims []sim
	for u, dot := range dots {
		normU := norms[u]
		if normT == 0 || normU == 0 {
			continue
		}
		cos := float64(dot) / (normT * normU)
		if cos <= 0 {
			continue
		}
		sims = append(sims, sim{token: u, similarity: cos})
	}

	sort.Slice(sims, func(i, j int) bool {
		if sims[i].similarity != sims[j].similarity {
			return sims[i].similarity > sims[j].similarity
		}
		return sims[i].token < sims[j].token
	})
	if len(sims) > topK {
		sims = sims[:topK]
	}

	out := make([]store.Neighbor, len(sims))
	for i, s := range sims {
		out[i] = store.Neighbor{
			ModelID:    modelID,
			TokenID:    t,
			NeighborID: s.token,
			Similarity: quantizeSimilarity(s.similarity),
		}
	}
	return out
}

// quantizeSimilarity converts a cosine similarity in (0, 1] to a 16-bit
// unsigned fixed-point value: round(sim * 65535), clamped.
func quantizeSimilarity(sim float64) uint16 {
	v := math.Round(sim * 65535)
	if v < 0 {
		v = 0
	}
	if v > 65535 {
		v = 65535
	}
	return uint16(v)
}

// chunkTokenIDs splits ids into at most n roughly equal chunks, dealing
// them out round-robin so each chunk keeps the input order and worker
// output can be merged deterministically.
func chunkTokenIDs(ids []int64, n int) [][]int64 {
	if n <= 0 {
		n = 1
	}
	chunks := make([][]int64, n)
	for i, id := range ids {
		idx := i % n
		chunks[idx] = append(chunks[idx], id)
	}
	var out [][]int64
	for _, c := range chunks {
		if len(c) > 0 {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return [][]int64{}
	}
	return out
}
