// Package expand implements query expansion: turn a raw query
// string into, for each distinct query token, a ranked list of
// expanded tokens the scorer should also credit — starting with the
// query token itself at full weight, optionally followed by its
// trained co-occurrence neighbors.
package expand

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/codescope/codescope/internal/store"
	"github.com/codescope/codescope/internal/tokenize"
)

// Mode selects which trained model(s), if any, contribute neighbors.
type Mode string

const (
	ModeNone  Mode = "none"
	ModeLine  Mode = "line"
	ModeBlock Mode = "block"
	ModeAll   Mode = "all"
)

// ParseMode maps a CLI/config string to a Mode, defaulting to ModeNone
// for anything unrecognized.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLine:
		return ModeLine
	case ModeBlock:
		return ModeBlock
	case ModeAll:
		return ModeAll
	default:
		return ModeNone
	}
}

// lowerCaseFallbackPenalty is subtracted from identity similarity when a
// query token only matched after lower-casing.
const lowerCaseFallbackPenalty = 0.05

// Candidate is one expanded token contributing to a query token's
// evidence, together with the similarity the scorer should weight it
// by.
type Candidate struct {
	Token      string
	TokenID    int64
	Kind       string
	Similarity float64
}

// Expansion is the full set of candidates for one distinct query token.
type Expansion struct {
	QueryToken string
	Candidates []Candidate
}

// Options parameterizes expansion with the query-time knobs.
type Options struct {
	Mode          Mode
	TopM          int
	MinSimilarity float64
	MaxDFPercent  float64
}

// Expand tokenizes the query and builds one Expansion per distinct query
// token (in order of first appearance).
func Expand(ctx context.Context, db *sql.DB, query string, opts Options) ([]Expansion, error) {
	tokResult := tokenize.Tokenize([]string{query}, tokenize.Options{IsProse: true})

	totalFiles, err := store.TotalFileCount(ctx, db)
	if err != nil {
		return nil, err
	}

	var out []Expansion
	seen := make(map[string]bool)
	if len(tokResult.Lines) == 0 {
		return out, nil
	}
	for _, tok := range tokResult.Lines[0].Tokens {
		if seen[tok.Text] {
			continue
		}
		seen[tok.Text] = true

		ex, err := expandOne(ctx, db, tok.Text, opts, totalFiles)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func expandOne(ctx context.Context, db *sql.DB, text string, opts Options, totalFiles int) (Expansion, error) {
	exact, err := store.GetTokenByText(ctx, db, text)
	if err != nil {
		return Expansion{}, err
	}

	identitySim := 1.0
	matched := exact
	if matched == nil {
		lower, err := store.GetTokenByText(ctx, db, strings.ToLower(text))
		if err != nil {
			return Expansion{}, err
		}
		if lower != nil {
			matched = lower
			identitySim = 1.0 - lowerCaseFallbackPenalty
		}
	}

	ex := Expansion{QueryToken: text}
	if matched == nil {
		// Unknown token: identity-only, full weight, nothing to expand.
		ex.Candidates = []Candidate{{Token: text, TokenID: 0, Kind: "", Similarity: 1.0}}
		return ex, nil
	}
	ex.Candidates = []Candidate{{Token: matched.Text, TokenID: matched.ID, Kind: matched.Kind, Similarity: identitySim}}

	if opts.Mode == ModeNone {
		return ex, nil
	}

	neighbors, err := neighborsFor(ctx, db, matched.ID, opts)
	if err != nil {
		return Expansion{}, err
	}

	topM := opts.TopM
	if topM <= 0 {
		topM = 8
	}
	if len(neighbors) > topM {
		neighbors = neighbors[:topM]
	}

	for _, n := range neighbors {
		if n.similarity < opts.MinSimilarity {
			continue
		}
		tok, err := store.GetTokenByID(ctx, db, n.tokenID)
		if err != nil {
			return Expansion{}, err
		}
		if tok == nil {
			continue
		}
		if totalFiles > 0 {
			dfPercent := 100.0 * float64(tok.DF) / float64(totalFiles)
			if dfPercent > opts.MaxDFPercent {
				continue
			}
		}
		ex.Candidates = append(ex.Candidates, Candidate{
			Token: tok.Text, TokenID: tok.ID, Kind: tok.Kind, Similarity: n.similarity,
		})
	}

	return ex, nil
}

type scoredNeighbor struct {
	tokenID    int64
	similarity float64
}

// neighborsFor fetches one or both trained models' neighbor lists for a
// token and, when both are requested, merges them by reciprocal-rank
// fusion so a neighbor strongly ranked under either model surfaces
// early. The fused similarity reported onward is the stronger of the
// two underlying cosine similarities, since RRF rank alone discards the
// magnitude the scorer still needs to weight by.
func neighborsFor(ctx context.Context, db *sql.DB, tokenID int64, opts Options) ([]scoredNeighbor, error) {
	var modelIDs []int
	switch opts.Mode {
	case ModeLine:
		modelIDs = []int{store.ModelLine}
	case ModeBlock:
		modelIDs = []int{store.ModelScope}
	case ModeAll:
		modelIDs = []int{store.ModelLine, store.ModelScope}
	default:
		return nil, nil
	}

	lists := make([][]store.Neighbor, 0, len(modelIDs))
	for _, modelID := range modelIDs {
		ns, err := store.NeighborsOf(ctx, db, modelID, tokenID)
		if err != nil {
			return nil, err
		}
		lists = append(lists, ns)
	}

	if len(lists) == 1 {
		out := make([]scoredNeighbor, len(lists[0]))
		for i, n := range lists[0] {
			out[i] = scoredNeighbor{tokenID: n.NeighborID, similarity: quantizedToFloat(n.Similarity)}
		}
		return out, nil
	}

	return rrfMerge(lists), nil
}

// rrfConst is the standard reciprocal-rank-fusion smoothing constant.
const rrfConst = 60.0

func rrfMerge(lists [][]store.Neighbor) []scoredNeighbor {
	rrfScore := make(map[int64]float64)
	bestSim := make(map[int64]float64)

	for _, list := range lists {
		for rank, n := range list {
			rrfScore[n.NeighborID] += 1.0 / (rrfConst + float64(rank+1))
			sim := quantizedToFloat(n.Similarity)
			if sim > bestSim[n.NeighborID] {
				bestSim[n.NeighborID] = sim
			}
		}
	}

	ids := make([]int64, 0, len(rrfScore))
	for id := range rrfScore {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if rrfScore[ids[i]] != rrfScore[ids[j]] {
			return rrfScore[ids[i]] > rrfScore[ids[j]]
		}
		return ids[i] < ids[j]
	})

	out := make([]scoredNeighbor, len(ids))
	for i, id := range ids {
		out[i] = scoredNeighbor{tokenID: id, similarity: bestSim[id]}
	}
	return out
}

func quantizedToFloat(sim uint16) float64 {
	return float64(sim) / 65535.0
}
