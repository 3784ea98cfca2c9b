package store

import (
	"context"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// ClearModel deletes every co-occurrence cell, norm, and neighbor row for
// a model, the first step of retraining it.
func ClearModel(ctx context.Context, q Querier, modelID int) error {
	for _, table := range []string{"cooc_cells", "norms", "neighbors"} {
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE model_id = ?`, modelID); err != nil {
			return cserrors.Store("clear model failed", err)
		}
	}
	return nil
}

// UpsertCoocCell adds delta to the symmetric (token, context) count for a
// model, creating the row if absent. Callers accumulate the canonical
// (lower token id first) pair in memory and then write both directions.
func UpsertCoocCell(ctx context.Context, q Querier, modelID int, tokenID, contextID int64, delta int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cooc_cells (model_id, token_id, context_id, count) VALUES (?, ?, ?, ?)
		ON CONFLICT(model_id, token_id, context_id) DO UPDATE SET count = count + excluded.count`,
		modelID, tokenID, contextID, delta)
	if err != nil {
		return cserrors.Store("upsert cooc cell failed", err)
	}
	return nil
}

// CellsForToken returns one token's co-occurrence row for a model —
// every (context, count) pair, the same "v_t" row the block centroid
// rollup and the scorer's centroid-mode query vector both average.
func CellsForToken(ctx context.Context, q Querier, modelID int, tokenID int64) ([]CoocCell, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT model_id, token_id, context_id, count FROM cooc_cells
		WHERE model_id = ? AND token_id = ?`, modelID, tokenID)
	if err != nil {
		return nil, cserrors.Store("select cooc cells for token failed", err)
	}
	defer rows.Close()

	var out []CoocCell
	for rows.Next() {
		var c CoocCell
		if err := rows.Scan(&c.ModelID, &c.TokenID, &c.ContextID, &c.Count); err != nil {
			return nil, cserrors.Store("scan cooc cell failed", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CellsForModel streams every cell of a model, used by neighbor
// computation to build the in-memory vectors/inverted-index/totals maps.
func CellsForModel(ctx context.Context, q Querier, modelID int) ([]CoocCell, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT model_id, token_id, context_id, count FROM cooc_cells WHERE model_id = ?`, modelID)
	if err != nil {
		return nil, cserrors.Store("select cooc cells failed", err)
	}
	defer rows.Close()

	var out []CoocCell
	for rows.Next() {
		var c CoocCell
		if err := rows.Scan(&c.ModelID, &c.TokenID, &c.ContextID, &c.Count); err != nil {
			return nil, cserrors.Store("scan cooc cell failed", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertNorm caches a token's L2 norm for a model.
func UpsertNorm(ctx context.Context, q Querier, modelID int, tokenID int64, norm float64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO norms (model_id, token_id, norm) VALUES (?, ?, ?)
		ON CONFLICT(model_id, token_id) DO UPDATE SET norm = excluded.norm`, modelID, tokenID, norm)
	if err != nil {
		return cserrors.Store("upsert norm failed", err)
	}
	return nil
}

// GetNorm returns a token's cached norm for a model, or (0, false).
func GetNorm(ctx context.Context, q Querier, modelID int, tokenID int64) (float64, bool, error) {
	var n float64
	err := q.QueryRowContext(ctx, `SELECT norm FROM norms WHERE model_id = ? AND token_id = ?`, modelID, tokenID).Scan(&n)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}
