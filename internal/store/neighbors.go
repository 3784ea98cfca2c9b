package store

import (
	"context"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// UpsertNeighbors writes the top-K neighbor rows for a token in a model,
// replacing any prior rows for that (model, token) pair.
func UpsertNeighbors(ctx context.Context, q Querier, modelID int, tokenID int64, neighbors []Neighbor) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM neighbors WHERE model_id = ? AND token_id = ?`, modelID, tokenID); err != nil {
		return cserrors.Store("clear neighbors failed", err)
	}
	for _, n := range neighbors {
		_, err := q.ExecContext(ctx, `
			INSERT INTO neighbors (model_id, token_id, neighbor_id, similarity) VALUES (?, ?, ?, ?)`,
			modelID, tokenID, n.NeighborID, n.Similarity)
		if err != nil {
			return cserrors.Store("insert neighbor failed", err)
		}
	}
	return nil
}

// NeighborsOf returns a token's top-K neighbors for a model, ordered by
// descending similarity.
func NeighborsOf(ctx context.Context, q Querier, modelID int, tokenID int64) ([]Neighbor, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT model_id, token_id, neighbor_id, similarity FROM neighbors
		WHERE model_id = ? AND token_id = ? ORDER BY similarity DESC`, modelID, tokenID)
	if err != nil {
		return nil, cserrors.Store("select neighbors failed", err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ModelID, &n.TokenID, &n.NeighborID, &n.Similarity); err != nil {
			return nil, cserrors.Store("scan neighbor failed", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
