package store

import (
	"context"
	"database/sql"
	"errors"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// UpsertBlockCentroid stores a block's quantized int16 dense vector for a
// model.
func UpsertBlockCentroid(ctx context.Context, q Querier, blockID int64, modelID int, vector []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO block_centroids (block_id, model_id, vector) VALUES (?, ?, ?)
		ON CONFLICT(block_id, model_id) DO UPDATE SET vector = excluded.vector`, blockID, modelID, vector)
	if err != nil {
		return cserrors.Store("upsert block centroid failed", err)
	}
	return nil
}

// GetBlockCentroid returns a block's dense vector blob for a model, or
// (nil, false) if the block had no eligible tokens to project.
func GetBlockCentroid(ctx context.Context, q Querier, blockID int64, modelID int) ([]byte, bool, error) {
	var blob []byte
	err := q.QueryRowContext(ctx, `SELECT vector FROM block_centroids WHERE block_id = ? AND model_id = ?`, blockID, modelID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cserrors.Store("select block centroid failed", err)
	}
	return blob, true, nil
}
