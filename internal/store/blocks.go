package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// InsertBlocks writes a file's block forest in the order given, which
// must be topological (parents before children) so the localToRow map
// can resolve a block's parent from its adapter-local id to its freshly
// assigned row id. Parent == -1 is never looked up; such a block is stored with
// parent_id = 0 (root sentinel).
func InsertBlocks(ctx context.Context, q Querier, fileID int64, blocks []BlockInput) ([]int64, error) {
	ids := make([]int64, len(blocks))
	localToRow := make(map[int]int64, len(blocks))

	for _, b := range blocks {
		var parentRow int64
		if b.Parent >= 0 {
			row, ok := localToRow[b.Parent]
			if !ok {
				return nil, cserrors.Store("block parent inserted out of order", nil).
					WithDetail("local_id", strconv.Itoa(b.LocalID))
			}
			parentRow = row
		}

		res, err := q.ExecContext(ctx, `
			INSERT INTO blocks (file_id, kind, level, line_start, line_end, parent_id, eligible_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			fileID, b.Kind, b.Level, b.LineStart, b.LineEnd, parentRow, b.EligibleCount)
		if err != nil {
			return nil, cserrors.Store("insert block failed", err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return nil, cserrors.Store("block row id failed", err)
		}
		localToRow[b.LocalID] = rowID
		ids[b.LocalID] = rowID
	}
	return ids, nil
}

// BlockInput is the adapter-local view of a block, input to InsertBlocks.
type BlockInput struct {
	LocalID       int
	Kind          string
	Level         int
	LineStart     int
	LineEnd       int
	Parent        int // adapter-local id, or -1 for root
	EligibleCount int
}

// BlocksByFile returns every block row for a file, ordered by id (which
// is also insertion / topological order).
func BlocksByFile(ctx context.Context, q Querier, fileID int64) ([]Block, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, file_id, kind, level, line_start, line_end, parent_id, eligible_count
		FROM blocks WHERE file_id = ? ORDER BY id`, fileID)
	if err != nil {
		return nil, cserrors.Store("select blocks by file failed", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.ID, &b.FileID, &b.Kind, &b.Level, &b.LineStart, &b.LineEnd, &b.ParentID, &b.EligibleCount); err != nil {
			return nil, cserrors.Store("scan block failed", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBlockByID returns a single block row, or (nil, nil) if absent.
func GetBlockByID(ctx context.Context, q Querier, id int64) (*Block, error) {
	b := &Block{}
	err := q.QueryRowContext(ctx, `
		SELECT id, file_id, kind, level, line_start, line_end, parent_id, eligible_count
		FROM blocks WHERE id = ?`, id).
		Scan(&b.ID, &b.FileID, &b.Kind, &b.Level, &b.LineStart, &b.LineEnd, &b.ParentID, &b.EligibleCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cserrors.Store("select block failed", err)
	}
	return b, nil
}

// ChildrenOf returns the direct children of a block, in line order.
func ChildrenOf(ctx context.Context, q Querier, parentID int64) ([]Block, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, file_id, kind, level, line_start, line_end, parent_id, eligible_count
		FROM blocks WHERE parent_id = ? ORDER BY line_start`, parentID)
	if err != nil {
		return nil, cserrors.Store("select block children failed", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.ID, &b.FileID, &b.Kind, &b.Level, &b.LineStart, &b.LineEnd, &b.ParentID, &b.EligibleCount); err != nil {
			return nil, cserrors.Store("scan block child failed", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertBlockLineMap stores a file's varint-encoded block-line map blob.
func UpsertBlockLineMap(ctx context.Context, q Querier, fileID int64, blob []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO block_line_map (file_id, data) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET data = excluded.data`, fileID, blob)
	if err != nil {
		return cserrors.Store("upsert block line map failed", err)
	}
	return nil
}

// GetBlockLineMap returns the raw blob for a file, or nil if absent.
func GetBlockLineMap(ctx context.Context, q Querier, fileID int64) ([]byte, error) {
	var blob []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM block_line_map WHERE file_id = ?`, fileID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cserrors.Store("select block line map failed", err)
	}
	return blob, nil
}
