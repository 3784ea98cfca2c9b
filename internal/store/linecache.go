package store

import (
	"context"
	"database/sql"
	"errors"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// UpsertLineCacheEntry stores a line's raw text, used only for header
// display and outline.
func UpsertLineCacheEntry(ctx context.Context, q Querier, fileID int64, lineNo int, text string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO line_cache (file_id, line_no, text) VALUES (?, ?, ?)
		ON CONFLICT(file_id, line_no) DO UPDATE SET text = excluded.text`, fileID, lineNo, text)
	if err != nil {
		return cserrors.Store("upsert line cache entry failed", err)
	}
	return nil
}

// GetLine returns the cached text for (fileID, lineNo), or ("", false)
// if not cached.
func GetLine(ctx context.Context, q Querier, fileID int64, lineNo int) (string, bool, error) {
	var text string
	err := q.QueryRowContext(ctx, `SELECT text FROM line_cache WHERE file_id = ? AND line_no = ?`, fileID, lineNo).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, cserrors.Store("select line cache failed", err)
	}
	return text, true, nil
}

// GetLines returns cached lines for a file in [start, end], keyed by
// line number, for snippet carving.
func GetLines(ctx context.Context, q Querier, fileID int64, start, end int) (map[int]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT line_no, text FROM line_cache WHERE file_id = ? AND line_no BETWEEN ? AND ?`,
		fileID, start, end)
	if err != nil {
		return nil, cserrors.Store("select line range failed", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var n int
		var t string
		if err := rows.Scan(&n, &t); err != nil {
			return nil, cserrors.Store("scan cached line failed", err)
		}
		out[n] = t
	}
	return out, rows.Err()
}
