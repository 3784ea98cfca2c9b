package store

import (
	"context"
	"database/sql"
	"errors"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// UpsertFile inserts or updates a file row by path, returning its id.
func UpsertFile(ctx context.Context, q Querier, f *File) (int64, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO files (path, mtime, size, line_count, content_hash, indexed_at, file_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime, size = excluded.size, line_count = excluded.line_count,
			content_hash = excluded.content_hash, indexed_at = excluded.indexed_at,
			file_type = excluded.file_type`,
		f.Path, f.MTime, f.Size, f.LineCount, f.ContentHash, f.IndexedAt, f.FileType)
	if err != nil {
		return 0, cserrors.Store("upsert file failed", err)
	}
	return GetFileIDByPath(ctx, q, f.Path)
}

// GetFileIDByPath resolves a file's row id, needed because
// ON CONFLICT...DO UPDATE doesn't report LastInsertId on the update path.
func GetFileIDByPath(ctx context.Context, q Querier, path string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, path).Scan(&id)
	if err != nil {
		return 0, cserrors.Store("lookup file id failed", err)
	}
	return id, nil
}

// GetFileByPath returns the file row for path, or (nil, nil) if absent.
func GetFileByPath(ctx context.Context, q Querier, path string) (*File, error) {
	f := &File{}
	err := q.QueryRowContext(ctx, `
		SELECT id, path, mtime, size, line_count, content_hash, indexed_at, file_type
		FROM files WHERE path = ?`, path).
		Scan(&f.ID, &f.Path, &f.MTime, &f.Size, &f.LineCount, &f.ContentHash, &f.IndexedAt, &f.FileType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cserrors.Store("select file failed", err)
	}
	return f, nil
}

// GetFileByID returns the file row for id, or (nil, nil) if absent.
func GetFileByID(ctx context.Context, q Querier, id int64) (*File, error) {
	f := &File{}
	err := q.QueryRowContext(ctx, `
		SELECT id, path, mtime, size, line_count, content_hash, indexed_at, file_type
		FROM files WHERE id = ?`, id).
		Scan(&f.ID, &f.Path, &f.MTime, &f.Size, &f.LineCount, &f.ContentHash, &f.IndexedAt, &f.FileType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cserrors.Store("select file failed", err)
	}
	return f, nil
}

// ListFilePaths returns every indexed path, used by the indexer's
// reconciliation pass to find files that have been removed on disk.
func ListFilePaths(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, cserrors.Store("list file paths failed", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, cserrors.Store("scan file path failed", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListFileIDs returns every indexed file's id, used by the trainer to
// iterate the corpus file by file without a path round-trip per file.
func ListFileIDs(ctx context.Context, q Querier) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM files ORDER BY id`)
	if err != nil {
		return nil, cserrors.Store("list file ids failed", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, cserrors.Store("scan file id failed", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteFile removes a file row; ON DELETE CASCADE takes its postings,
// blocks, block-line map, line cache, and centroids with it.
func DeleteFile(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return cserrors.Store("delete file failed", err)
	}
	return nil
}

// ClearFileDerivedData deletes everything an in-place reindex must
// rebuild for a file — postings, blocks, block-line map, and line cache —
// without deleting the file row itself.
func ClearFileDerivedData(ctx context.Context, q Querier, fileID int64) error {
	stmts := []string{
		`DELETE FROM postings WHERE file_id = ?`,
		`DELETE FROM blocks WHERE file_id = ?`,
		`DELETE FROM block_line_map WHERE file_id = ?`,
		`DELETE FROM line_cache WHERE file_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt, fileID); err != nil {
			return cserrors.Store("clear file derived data failed", err)
		}
	}
	return nil
}
