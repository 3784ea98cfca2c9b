package store

import (
	"context"
	"strconv"

	cserrors "github.com/codescope/codescope/internal/errors"
	"github.com/codescope/codescope/internal/varint"
)

// UpsertPosting writes a (token, file) posting, replacing any existing
// row for the pair — postings are always rewritten wholesale on reindex,
// never incrementally patched.
func UpsertPosting(ctx context.Context, q Querier, tokenID, fileID int64, lines []int32) error {
	blob := varint.EncodeLines(lines)
	_, err := q.ExecContext(ctx, `
		INSERT INTO postings (token_id, file_id, tf, lines) VALUES (?, ?, ?, ?)
		ON CONFLICT(token_id, file_id) DO UPDATE SET tf = excluded.tf, lines = excluded.lines`,
		tokenID, fileID, len(lines), blob)
	if err != nil {
		return cserrors.Store("upsert posting failed", err)
	}
	return nil
}

// PostingsByToken returns every (file, tf, lines) posting for a token.
func PostingsByToken(ctx context.Context, q Querier, tokenID int64) ([]Posting, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT token_id, file_id, tf, lines FROM postings WHERE token_id = ?`, tokenID)
	if err != nil {
		return nil, cserrors.Store("select postings by token failed", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

// PostingsByFile returns every posting for a file (used to rebuild a
// file's eligible-token counts and for outline/terms commands).
func PostingsByFile(ctx context.Context, q Querier, fileID int64) ([]Posting, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT token_id, file_id, tf, lines FROM postings WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, cserrors.Store("select postings by file failed", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

func scanPostings(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]Posting, error) {
	var out []Posting
	for rows.Next() {
		var p Posting
		var blob []byte
		if err := rows.Scan(&p.TokenID, &p.FileID, &p.TF, &blob); err != nil {
			return nil, cserrors.Store("scan posting failed", err)
		}
		lines, err := varint.DecodeLines(blob)
		if err != nil {
			return nil, cserrors.Malformed("corrupt posting line list", err).WithDetail("token_id", strconv.FormatInt(p.TokenID, 10))
		}
		p.Lines = lines
		out = append(out, p)
	}
	return out, rows.Err()
}
