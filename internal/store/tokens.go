package store

import (
	"context"
	"database/sql"
	"errors"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// UpsertToken creates the token if it doesn't exist (DF left at its
// current value — DF is recomputed separately, see UpdateDF) and returns
// its id. Tokens are never deleted individually; they persist across
// reindexes for DF stability.
func UpsertToken(ctx context.Context, q Querier, text string, kind string) (int64, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tokens (text, kind, df) VALUES (?, ?, 0)
		ON CONFLICT(text) DO NOTHING`, text, kind)
	if err != nil {
		return 0, cserrors.Store("upsert token failed", err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM tokens WHERE text = ?`, text).Scan(&id); err != nil {
		return 0, cserrors.Store("lookup token id failed", err)
	}
	return id, nil
}

// GetTokenByText returns the token row, or (nil, nil) if unknown.
func GetTokenByText(ctx context.Context, q Querier, text string) (*Token, error) {
	t := &Token{}
	err := q.QueryRowContext(ctx, `SELECT id, text, kind, df FROM tokens WHERE text = ?`, text).
		Scan(&t.ID, &t.Text, &t.Kind, &t.DF)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cserrors.Store("select token failed", err)
	}
	return t, nil
}

// GetTokenByID returns the token row, or (nil, nil) if unknown.
func GetTokenByID(ctx context.Context, q Querier, id int64) (*Token, error) {
	t := &Token{}
	err := q.QueryRowContext(ctx, `SELECT id, text, kind, df FROM tokens WHERE id = ?`, id).
		Scan(&t.ID, &t.Text, &t.Kind, &t.DF)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cserrors.Store("select token failed", err)
	}
	return t, nil
}

// MarkTokenKeyword flags a token as a learned keyword, a post-hoc
// classification from corpus header/footer analysis rather than
// something the tokenizer assigns at index time.
func MarkTokenKeyword(ctx context.Context, q Querier, tokenID int64) error {
	_, err := q.ExecContext(ctx, `UPDATE tokens SET kind = 'keyword' WHERE id = ?`, tokenID)
	if err != nil {
		return cserrors.Store("mark token keyword failed", err)
	}
	return nil
}

// AllTokens returns every token row, used by the keywords command's
// corpus-wide header/footer scan.
func AllTokens(ctx context.Context, q Querier) ([]Token, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, text, kind, df FROM tokens`)
	if err != nil {
		return nil, cserrors.Store("select all tokens failed", err)
	}
	defer rows.Close()

	var out []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.ID, &t.Text, &t.Kind, &t.DF); err != nil {
			return nil, cserrors.Store("scan token failed", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateDF recomputes a token's document frequency as the count of
// distinct files holding a posting for it.
func UpdateDF(ctx context.Context, q Querier, tokenID int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE tokens SET df = (SELECT COUNT(DISTINCT file_id) FROM postings WHERE token_id = ?)
		WHERE id = ?`, tokenID, tokenID)
	if err != nil {
		return cserrors.Store("update df failed", err)
	}
	return nil
}

// TotalFileCount returns the number of indexed files, the corpus size
// used by IDF.
func TotalFileCount(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, cserrors.Store("count files failed", err)
	}
	return n, nil
}
