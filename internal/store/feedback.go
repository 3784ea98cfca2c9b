package store

import (
	"context"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// InsertFeedbackEvent records a mark event. Feedback is stored but does
// not influence retrieval — an opaque write target.
func InsertFeedbackEvent(ctx context.Context, q Querier, e *FeedbackEvent) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO feedback_events (result_id, kind, note, created_at) VALUES (?, ?, ?, ?)`,
		e.ResultID, e.Kind, e.Note, e.CreatedAt)
	if err != nil {
		return cserrors.Store("insert feedback event failed", err)
	}
	return nil
}

// UpsertFeedbackStats increments the rolling count for a mark kind, used
// only by the read-only stats report.
func UpsertFeedbackStats(ctx context.Context, q Querier, kind string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO feedback_stats (kind, count) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET count = count + 1`, kind)
	if err != nil {
		return cserrors.Store("upsert feedback stats failed", err)
	}
	return nil
}

// FeedbackStats returns the rolling count per mark kind.
func FeedbackStats(ctx context.Context, q Querier) (map[string]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT kind, count FROM feedback_stats`)
	if err != nil {
		return nil, cserrors.Store("select feedback stats failed", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, cserrors.Store("scan feedback stats failed", err)
		}
		out[kind] = count
	}
	return out, rows.Err()
}
