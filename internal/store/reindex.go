package store

import (
	"context"
	"database/sql"

	"github.com/codescope/codescope/internal/block"
	cserrors "github.com/codescope/codescope/internal/errors"
	"github.com/codescope/codescope/internal/tokenize"
	"github.com/codescope/codescope/internal/varint"
)

// ReindexInput is everything Reindex needs to rebuild one file's derived
// data. Lines are raw, newline-stripped, 0-indexed by slice position
// (line N is Lines[N-1]).
type ReindexInput struct {
	Path        string
	MTime       int64
	Size        int64
	ContentHash string
	IndexedAt   int64
	FileType    block.FileType
	Lines       []string
	TabWidth    int
	IndentWidth int
	MaxTokenLen int
}

// ReindexStats summarizes one file's reindex, rolled up by the indexer
// into the corpus-level run report.
type ReindexStats struct {
	FileID     int64
	LineCount  int
	BlockCount int
	TokenCount int
}

// Reindex rebuilds one file's blocks, block-line map, postings, line
// cache, and token document frequencies inside a single transaction:
// clear prior derived data, run the file-type's block
// adapter, tokenize every line, write the new rows, and recompute DF for
// every token the file touches in its old or new form. A caller-visible
// partial failure never happens — the transaction commits wholesale or
// not at all.
func Reindex(ctx context.Context, db *sql.DB, in ReindexInput) (*ReindexStats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, cserrors.Store("begin reindex transaction failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	f := &File{
		Path:        in.Path,
		MTime:       in.MTime,
		Size:        in.Size,
		LineCount:   len(in.Lines),
		ContentHash: in.ContentHash,
		IndexedAt:   in.IndexedAt,
		FileType:    in.FileType.String(),
	}
	fileID, err := UpsertFile(ctx, tx, f)
	if err != nil {
		return nil, err
	}

	// Tokens that lose their only posting to this file still need their DF
	// recomputed, so the old set is captured before it's cleared.
	oldPostings, err := PostingsByFile(ctx, tx, fileID)
	if err != nil {
		return nil, err
	}

	if err := ClearFileDerivedData(ctx, tx, fileID); err != nil {
		return nil, err
	}

	adapter := block.AdapterFor(in.FileType, in.TabWidth, in.IndentWidth)
	blockResult, err := adapter.Build(in.Lines)
	if err != nil {
		return nil, cserrors.Malformed("block adapter failed", err).WithDetail("path", in.Path)
	}

	tokResult := tokenize.Tokenize(in.Lines, tokenize.Options{
		MaxTokenLen: in.MaxTokenLen,
		IsProse:     block.IsProse(in.FileType),
	})

	eligiblePerLine := make([]int, len(in.Lines))
	for i, ln := range tokResult.Lines {
		count := 0
		for _, t := range ln.Tokens {
			if t.Kind == tokenize.KindIdent || t.Kind == tokenize.KindWord || t.Kind == tokenize.KindCompound {
				count++
			}
		}
		eligiblePerLine[i] = count
	}

	blockInputs := make([]BlockInput, len(blockResult.Blocks))
	for _, b := range blockResult.Blocks {
		eligible := 0
		for ln := b.LineStart; ln <= b.LineEnd; ln++ {
			eligible += eligiblePerLine[ln-1]
		}
		blockInputs[b.ID] = BlockInput{
			LocalID:       b.ID,
			Kind:          b.Kind.String(),
			Level:         b.Level,
			LineStart:     b.LineStart,
			LineEnd:       b.LineEnd,
			Parent:        b.Parent,
			EligibleCount: eligible,
		}
	}

	rowIDs, err := InsertBlocks(ctx, tx, fileID, blockInputs)
	if err != nil {
		return nil, err
	}

	lineBlockRowIDs := make([]int64, len(blockResult.LineBlocks))
	for i, localID := range blockResult.LineBlocks {
		lineBlockRowIDs[i] = rowIDs[localID]
	}
	if err := UpsertBlockLineMap(ctx, tx, fileID, encodeBlockLineMap(lineBlockRowIDs)); err != nil {
		return nil, err
	}

	tokenLines := make(map[string][]int32)
	for i, ln := range tokResult.Lines {
		lineNo := int32(i + 1)
		seen := make(map[string]bool, len(ln.Tokens))
		for _, t := range ln.Tokens {
			if seen[t.Text] {
				continue
			}
			seen[t.Text] = true
			tokenLines[t.Text] = append(tokenLines[t.Text], lineNo)
		}
		if err := UpsertLineCacheEntry(ctx, tx, fileID, int(lineNo), in.Lines[i]); err != nil {
			return nil, err
		}
	}

	touched := make(map[int64]bool, len(tokenLines)+len(oldPostings))
	for text, lines := range tokenLines {
		kind := tokResult.Unique[text]
		tokenID, err := UpsertToken(ctx, tx, text, kind.String())
		if err != nil {
			return nil, err
		}
		if err := UpsertPosting(ctx, tx, tokenID, fileID, lines); err != nil {
			return nil, err
		}
		touched[tokenID] = true
	}
	for _, p := range oldPostings {
		touched[p.TokenID] = true
	}
	for tokenID := range touched {
		if err := UpdateDF(ctx, tx, tokenID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, cserrors.Store("commit reindex transaction failed", err)
	}
	committed = true

	return &ReindexStats{
		FileID:     fileID,
		LineCount:  len(in.Lines),
		BlockCount: len(blockResult.Blocks),
		TokenCount: len(tokenLines),
	}, nil
}

// encodeBlockLineMap varint-encodes a per-line sequence of durable block
// row ids: a leading count followed by each id as a plain (non-delta)
// unsigned varint, since consecutive lines' block ids are not generally
// ascending the way posting line lists are.
func encodeBlockLineMap(ids []int64) []byte {
	buf := varint.Encode(nil, uint64(len(ids)))
	for _, id := range ids {
		buf = varint.Encode(buf, uint64(id))
	}
	return buf
}

// decodeBlockLineMap reverses encodeBlockLineMap.
func decodeBlockLineMap(data []byte) ([]int64, error) {
	if len(data) == 0 {
		return nil, nil
	}
	count, off, err := varint.DecodeBytes(data, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, count)
	for i := uint64(0); i < count; i++ {
		v, next, err := varint.DecodeBytes(data, off)
		if err != nil {
			return nil, err
		}
		ids = append(ids, int64(v))
		off = next
	}
	return ids, nil
}

// DecodeBlockLineMap exposes decodeBlockLineMap for callers (outline,
// terms commands) that read back the stored map via GetBlockLineMap.
func DecodeBlockLineMap(data []byte) ([]int64, error) {
	ids, err := decodeBlockLineMap(data)
	if err != nil {
		return nil, cserrors.Malformed("corrupt block line map", err)
	}
	return ids, nil
}
