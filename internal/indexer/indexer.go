// Package indexer orchestrates the per-file indexing pipeline: discover
// candidate files with the scanner, skip ones whose content hash hasn't
// changed, reindex the rest through the store's atomic per-file
// transaction, and reconcile files that have disappeared from disk.
package indexer

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codescope/codescope/internal/config"
	cserrors "github.com/codescope/codescope/internal/errors"
	"github.com/codescope/codescope/internal/scanner"
	"github.com/codescope/codescope/internal/store"
)

// Stats summarizes one indexing run.
type Stats struct {
	FilesIndexed int
	FilesSkipped int
	FilesRemoved int
	TotalTokens  int
	Elapsed      time.Duration
}

// Indexer walks a workspace root and keeps the store's derived data in
// sync with what's on disk.
type Indexer struct {
	DB     *sql.DB
	Root   string
	Config *config.Config
	Logger *slog.Logger
	Scan   *scanner.Scanner
}

// New constructs an Indexer. logger may be nil, in which case a discard
// logger is used.
func New(db *sql.DB, root string, cfg *config.Config, logger *slog.Logger) (*Indexer, error) {
	s, err := scanner.New()
	if err != nil {
		return nil, cserrors.Store("create scanner failed", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}
	return &Indexer{DB: db, Root: root, Config: cfg, Logger: logger, Scan: s}, nil
}

// Run performs one full index pass: scan, reindex changed files
// (bounded worker fan-out feeding the single DB writer), then
// reconcile files removed from disk. File-level failures are logged and
// skipped; a corpus-level failure (scan setup, DB errors during
// reconciliation) aborts the run with a typed error.
func (ix *Indexer) Run(ctx context.Context) (*Stats, error) {
	return ix.RunSubtree(ctx, "")
}

// RunSubtree indexes only the subtree rooted at rel (relative to the
// workspace root), used by the watcher for incremental reindexing. An
// empty rel indexes the whole workspace and also runs the
// removed-file reconciliation pass; a non-empty rel skips reconciliation
// since it has no visibility into files outside the subtree.
func (ix *Indexer) RunSubtree(ctx context.Context, rel string) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	opts := &scanner.ScanOptions{
		RootDir:         ix.Root,
		ExcludePatterns: ix.Config.Paths.Exclude,
		IncludePatterns: ix.Config.Paths.Include,
	}
	if _, err := os.Stat(filepath.Join(ix.Root, ".gitignore")); err == nil {
		opts.RespectGitignore = true
	}

	var results <-chan scanner.ScanResult
	var err error
	if rel == "" {
		results, err = ix.Scan.Scan(ctx, opts)
	} else {
		results, err = ix.Scan.ScanSubtree(ctx, opts, rel)
	}
	if err != nil {
		return nil, cserrors.Store("scan failed", err)
	}

	workers := ix.Config.Performance.IndexWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type job struct {
		file *scanner.FileInfo
	}
	type outcome struct {
		skipped bool
		tokens  int
		failed  bool
	}

	jobs := make(chan job)
	outcomes := make(chan outcome)
	writerInputs := make(chan store.ReindexInput)

	g, gctx := errgroup.WithContext(ctx)

	// Feeder: pulls scan results into the job channel, closing it once
	// the scan is exhausted so the reader pool below knows to stop.
	g.Go(func() error {
		defer close(jobs)
		for {
			select {
			case <-gctx.Done():
				return cserrors.Canceled()
			case res, ok := <-results:
				if !ok {
					return nil
				}
				if res.Error != nil {
					ix.Logger.Warn("scan error, skipping", "error", res.Error)
					continue
				}
				select {
				case jobs <- job{file: res.File}:
				case <-gctx.Done():
					return cserrors.Canceled()
				}
			}
		}
	})

	// Readers: I/O-bound fan-out that hashes and reads file content off
	// the critical path, then hands prepared input to the single writer.
	// A plain WaitGroup (not the errgroup) tracks just this pool, so
	// writerInputs can be closed as soon as every reader has exited —
	// closing it from the errgroup's own Wait would deadlock, since the
	// writer below is itself one of the goroutines Wait is blocking on.
	var readerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		readerWG.Add(1)
		g.Go(func() error {
			defer readerWG.Done()
			for j := range jobs {
				in, changed, rerr := ix.prepareFile(gctx, j.file)
				if rerr != nil {
					ix.Logger.Warn("file read failed, skipping", "path", j.file.Path, "error", rerr)
					select {
					case outcomes <- outcome{failed: true}:
					case <-gctx.Done():
						return nil
					}
					continue
				}
				if !changed {
					select {
					case outcomes <- outcome{skipped: true}:
					case <-gctx.Done():
						return nil
					}
					continue
				}
				select {
				case writerInputs <- *in:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	go func() {
		readerWG.Wait()
		close(writerInputs)
	}()

	// Single writer: every store mutation for this run flows through
	// here, keeping SQLite contention-free under concurrent readers.
	g.Go(func() error {
		for in := range writerInputs {
			rs, rerr := store.Reindex(gctx, ix.DB, in)
			if rerr != nil {
				ix.Logger.Warn("reindex failed, skipping", "path", in.Path, "error", rerr)
				select {
				case outcomes <- outcome{failed: true}:
				case <-gctx.Done():
					return nil
				}
				continue
			}
			select {
			case outcomes <- outcome{tokens: rs.TokenCount}:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		switch {
		case o.failed, o.skipped:
			stats.FilesSkipped++
		default:
			stats.FilesIndexed++
			stats.TotalTokens += o.tokens
		}
	}

	if err := <-done; err != nil && !cserrors.IsKind(err, cserrors.KindCanceled) {
		return stats, err
	}
	if ctx.Err() != nil {
		return stats, cserrors.Canceled()
	}

	if rel == "" {
		removed, err := ix.reconcileRemoved(ctx)
		if err != nil {
			return stats, err
		}
		stats.FilesRemoved = removed
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

// prepareFile reads a file, hashes its content, and compares it against
// the stored hash. changed is false when the file is already up to
// date and should be skipped.
func (ix *Indexer) prepareFile(ctx context.Context, fi *scanner.FileInfo) (*store.ReindexInput, bool, error) {
	raw, err := os.ReadFile(fi.AbsPath)
	if err != nil {
		return nil, false, cserrors.FileRead("read file failed", err).WithDetail("path", fi.Path)
	}

	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	existing, err := store.GetFileByPath(ctx, ix.DB, fi.Path)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && existing.ContentHash == hash {
		return nil, false, nil
	}

	lines := splitLines(string(raw))
	in := &store.ReindexInput{
		Path:        fi.Path,
		MTime:       fi.ModTime.Unix(),
		Size:        fi.Size,
		ContentHash: hash,
		IndexedAt:   time.Now().Unix(),
		FileType:    fi.FileType,
		Lines:       lines,
		TabWidth:    ix.Config.Index.TabWidth,
		IndentWidth: 0, // auto-detect; not pinned by config
		MaxTokenLen: ix.Config.Index.MaxTokenLen,
	}
	return in, true, nil
}

// reconcileRemoved deletes file rows (and, by cascade, their derived
// data) for paths that no longer exist on disk.
func (ix *Indexer) reconcileRemoved(ctx context.Context) (int, error) {
	paths, err := store.ListFilePaths(ctx, ix.DB)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range paths {
		if ctx.Err() != nil {
			return removed, cserrors.Canceled()
		}
		abs := filepath.Join(ix.Root, p)
		if _, err := os.Stat(abs); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			continue
		}
		f, err := store.GetFileByPath(ctx, ix.DB, p)
		if err != nil {
			return removed, err
		}
		if f == nil {
			continue
		}
		if err := store.DeleteFile(ctx, ix.DB, f.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
