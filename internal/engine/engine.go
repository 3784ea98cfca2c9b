// Package engine wires the workspace root, configuration, store, and ANN
// indexes into a single value constructed once at process entry and
// passed explicitly to every command — no process-wide singletons.
package engine

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/lock"
	"github.com/codescope/codescope/internal/store"
	"github.com/codescope/codescope/internal/vector"
)

// Paths resolves the on-disk layout for a workspace root.
type Paths struct {
	Root            string
	CacheDir        string
	DBPath          string
	TokenLineANN    string
	TokenBlockANN   string
	CentroidANN     string
}

// ResolvePaths computes the workspace layout for root.
func ResolvePaths(root string) Paths {
	cacheDir := filepath.Join(root, ".cache")
	return Paths{
		Root:          root,
		CacheDir:      cacheDir,
		DBPath:        filepath.Join(cacheDir, "codescope.db"),
		TokenLineANN:  filepath.Join(cacheDir, "codescope.token.line.ann"),
		TokenBlockANN: filepath.Join(cacheDir, "codescope.token.block.ann"),
		CentroidANN:   filepath.Join(cacheDir, "codescope.centroid.block.ann"),
	}
}

// Engine is the one wiring value every command operates against: the
// workspace root, its resolved configuration, the durable store, the
// write lock, and the three ANN indexes.
type Engine struct {
	Root   string
	Paths  Paths
	Config *config.Config
	Store  *store.Store
	Lock   *lock.WriteLock

	TokenLineANN  *vector.Index
	TokenBlockANN *vector.Index
	CentroidANN   *vector.Index
}

// Open loads configuration, opens the store, and loads whatever ANN
// indexes already exist on disk (a fresh workspace simply has empty
// ones). It does not acquire the write lock — callers that mutate the
// store do that explicitly around the operation that needs exclusivity.
func Open(root string) (*Engine, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	paths := ResolvePaths(root)

	db, err := store.Open(paths.DBPath)
	if err != nil {
		return nil, err
	}

	eng := &Engine{
		Root:   root,
		Paths:  paths,
		Config: cfg,
		Store:  db,
		Lock:   lock.New(paths.CacheDir),
	}

	eng.TokenLineANN, err = loadOrEmpty(paths.TokenLineANN)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	eng.TokenBlockANN, err = loadOrEmpty(paths.TokenBlockANN)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	eng.CentroidANN, err = loadOrEmpty(paths.CentroidANN)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return eng, nil
}

func loadOrEmpty(path string) (*vector.Index, error) {
	idx := vector.NewIndex()
	if err := idx.Load(path); err != nil {
		// A missing ANN file just means nothing has been trained yet;
		// any other failure is a genuinely corrupt on-disk index.
		if errors.Is(err, fs.ErrNotExist) {
			return vector.NewIndex(), nil
		}
		return nil, err
	}
	return idx, nil
}

// Save persists every ANN index to its workspace path.
func (e *Engine) Save() error {
	if err := e.TokenLineANN.Save(e.Paths.TokenLineANN); err != nil {
		return err
	}
	if err := e.TokenBlockANN.Save(e.Paths.TokenBlockANN); err != nil {
		return err
	}
	if err := e.CentroidANN.Save(e.Paths.CentroidANN); err != nil {
		return err
	}
	return nil
}

// Close releases the store and, if held, the write lock.
func (e *Engine) Close() error {
	_ = e.Lock.Unlock()
	return e.Store.Close()
}
