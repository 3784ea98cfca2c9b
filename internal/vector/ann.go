package vector

import (
	"bufio"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// Index is an approximate nearest-neighbor index over dense vectors keyed
// by an already-unique int64 id (a token id or a block id). Unlike a
// store fronting caller-chosen string ids, codescope's ids are primary
// keys already, so the graph key is the id itself cast to uint64 — no
// id-mapping layer is needed.
//
// Vectors are also kept in a plain map alongside the graph: coder/hnsw's
// Graph doesn't expose a key lookup, only Search, so exact Get has to be
// served from codescope's own side.
//
// A deleted id is orphaned rather than removed from the underlying graph
// (coder/hnsw has a known issue deleting a graph's last remaining node),
// mirroring the lazy-deletion approach used elsewhere against this same
// library.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	vectors map[int64][]float32
	present map[int64]bool
}

// NewIndex creates an empty index. EfSearch and M are left at coder/hnsw's
// own defaults; codescope's corpora are local and modest in size, so the
// extra build-time knobs aren't exposed as tunables here.
func NewIndex() *Index {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	return &Index{graph: g, vectors: make(map[int64][]float32), present: make(map[int64]bool)}
}

// Add inserts or replaces a single id's vector.
func (idx *Index) Add(id int64, v []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.addLocked(id, v)
}

func (idx *Index) addLocked(id int64, v []float32) {
	idx.graph.Add(hnsw.MakeNode(uint64(id), v))
	idx.vectors[id] = v
	idx.present[id] = true
}

// BuildFromStream replaces the index contents with the given (id, vector)
// pairs, inserted in ascending id order so a rebuild from the same source
// data is deterministic regardless of map iteration order upstream.
func BuildFromStream(pairs map[int64][]float32) *Index {
	ids := make([]int64, 0, len(pairs))
	for id := range pairs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	idx := NewIndex()
	for _, id := range ids {
		idx.addLocked(id, pairs[id])
	}
	return idx
}

// Delete orphans an id so it no longer appears in Get or Search results.
func (idx *Index) Delete(id int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.present, id)
	delete(idx.vectors, id)
}

// Get returns an id's vector and whether it is present (and not deleted).
func (idx *Index) Get(id int64) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.present[id] {
		return nil, false
	}
	v, ok := idx.vectors[id]
	return v, ok
}

// Len returns the number of live (non-orphaned) ids.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.present)
}

// Neighbor is a single approximate search result.
type Neighbor struct {
	ID       int64
	Distance float32
}

// Search returns up to k approximate nearest neighbors to the query
// vector, excluding orphaned ids. It over-fetches from the underlying
// graph to absorb orphans without falling short of k.
func (idx *Index) Search(query []float32, k int) []Neighbor {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if k <= 0 || idx.graph.Len() == 0 {
		return nil
	}
	fetch := k
	if orphans := idx.graph.Len() - len(idx.present); orphans > 0 {
		fetch += orphans
	}

	nodes := idx.graph.Search(query, fetch)
	out := make([]Neighbor, 0, k)
	for _, node := range nodes {
		id := int64(node.Key)
		if !idx.present[id] {
			continue
		}
		dist := idx.graph.Distance(query, node.Value)
		out = append(out, Neighbor{ID: id, Distance: dist})
		if len(out) == k {
			break
		}
	}
	return out
}

// Save persists the graph to path (atomic temp+rename) and the set of
// live (id, vector) pairs to path+".meta".
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cserrors.Store("create ann index dir failed", err)
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return cserrors.Store("create ann index file failed", err)
	}
	if err := idx.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return cserrors.Store("export ann graph failed", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return cserrors.Store("close ann index file failed", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return cserrors.Store("rename ann index file failed", err)
	}

	return idx.saveMeta(path + ".meta")
}

type annMeta struct {
	IDs     []int64
	Vectors [][]float32
}

func (idx *Index) saveMeta(path string) error {
	ids := make([]int64, 0, len(idx.present))
	for id := range idx.present {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i] = idx.vectors[id]
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return cserrors.Store("create ann meta file failed", err)
	}
	if err := gob.NewEncoder(f).Encode(annMeta{IDs: ids, Vectors: vectors}); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return cserrors.Store("encode ann meta failed", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return cserrors.Store("close ann meta file failed", err)
	}
	return os.Rename(tmpPath, path)
}

// Load replaces the index's contents with the graph and vectors
// persisted at path / path+".meta".
func (idx *Index) Load(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	meta, err := loadMeta(path + ".meta")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return cserrors.Store("open ann index file failed", err)
	}
	defer f.Close()

	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	if err := g.Import(bufio.NewReader(f)); err != nil {
		return cserrors.Store("import ann graph failed", err)
	}

	present := make(map[int64]bool, len(meta.IDs))
	vectors := make(map[int64][]float32, len(meta.IDs))
	for i, id := range meta.IDs {
		present[id] = true
		vectors[id] = meta.Vectors[i]
	}

	idx.graph = g
	idx.present = present
	idx.vectors = vectors
	return nil
}

func loadMeta(path string) (*annMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cserrors.Store("open ann meta file failed", err)
	}
	defer f.Close()

	var meta annMeta
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return nil, cserrors.Store("decode ann meta failed", err)
	}
	return &meta, nil
}
