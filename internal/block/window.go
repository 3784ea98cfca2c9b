package block

// WindowAdapter is the fallback producer for files with no recognizable
// structure: fixed-size overlapping windows. Files at or under Size lines
// become a single block.
type WindowAdapter struct {
	// Size is the window length in lines (default 50).
	Size int
	// Overlap is how many trailing lines of one window reappear as the
	// leading lines of the next (default 10).
	Overlap int
}

const (
	defaultWindowSize    = 50
	defaultWindowOverlap = 10
)

func (a *WindowAdapter) Name() string { return "window" }

func (a *WindowAdapter) Build(lines []string) (*Result, error) {
	n := len(lines)
	res := &Result{LineBlocks: make([]int, n)}
	if n == 0 {
		return res, nil
	}

	size := a.Size
	if size <= 0 {
		size = defaultWindowSize
	}
	overlap := a.Overlap
	if overlap < 0 || overlap >= size {
		overlap = defaultWindowOverlap
	}
	stride := size - overlap
	if stride <= 0 {
		stride = size
	}

	if n <= size {
		res.Blocks = append(res.Blocks, Block{ID: 0, Kind: KindWindow, Level: 0, LineStart: 1, LineEnd: n, Parent: -1})
		for i := range res.LineBlocks {
			res.LineBlocks[i] = 0
		}
		return res, nil
	}

	// Each line is assigned to the FIRST window that contains it (its
	// innermost, leftmost containing block), matching the line-block map
	// contract: one block per line despite the windows' overlap.
	assigned := make([]bool, n)
	id := 0
	for start := 1; start <= n; start += stride {
		end := start + size - 1
		if end > n {
			end = n
		}
		res.Blocks = append(res.Blocks, Block{ID: id, Kind: KindWindow, Level: 0, LineStart: start, LineEnd: end, Parent: -1})
		for ln := start; ln <= end; ln++ {
			if !assigned[ln-1] {
				res.LineBlocks[ln-1] = id
				assigned[ln-1] = true
			}
		}
		id++
		if end == n {
			break
		}
	}

	return res, nil
}
