package block

import "strings"

// IndentAdapter builds blocks from leading-whitespace indentation, the way
// code and config files are structured. It auto-detects the indent step
// unless TabWidth/IndentWidth are pinned by configuration.
type IndentAdapter struct {
	// IndentWidth, when > 0, overrides auto-detection.
	IndentWidth int
	// TabWidth is the column width a tab expands to (default 8).
	TabWidth int
}

func (a *IndentAdapter) Name() string { return "indent" }

// leadingWidth returns the column width of a line's leading whitespace,
// expanding tabs to the next TabWidth-column stop.
func leadingWidth(line string, tabWidth int) int {
	col := 0
	for _, r := range line {
		switch r {
		case ' ':
			col++
		case '\t':
			col += tabWidth - (col % tabWidth)
		default:
			return col
		}
	}
	return col // all-whitespace line
}

// detectIndentWidth finds the most frequent positive difference between
// consecutive non-blank leading-space counts, preferring smaller values on
// ties, defaulting to 2.
func detectIndentWidth(lines []string, tabWidth int) int {
	counts := make(map[int]int)
	var prev int
	havePrev := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		w := leadingWidth(line, tabWidth)
		if havePrev {
			d := w - prev
			if d > 0 {
				counts[d]++
			}
		}
		prev = w
		havePrev = true
	}
	if len(counts) == 0 {
		return 2
	}
	best, bestCount := 0, -1
	for d, c := range counts {
		if c > bestCount || (c == bestCount && d < best) {
			best, bestCount = d, c
		}
	}
	if best == 0 {
		return 2
	}
	return best
}

type openBlock struct {
	id        int
	level     int
	lineStart int
}

func (a *IndentAdapter) Build(lines []string) (*Result, error) {
	tabWidth := a.TabWidth
	if tabWidth <= 0 {
		tabWidth = 8
	}
	indentWidth := a.IndentWidth
	if indentWidth <= 0 {
		indentWidth = detectIndentWidth(lines, tabWidth)
	}

	n := len(lines)
	res := &Result{LineBlocks: make([]int, n)}
	if n == 0 {
		return res, nil
	}

	var stack []openBlock
	nextID := 0

	newBlock := func(level, lineStart, parent int) int {
		id := nextID
		nextID++
		res.Blocks = append(res.Blocks, Block{ID: id, Kind: KindLayout, Level: level, LineStart: lineStart, Parent: parent})
		return id
	}
	closeTo := func(line int) {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			res.Blocks[top.id].LineEnd = line
		}
	}

	// pendingBlank tracks line numbers of blank lines seen while no block
	// is open yet (leading blanks); they are assigned to the first block
	// opened. Blank lines seen while a block is open inherit that block
	// directly, so trailing blanks at EOF inherit the last open block.
	pendingBlank := make([]int, 0)

	assignPending := func(blockID int) {
		for _, ln := range pendingBlank {
			res.LineBlocks[ln-1] = blockID
		}
		pendingBlank = pendingBlank[:0]
	}

	for i, line := range lines {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" {
			if len(stack) > 0 {
				res.LineBlocks[i] = stack[len(stack)-1].id
			} else {
				pendingBlank = append(pendingBlank, lineNo)
			}
			continue
		}

		w := leadingWidth(line, tabWidth)
		level := 0
		if indentWidth > 0 {
			level = w / indentWidth
		}

		switch {
		case len(stack) == 0:
			parent := -1
			id := newBlock(level, lineNo, parent)
			stack = append(stack, openBlock{id: id, level: level, lineStart: lineNo})
			assignPending(id)
		case level > stack[len(stack)-1].level:
			parentID := stack[len(stack)-1].id
			id := newBlock(level, lineNo, parentID)
			stack = append(stack, openBlock{id: id, level: level, lineStart: lineNo})
		case level == stack[len(stack)-1].level:
			// extend current block: no close happened since it was opened,
			// so this line is a continuation, not a new sibling.
		default: // level < top: close blocks until top <= level
			for len(stack) > 0 && stack[len(stack)-1].level > level {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				res.Blocks[top.id].LineEnd = lineNo - 1
			}
			switch {
			case len(stack) == 0:
				id := newBlock(level, lineNo, -1)
				stack = append(stack, openBlock{id: id, level: level, lineStart: lineNo})
			case stack[len(stack)-1].level < level:
				parentID := stack[len(stack)-1].id
				id := newBlock(level, lineNo, parentID)
				stack = append(stack, openBlock{id: id, level: level, lineStart: lineNo})
			default:
				// level == stack top, but we just closed at least one
				// deeper frame: that frame had a child, so this line is a
				// new sibling at the same level, not a continuation of the
				// frame we dedented back to.
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				res.Blocks[top.id].LineEnd = lineNo - 1
				parent := -1
				if len(stack) > 0 {
					parent = stack[len(stack)-1].id
				}
				id := newBlock(level, lineNo, parent)
				stack = append(stack, openBlock{id: id, level: level, lineStart: lineNo})
			}
		}

		res.LineBlocks[i] = stack[len(stack)-1].id
	}

	closeTo(n)
	// Any blanks still pending (a file that is entirely blank) get block 0,
	// created lazily.
	if len(pendingBlank) > 0 {
		id := newBlock(0, pendingBlank[0], -1)
		res.Blocks[id].LineEnd = n
		assignPending(id)
	}

	collapseSingletonChains(res)

	return res, nil
}

// collapseSingletonChains folds a block into its parent when that block is
// the parent's only child and has no children of its own: a lone deeper
// line with nothing nested under it, and no sibling at its own depth, adds
// no structure worth a block of its own. This can cascade (a singleton
// chain three levels deep collapses in one pass per level), but it never
// touches the file-root blocks (Parent == -1): the document-level span
// always stays its own block regardless of how much of it is a single
// unbranched nesting chain.
func collapseSingletonChains(res *Result) {
	for {
		childCount := make(map[int]int, len(res.Blocks))
		for _, b := range res.Blocks {
			if b.Parent != -1 {
				childCount[b.Parent]++
			}
		}
		byID := make(map[int]Block, len(res.Blocks))
		for _, b := range res.Blocks {
			byID[b.ID] = b
		}

		mergeTarget := make(map[int]int)
		kept := res.Blocks[:0:0]
		for _, b := range res.Blocks {
			if b.Parent != -1 && childCount[b.ID] == 0 && childCount[b.Parent] == 1 && byID[b.Parent].Parent != -1 {
				mergeTarget[b.ID] = b.Parent
				continue
			}
			kept = append(kept, b)
		}
		if len(mergeTarget) == 0 {
			return
		}
		res.Blocks = kept
		for i, id := range res.LineBlocks {
			if target, ok := mergeTarget[id]; ok {
				res.LineBlocks[i] = target
			}
		}
	}
}
