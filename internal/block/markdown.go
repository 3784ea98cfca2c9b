package block

import "regexp"

var headingRE = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// MarkdownAdapter builds blocks from ATX-style ("#", "##", ...) markdown
// headings. A heading's block runs from its own line through the line
// before the next heading of level <= its own, or EOF. Content preceding
// the first heading becomes its own level-0 preamble block (omitted if
// empty, i.e. the file starts with a heading).
type MarkdownAdapter struct{}

func (a *MarkdownAdapter) Name() string { return "markdown" }

type openHeading struct {
	id        int
	level     int
	lineStart int
}

func (a *MarkdownAdapter) Build(lines []string) (*Result, error) {
	n := len(lines)
	res := &Result{LineBlocks: make([]int, n)}
	if n == 0 {
		return res, nil
	}

	nextID := 0
	newBlock := func(level, lineStart, parent int) int {
		id := nextID
		nextID++
		res.Blocks = append(res.Blocks, Block{ID: id, Kind: KindHeading, Level: level, LineStart: lineStart, Parent: parent})
		return id
	}

	var stack []openHeading // headings only, top-level ones have parent -1

	firstHeadingLine := 0
	for i, line := range lines {
		if headingRE.MatchString(line) {
			firstHeadingLine = i + 1
			break
		}
	}

	preambleID := -1
	if firstHeadingLine != 1 {
		end := n
		if firstHeadingLine != 0 {
			end = firstHeadingLine - 1
		}
		preambleID = newBlock(0, 1, -1)
		res.Blocks[preambleID].LineEnd = end
		for i := 0; i < end; i++ {
			res.LineBlocks[i] = preambleID
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		m := headingRE.FindStringSubmatch(line)
		if m == nil {
			if lineNo <= firstHeadingLineOrZero(firstHeadingLine, n) {
				continue // already assigned to the preamble above
			}
			if len(stack) > 0 {
				res.LineBlocks[i] = stack[len(stack)-1].id
			}
			continue
		}

		level := len(m[1])
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			res.Blocks[top.id].LineEnd = lineNo - 1
		}

		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1].id
		}
		id := newBlock(level, lineNo, parent)
		stack = append(stack, openHeading{id: id, level: level, lineStart: lineNo})
		res.LineBlocks[i] = id
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		res.Blocks[top.id].LineEnd = n
	}

	return res, nil
}

func firstHeadingLineOrZero(firstHeadingLine, n int) int {
	if firstHeadingLine == 0 {
		return n
	}
	return firstHeadingLine - 1
}
