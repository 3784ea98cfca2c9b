// Package snippet carves a readable excerpt of a winning block: the
// whole block when it's small, or a handful of hit-centered regions
// stitched together with ellipsis markers when it isn't.
package snippet

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options carries the carving knobs for a query's result rendering.
type Options struct {
	MaxLines     int
	ContextLines int
	ClusterGap   int
}

// DefaultOptions returns the contract's defaults (max_lines=24,
// context_lines=2, cluster gap=4).
func DefaultOptions() Options {
	return Options{MaxLines: 24, ContextLines: 2, ClusterGap: 4}
}

// Result is a carved snippet.
type Result struct {
	Content      string
	SnippetStart int
	Warn         string
}

type region struct{ start, end int }

// Carve reads relPath under root and carves the block [blockStart,
// blockEnd] (1-indexed, inclusive) down to a readable excerpt
// highlighting hitLines. On a missing or unreadable file it returns a
// zero-value Result with content empty and Warn set.
func Carve(root, relPath string, blockStart, blockEnd int, hitLines []int, opts Options) Result {
	raw, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		warn := "read error"
		if os.IsNotExist(err) {
			warn = "file not found"
		}
		return Result{Warn: warn}
	}
	lines := splitLines(string(raw))

	if blockEnd-blockStart+1 <= opts.MaxLines {
		return Result{Content: joinRange(lines, blockStart, blockEnd), SnippetStart: blockStart}
	}

	regions := clusterHits(hitLines, opts.ClusterGap)
	regions = expandAndClamp(regions, opts.ContextLines, blockStart, blockEnd)
	regions = mergeAdjacent(regions, 1)

	header := region{start: blockStart, end: min(blockStart+1, blockEnd)}
	if len(regions) == 0 || !overlaps(header, regions[0]) {
		regions = append([]region{header}, regions...)
		regions = mergeAdjacent(regions, 1)
	}

	regions = trimToMaxLines(regions, opts.MaxLines)

	var b strings.Builder
	for i, r := range regions {
		if i > 0 {
			b.WriteString("...\n")
		}
		b.WriteString(joinRange(lines, r.start, r.end))
		if i != len(regions)-1 {
			b.WriteString("\n")
		}
	}

	start := blockStart
	if len(regions) > 0 {
		start = regions[0].start
	}
	return Result{Content: b.String(), SnippetStart: start}
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// joinRange returns 1-indexed inclusive lines [start, end], clamped to
// the slice's bounds.
func joinRange(lines []string, start, end int) string {
	lo := start - 1
	hi := end - 1
	if lo < 0 {
		lo = 0
	}
	if hi >= len(lines) {
		hi = len(lines) - 1
	}
	if lo > hi || lo >= len(lines) {
		return ""
	}
	return strings.Join(lines[lo:hi+1], "\n")
}

// clusterHits groups sorted, deduplicated hit lines into regions where
// consecutive hits no more than gap lines apart share a region.
func clusterHits(hits []int, gap int) []region {
	if len(hits) == 0 {
		return nil
	}
	sorted := append([]int(nil), hits...)
	sort.Ints(sorted)

	var out []region
	cur := region{start: sorted[0], end: sorted[0]}
	for _, h := range sorted[1:] {
		if h-cur.end <= gap {
			if h > cur.end {
				cur.end = h
			}
			continue
		}
		out = append(out, cur)
		cur = region{start: h, end: h}
	}
	out = append(out, cur)
	return out
}

func expandAndClamp(regions []region, context, lo, hi int) []region {
	out := make([]region, len(regions))
	for i, r := range regions {
		s := r.start - context
		e := r.end + context
		if s < lo {
			s = lo
		}
		if e > hi {
			e = hi
		}
		out[i] = region{start: s, end: e}
	}
	return out
}

// mergeAdjacent merges overlapping regions and any pair separated by at
// most gap lines, after sorting by start.
func mergeAdjacent(regions []region, gap int) []region {
	if len(regions) == 0 {
		return regions
	}
	sorted := append([]region(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	out := []region{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.start-last.end-1 <= gap {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func overlaps(a, b region) bool {
	return a.start <= b.end && b.start <= a.end
}

// trimToMaxLines shrinks regions down to at most maxLines total. Each
// pass walks from the last region to the first and takes one line off
// the tail of every region still above the 2-line floor, stopping as
// soon as the total fits, so the cut is spread across regions and
// trailing regions lose a line before earlier ones in every pass.
func trimToMaxLines(regions []region, maxLines int) []region {
	total := func() int {
		n := 0
		for _, r := range regions {
			n += r.end - r.start + 1
		}
		return n
	}
	for total() > maxLines {
		trimmedAny := false
		for i := len(regions) - 1; i >= 0; i-- {
			if regions[i].end-regions[i].start+1 > 2 {
				regions[i].end--
				trimmedAny = true
				if total() <= maxLines {
					break
				}
			}
		}
		if !trimmedAny {
			break
		}
	}
	return regions
}
