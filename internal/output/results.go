package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/codescope/codescope/internal/ui"
)

// Format selects how query/terms/outline results are rendered.
type Format string

const (
	FormatHuman Format = "human"
	FormatGrep  Format = "grep"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// ParseFormat maps a --format flag value to a Format, defaulting to
// human for anything unrecognized.
func ParseFormat(s string) Format {
	switch Format(s) {
	case FormatGrep, FormatJSON, FormatJSONL:
		return Format(s)
	default:
		return FormatHuman
	}
}

// Hit describes one query-token expansion that contributed to a
// result's score, used by --explain output.
type Hit struct {
	ExpandedToken    string  `json:"expanded_token"`
	OriginatingQuery string  `json:"originating_query"`
	Similarity       float64 `json:"similarity"`
	Lines            []int32 `json:"lines"`
	Contribution     float64 `json:"contribution"`
}

// Result is one scored, carved, identified candidate block ready for
// display, serialized the same way across human, grep, json, and
// jsonl output formats.
type Result struct {
	ResultID     string  `json:"result_id"`
	FilePath     string  `json:"file_path"`
	FileType     string  `json:"file_type"`
	BlockID      int64   `json:"block_id"`
	LineStart    int     `json:"line_start"`
	LineEnd      int     `json:"line_end"`
	Score        float64 `json:"score"`
	HeaderText   string  `json:"header_text,omitempty"`
	Snippet      string  `json:"snippet"`
	SnippetStart int     `json:"snippet_start"`
	Ancestry     []int64 `json:"ancestry"`
	Hits         []Hit   `json:"hits,omitempty"`
	Warn         string  `json:"warn,omitempty"`
}

// WriteHuman renders results the way a developer reads a terminal:
// one header line per result (path:line, score), then its snippet
// indented underneath.
func WriteHuman(w io.Writer, results []Result, noColor bool) {
	styles := ui.GetStyles(noColor)
	for i, r := range results {
		loc := fmt.Sprintf("%s:%d", r.FilePath, r.LineStart)
		header := fmt.Sprintf("%d. %s (score %.3f)", i+1, loc, r.Score)
		fmt.Fprintln(w, styles.Header.Render(header))
		if r.HeaderText != "" {
			fmt.Fprintln(w, styles.Dim.Render("   "+r.HeaderText))
		}
		if r.Warn != "" {
			fmt.Fprintln(w, styles.Warning.Render("   warn: "+r.Warn))
		}
		for _, line := range splitLines(r.Snippet) {
			fmt.Fprintln(w, "   "+line)
		}
		fmt.Fprintln(w)
	}
}

// WriteGrep renders the grep-like `path:line: text` form, one line per
// snippet line, suitable for piping into other Unix tools.
func WriteGrep(w io.Writer, results []Result) {
	for _, r := range results {
		lineNo := r.SnippetStart
		for _, line := range splitLines(r.Snippet) {
			if line == "..." {
				// A gap of unknown size separates snippet regions past
				// this point; line numbers after it are best-effort.
				continue
			}
			fmt.Fprintf(w, "%s:%d: %s\n", r.FilePath, lineNo, line)
			lineNo++
		}
	}
}

// WriteJSON renders the full result set as a pretty-printed JSON array.
func WriteJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// WriteJSONL renders one compact JSON object per result, one per line.
func WriteJSONL(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
