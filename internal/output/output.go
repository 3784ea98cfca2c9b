// Package output provides consistent CLI status formatting, shared by
// every codescope command for the lines that aren't a query result
// itself (progress headers, warnings, summaries).
package output

import (
	"fmt"
	"io"
)

// Writer formats status lines to an underlying stream.
type Writer struct {
	out io.Writer
}

// New creates a Writer over out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a message, prefixed with icon if non-empty.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "%s\n", msg)
	}
}

// Statusf formats and prints a status message.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Warningf formats and prints a warning line.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status("⚠", fmt.Sprintf(format, args...))
}

// Errorf formats and prints an error line.
func (w *Writer) Errorf(format string, args ...any) {
	w.Status("✗", fmt.Sprintf(format, args...))
}

// Newline prints a blank line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
