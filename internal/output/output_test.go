package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusPrintsIconAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Status("🔍", "Checking workspace...")

	assert.Contains(t, buf.String(), "🔍")
	assert.Contains(t, buf.String(), "Checking workspace...")
}

func TestStatusWithoutIconOmitsPrefix(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Status("", "plain line")

	assert.Equal(t, "plain line\n", buf.String())
}

func TestStatusfFormats(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Statusf("", "found %d results", 3)

	assert.Equal(t, "found 3 results\n", buf.String())
}

func TestWarningfAndErrorfPrefix(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Warningf("skipped %s", "a.go")
	w.Errorf("failed on %s", "b.go")

	out := buf.String()
	assert.Contains(t, out, "⚠ skipped a.go")
	assert.Contains(t, out, "✗ failed on b.go")
}

func TestNewlinePrintsBlankLine(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Newline()

	assert.Equal(t, "\n", buf.String())
}
