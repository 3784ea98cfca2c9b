package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryCmd_EmptyWorkspaceReturnsNoResults(t *testing.T) {
	// Given: a freshly initialized, unindexed workspace
	root := t.TempDir()
	cmd := newQueryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--root", root, "anything"})

	// When: querying a workspace with no indexed tokens
	err := cmd.Execute()

	// Then: it reports the no-results exit code, not a failure
	assert.Equal(t, 2, ExitCode(err))
}

func TestTermsCmd_UnknownTokenReturnsNoResults(t *testing.T) {
	// Given: a freshly initialized, unindexed workspace
	root := t.TempDir()
	cmd := newTermsCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--root", root, "nonexistent"})

	// When: looking up a token that was never indexed
	err := cmd.Execute()

	// Then: it reports the no-results exit code, not a failure
	assert.Equal(t, 2, ExitCode(err))
}

func TestKeywordsCmd_EmptyWorkspaceReturnsNoResults(t *testing.T) {
	// Given: a freshly initialized, unindexed workspace
	root := t.TempDir()
	cmd := newKeywordsCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--root", root})

	// When: scanning for header/footer keywords with no tokens indexed
	err := cmd.Execute()

	// Then: it reports the no-results exit code, not a failure
	assert.Equal(t, 2, ExitCode(err))
}
