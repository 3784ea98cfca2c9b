package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kindOf(t *testing.T, res *Result, text string) Kind {
	t.Helper()
	k, ok := res.Unique[text]
	if !ok {
		t.Fatalf("token %q not found in %v", text, res.Unique)
	}
	return k
}

func TestCamelCaseCompound(t *testing.T) {
	res := Tokenize([]string{"retryCount := 3"}, Options{})
	assert.Equal(t, KindCompound, kindOf(t, res, "retryCount"))
	assert.Equal(t, KindIdent, kindOf(t, res, "retry"))
	assert.Equal(t, KindIdent, kindOf(t, res, "Count"))
}

func TestSnakeCaseCompound(t *testing.T) {
	res := Tokenize([]string{"max_retry_count = 3"}, Options{})
	assert.Equal(t, KindCompound, kindOf(t, res, "max_retry_count"))
	assert.Equal(t, KindIdent, kindOf(t, res, "max"))
	assert.Equal(t, KindIdent, kindOf(t, res, "retry"))
	assert.Equal(t, KindIdent, kindOf(t, res, "count"))
}

func TestPlainIdentNotCompound(t *testing.T) {
	res := Tokenize([]string{"foo bar"}, Options{})
	assert.Equal(t, KindIdent, kindOf(t, res, "foo"))
	assert.Equal(t, KindIdent, kindOf(t, res, "bar"))
}

func TestDottedCompound(t *testing.T) {
	res := Tokenize([]string{"time.Sleep(backoff.Delay)"}, Options{})
	assert.Equal(t, KindCompound, kindOf(t, res, "time.Sleep"))
	assert.Equal(t, KindIdent, kindOf(t, res, "time"))
	assert.Equal(t, KindIdent, kindOf(t, res, "Sleep"))
}

func TestScopedCompound(t *testing.T) {
	res := Tokenize([]string{"Foo::Bar::baz()"}, Options{})
	assert.Equal(t, KindCompound, kindOf(t, res, "Foo::Bar::baz"))
}

func TestWordsOnlyInProseMode(t *testing.T) {
	res := Tokenize([]string{"This is retrying gracefully"}, Options{IsProse: true})
	assert.Equal(t, KindWord, kindOf(t, res, "this"))
	assert.Equal(t, KindWord, kindOf(t, res, "is"))
	res2 := Tokenize([]string{"This is retrying gracefully"}, Options{IsProse: false})
	_, ok := res2.Unique["this"]
	assert.False(t, ok, "word tokens should not appear outside prose mode")
}

func TestSymbolsNotEligible(t *testing.T) {
	res := Tokenize([]string{"a = b + c;"}, Options{})
	assert.Equal(t, KindSymbol, kindOf(t, res, "="))
	assert.Equal(t, KindSymbol, kindOf(t, res, ";"))
	// Eligible count: a, b, c idents only (3 occurrences).
	assert.Equal(t, 3, res.Eligible)
}

func TestMaxTokenLenDropsLongTokens(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	res := Tokenize([]string{long}, Options{MaxTokenLen: 128})
	_, ok := res.Unique[long]
	assert.False(t, ok)
}

func TestSplitIdentExamples(t *testing.T) {
	assert.Equal(t, []string{"get", "User", "By", "Id"}, SplitIdent("getUserById"))
	assert.Equal(t, []string{"HTTP", "Handler"}, SplitIdent("HTTPHandler"))
	assert.Equal(t, []string{"parse", "HTTP", "Request"}, SplitIdent("parseHTTPRequest"))
}

func TestLineOccurrencesPreserveOrder(t *testing.T) {
	res := Tokenize([]string{"foo bar foo"}, Options{})
	require := []string{"foo", "bar", "foo"}
	got := make([]string, 0, len(res.Lines[0].Tokens))
	for _, tok := range res.Lines[0].Tokens {
		got = append(got, tok.Text)
	}
	assert.Equal(t, require, got)
}
