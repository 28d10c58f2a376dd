package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbex/verbex/internal/analysis"
)

func TestAnalyzeBasic(t *testing.T) {
	tokens := analysis.Analyze("The Quick Brown Fox!", analysis.Config{})
	require.Len(t, tokens, 4)
	assert.Equal(t, "the", tokens[0].Term)
	assert.Equal(t, 0, tokens[0].CharOffset)
	assert.Equal(t, 0, tokens[0].WordIndex)
	assert.Equal(t, "fox", tokens[3].Term)
	assert.Equal(t, 3, tokens[3].WordIndex)
}

func TestAnalyzeLengthFilter(t *testing.T) {
	tokens := analysis.Analyze("a bb ccc dddd", analysis.Config{MinTokenLength: 2, MaxTokenLength: 3})
	var terms []string
	for _, tok := range tokens {
		terms = append(terms, tok.Term)
	}
	assert.Equal(t, []string{"bb", "ccc"}, terms)
}

func TestAnalyzeStopWords(t *testing.T) {
	tokens := analysis.Analyze("the cat sat on the mat", analysis.Config{EnableStopWords: true})
	var terms []string
	for _, tok := range tokens {
		terms = append(terms, tok.Term)
	}
	assert.Equal(t, []string{"cat", "sat", "mat"}, terms)
	// word index still reflects position in the original, unfiltered stream
	assert.Equal(t, 1, tokens[0].WordIndex)
}

func TestAnalyzeLemmatizer(t *testing.T) {
	upper := func(s string) string { return s + "_lem" }
	tokens := analysis.Analyze("run", analysis.Config{EnableLemmatizer: true, Lemmatizer: upper})
	require.Len(t, tokens, 1)
	assert.Equal(t, "run_lem", tokens[0].Term)
}

func TestAnalyzeDeterministic(t *testing.T) {
	cfg := analysis.Config{MinTokenLength: 1, EnableStopWords: true}
	a := analysis.Analyze("Hello, World! Hello again.", cfg)
	b := analysis.Analyze("Hello, World! Hello again.", cfg)
	assert.Equal(t, a, b)
}

func TestAnalyzeEmptyContent(t *testing.T) {
	tokens := analysis.Analyze("", analysis.Config{})
	assert.Empty(t, tokens)
}

func TestAnalyzeUnicode(t *testing.T) {
	tokens := analysis.Analyze("café naïve", analysis.Config{})
	require.Len(t, tokens, 2)
	assert.Equal(t, "café", tokens[0].Term)
	assert.Equal(t, "naïve", tokens[1].Term)
}
