// Package analysis implements the fixed tokenize → lowercase →
// length-filter → stop-word → lemmatize pipeline that turns raw document
// or query text into normalized term triples (spec.md §4.2).
package analysis

import (
	"unicode"

	"golang.org/x/text/cases"
)

// Token is one (normalized_term, char_offset, word_index) triple
// produced by Analyze.
type Token struct {
	Term       string
	CharOffset int
	WordIndex  int
}

// Lemmatizer normalizes a token to its lemma. The identity lemmatizer is
// used when none is configured (spec.md §9 "Polymorphic analyzers").
type Lemmatizer func(token string) string

// StopWordSet reports stop-word membership. The empty set (always false)
// is used when stop-word removal is disabled.
type StopWordSet func(token string) bool

// Config configures one run of the pipeline. Zero value disables length
// filtering, stop-word removal, and lemmatization.
type Config struct {
	MinTokenLength      int
	MaxTokenLength      int
	EnableStopWords     bool
	StopWords           StopWordSet
	EnableLemmatizer    bool
	Lemmatizer          Lemmatizer
}

var caseFolder = cases.Fold(cases.Compact)

// Analyze runs the full pipeline over content, returning surviving
// tokens in ascending word-index order.
func Analyze(content string, cfg Config) []Token {
	raw := tokenize(content)
	out := make([]Token, 0, len(raw))

	stopWords := cfg.StopWords
	if stopWords == nil {
		stopWords = DefaultEnglishStopWords
	}
	lemmatize := cfg.Lemmatizer
	if lemmatize == nil {
		lemmatize = identity
	}

	for _, tok := range raw {
		term := caseFolder.String(tok.Term)

		if cfg.MinTokenLength > 0 && runeLen(term) < cfg.MinTokenLength {
			continue
		}
		if cfg.MaxTokenLength > 0 && runeLen(term) > cfg.MaxTokenLength {
			continue
		}

		if cfg.EnableStopWords && stopWords(term) {
			continue
		}

		if cfg.EnableLemmatizer {
			term = lemmatize(term)
		}

		out = append(out, Token{Term: term, CharOffset: tok.CharOffset, WordIndex: tok.WordIndex})
	}
	return out
}

func identity(s string) string { return s }

func runeLen(s string) int {
	return len([]rune(s))
}

// tokenize splits content by transitions between alphanumeric and
// non-alphanumeric code points, recording each maximal alphanumeric run's
// start offset and monotonic word index (spec.md §4.2 stage 1).
func tokenize(content string) []Token {
	var out []Token
	runes := []rune(content)

	start := -1
	word := 0
	for i, r := range runes {
		if isAlphanumeric(r) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			out = append(out, Token{Term: string(runes[start:i]), CharOffset: start, WordIndex: word})
			word++
			start = -1
		}
	}
	if start != -1 {
		out = append(out, Token{Term: string(runes[start:]), CharOffset: start, WordIndex: word})
	}
	return out
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
