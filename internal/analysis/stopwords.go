package analysis

// defaultEnglishStopWords is the fixed English stop-word list used when
// stop-word removal is enabled without a custom hook (spec.md §4.2 stage
// 4).
var defaultEnglishStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "i": true, "you": true, "your": true, "this": true, "but": true,
	"or": true, "not": true, "they": true, "we": true, "their": true, "have": true,
	"had": true, "do": true, "does": true, "did": true, "so": true, "if": true,
	"about": true, "into": true, "than": true, "then": true, "there": true,
}

// DefaultEnglishStopWords reports whether token is in the default
// English stop-word list.
func DefaultEnglishStopWords(token string) bool {
	return defaultEnglishStopWords[token]
}
