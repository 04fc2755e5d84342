package search

import (
	"strings"
	"unicode"
)

// tokenize splits text into lowercase terms for the BM25 index, splitting on
// whitespace, punctuation, and snake_case/camelCase boundaries so that an
// identifier like "validateInput" or "validate_input" indexes as both
// "validate" and "input" — grounded on the teacher's reranker tokenizer
// (internal/reranker/simple.go), generalized with the code-identifier
// boundary splitting the spec requires and without the stopword filter
// (BM25's own length normalization handles common terms; dropping query
// stopwords outright would also drop them from code identifiers like
// "is_a_test").
func tokenize(text string) []string {
	var tokens []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			tokens = append(tokens, strings.ToLower(buf.String()))
			buf.Reset()
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if buf.Len() > 0 && isCaseBoundary(runes, i) {
				flush()
			}
			buf.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// isCaseBoundary reports whether position i starts a new camelCase word,
// i.e. the previous rune is lowercase and the current one is uppercase.
func isCaseBoundary(runes []rune, i int) bool {
	if i == 0 {
		return false
	}
	prev := runes[i-1]
	cur := runes[i]
	return unicode.IsLower(prev) && unicode.IsUpper(cur)
}
