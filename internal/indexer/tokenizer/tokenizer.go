// Package tokenizer splits raw text into terms. Terms are whitespace
// delimited and kept verbatim: no case folding, stop-word removal or
// stemming is applied.
package tokenizer

import "strings"

// Token is a single term and its position in the original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into Tokens on any run of Unicode whitespace. Repeated
// terms are kept, in the order they appear.
func Tokenize(text string) []Token {
	words := strings.Fields(text)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}

// Terms returns only the term strings of Tokenize(text).
func Terms(text string) []string {
	return strings.Fields(text)
}

// Count returns the number of occurrences of every term in text.
func Count(text string) map[string]int {
	counts := make(map[string]int)
	for _, word := range strings.Fields(text) {
		counts[word]++
	}
	return counts
}
