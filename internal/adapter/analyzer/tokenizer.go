package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer estimates token counts for context-budget accounting.
type Tokenizer struct{}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Tokenize splits text into words using unicode word boundaries.
func (t *Tokenizer) Tokenize(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// CountTokens returns an approximate token count for LLM budget estimation.
// Average words map to roughly 1.3 model tokens.
func (t *Tokenizer) CountTokens(text string) int {
	words := t.Tokenize(text)
	if len(words) == 0 {
		return 0
	}
	return int(float64(len(words)) * 1.3)
}
