package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeWordBoundaries(t *testing.T) {
	tok := NewTokenizer()
	words := tok.Tokenize("Hello, world! foo_bar baz-42")
	assert.Equal(t, []string{"Hello", "world", "foo_bar", "baz", "42"}, words)
}

func TestCountTokensEmpty(t *testing.T) {
	tok := NewTokenizer()
	assert.Equal(t, 0, tok.CountTokens(""))
	assert.Equal(t, 0, tok.CountTokens("  \n\t "))
}

func TestCountTokensApproximation(t *testing.T) {
	tok := NewTokenizer()
	n := tok.CountTokens("one two three four five six seven eight nine ten")
	assert.Equal(t, 13, n)
}
