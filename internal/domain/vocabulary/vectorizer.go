package vocabulary

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/nbserve/internal/domain"
)

// tokenPattern matches runs of two or more word characters, the default
// token rule of a count vectorizer. Single-character words never count.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// CountVectorizer turns text into token counts over a fixed Vocabulary.
// It is read-only after construction and safe for concurrent use.
type CountVectorizer struct {
	vocab *Vocabulary
}

var _ domain.Vectorizer = (*CountVectorizer)(nil)

// NewCountVectorizer creates a vectorizer over vocab.
func NewCountVectorizer(vocab *Vocabulary) *CountVectorizer {
	return &CountVectorizer{vocab: vocab}
}

// Tokenize lowercases text and extracts its tokens in order.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Transform counts vocabulary tokens in text. Unknown tokens are ignored.
// The result always has length Size().
func (c *CountVectorizer) Transform(text string) domain.FeatureVector {
	vec := make(domain.FeatureVector, c.vocab.Size())
	for _, tok := range Tokenize(text) {
		if idx, ok := c.vocab.Index(tok); ok {
			vec[idx]++
		}
	}
	return vec
}

// Size returns the vocabulary size.
func (c *CountVectorizer) Size() int {
	return c.vocab.Size()
}

// Vocabulary returns the underlying vocabulary.
func (c *CountVectorizer) Vocabulary() *Vocabulary {
	return c.vocab
}
