// Package vocabulary holds the fixed token index and the count vectorizer built on it.
package vocabulary

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/nbserve/internal/domain"
)

// Vocabulary is an immutable token→index mapping with indices 0..Size()-1.
type Vocabulary struct {
	index  map[string]int
	tokens []string // tokens[i] is the token with index i
}

// New validates the mapping and creates a Vocabulary.
// Indices must be unique and cover exactly 0..len(m)-1.
func New(m map[string]int) (*Vocabulary, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("%w: vocabulary is empty", domain.ErrInvalidArtifact)
	}

	tokens := make([]string, len(m))
	seen := make([]bool, len(m))
	index := make(map[string]int, len(m))

	for tok, idx := range m {
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("%w: vocabulary index %d for %q out of range [0,%d)",
				domain.ErrInvalidArtifact, idx, tok, len(m))
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: vocabulary index %d assigned twice (%q, %q)",
				domain.ErrInvalidArtifact, idx, tokens[idx], tok)
		}
		seen[idx] = true
		tokens[idx] = tok
		index[tok] = idx
	}

	return &Vocabulary{index: index, tokens: tokens}, nil
}

// FromTokens creates a Vocabulary assigning indices in sorted token order,
// the way a count vectorizer fitted on a corpus does.
func FromTokens(tokens []string) (*Vocabulary, error) {
	uniq := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		uniq[t] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for t := range uniq {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	m := make(map[string]int, len(sorted))
	for i, t := range sorted {
		m[t] = i
	}
	return New(m)
}

// Size returns the number of tokens, which is the feature vector length.
func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

// Index returns the index of token and whether it is in the vocabulary.
func (v *Vocabulary) Index(token string) (int, bool) {
	idx, ok := v.index[token]
	return idx, ok
}

// Token returns the token stored at idx.
func (v *Vocabulary) Token(idx int) string {
	return v.tokens[idx]
}
