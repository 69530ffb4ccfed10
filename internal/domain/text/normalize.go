// Package text canonicalizes raw input before vectorization.
package text

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Punctuation is the ASCII punctuation set removed during normalization.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// IsPunct reports whether r belongs to Punctuation.
func IsPunct(r rune) bool {
	return r < 0x80 && strings.ContainsRune(Punctuation, r)
}

// Normalizer lowercases text, deletes punctuation and drops stopwords.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	stopwords map[string]struct{}
}

// NewNormalizer creates a Normalizer that drops the given stopwords.
func NewNormalizer(stopwords []string) *Normalizer {
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[w] = struct{}{}
	}
	return &Normalizer{stopwords: set}
}

// English is the Normalizer for the default English stopword list.
var English = NewNormalizer(EnglishStopwords)

// Normalize canonicalizes s with the English stopword list.
func Normalize(s string) string {
	return English.Normalize(s)
}

// IsStopword reports whether w is dropped by n.
func (n *Normalizer) IsStopword(w string) bool {
	_, ok := n.stopwords[w]
	return ok
}

// Normalize returns the surviving words of s joined by single spaces.
// Punctuation is deleted, not replaced, so "well-known" becomes "wellknown".
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	words := strings.Fields(clean(s))
	kept := words[:0]
	for _, w := range words {
		if !n.IsStopword(w) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// clean lowercases s and strips punctuation. Casers keep internal state,
// so the chain is built per call.
func clean(s string) string {
	t := transform.Chain(cases.Lower(language.Und), runes.Remove(runes.Predicate(IsPunct)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.Map(func(r rune) rune {
			if IsPunct(r) {
				return -1
			}
			return r
		}, strings.ToLower(s))
	}
	return out
}
