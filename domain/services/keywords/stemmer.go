package keywords

import (
	"strings"

	"github.com/solm0/solmee-xyz-keystone/domain/config"
)

// Stemmer normalizes a token and rejects stopwords
type Stemmer struct {
	lexicon      *config.Lexicon
	suffixes     []string
	minRemainder int
}

// NewStemmer creates a stemmer over an immutable lexicon.
// A suffix is stripped only when at least minRemainder runes remain.
func NewStemmer(lexicon *config.Lexicon, minRemainder int) *Stemmer {
	return &Stemmer{
		lexicon:      lexicon,
		suffixes:     lexicon.Suffixes(),
		minRemainder: minRemainder,
	}
}

// Stem lower-cases token and strips at most one suffix, the longest that
// leaves enough of the word. Equal-length suffixes are tried in lexicon order.
func (s *Stemmer) Stem(token string) string {
	word := strings.ToLower(token)
	length := runeLen(word)

	for _, suffix := range s.suffixes {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		if length-runeLen(suffix) < s.minRemainder {
			continue
		}
		return strings.TrimSuffix(word, suffix)
	}
	return word
}

// Clean stems token and reports false when the stem is a stopword
func (s *Stemmer) Clean(token string) (string, bool) {
	stem := s.Stem(token)
	if stem == "" || s.lexicon.IsStopword(stem) {
		return "", false
	}
	return stem, true
}
