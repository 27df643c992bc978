// Package keywords mines a short list of topical keywords from Korean-mixed prose.
package keywords

import "unicode/utf8"

type runeClass int

const (
	classOther runeClass = iota
	classLatin
	classHangul
)

func classify(r rune) runeClass {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return classLatin
	case r >= 0xAC00 && r <= 0xD7A3: // 가..힣
		return classHangul
	default:
		return classOther
	}
}

// Tokenizer splits text into maximal runs of ASCII letters/digits or Hangul
// syllables. A run ends at any script change, so no token mixes scripts.
type Tokenizer struct {
	minRunes int
}

// NewTokenizer creates a tokenizer that drops runs shorter than minRunes
func NewTokenizer(minRunes int) *Tokenizer {
	if minRunes < 1 {
		minRunes = 1
	}
	return &Tokenizer{minRunes: minRunes}
}

// Tokenize returns the tokens of text in reading order
func (t *Tokenizer) Tokenize(text string) []string {
	tokens := make([]string, 0)

	start, runes := -1, 0
	current := classOther

	flush := func(end int) {
		if start >= 0 && runes >= t.minRunes {
			tokens = append(tokens, text[start:end])
		}
		start, runes = -1, 0
	}

	for i, r := range text {
		class := classify(r)
		if class != current {
			flush(i)
			current = class
		}
		if class == classOther {
			continue
		}
		if start < 0 {
			start = i
		}
		runes++
	}
	flush(len(text))

	return tokens
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
