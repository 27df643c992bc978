package keywords

import "sort"

// Scored is a cleaned token and how often it occurred
type Scored struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Ranker turns a token stream into the most frequent cleaned tokens
type Ranker struct {
	stemmer      *Stemmer
	minFrequency int
	maxKeywords  int
}

// NewRanker creates a ranker keeping at most maxKeywords words seen at least minFrequency times
func NewRanker(stemmer *Stemmer, minFrequency, maxKeywords int) *Ranker {
	return &Ranker{
		stemmer:      stemmer,
		minFrequency: minFrequency,
		maxKeywords:  maxKeywords,
	}
}

// Count cleans every token and returns the frequencies in first-occurrence order
func (r *Ranker) Count(tokens []string) []Scored {
	index := make(map[string]int)
	counts := make([]Scored, 0)

	for _, token := range tokens {
		word, ok := r.stemmer.Clean(token)
		if !ok {
			continue
		}
		if i, seen := index[word]; seen {
			counts[i].Count++
			continue
		}
		index[word] = len(counts)
		counts = append(counts, Scored{Word: word, Count: 1})
	}

	return counts
}

// RankScored returns the kept words with their counts, most frequent first.
// Equal counts keep first-occurrence order.
func (r *Ranker) RankScored(tokens []string) []Scored {
	counts := r.Count(tokens)

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	kept := make([]Scored, 0, r.maxKeywords)
	for _, c := range counts {
		if c.Count < r.minFrequency {
			break
		}
		kept = append(kept, c)
		if len(kept) == r.maxKeywords {
			break
		}
	}
	return kept
}

// Rank returns the kept words, most frequent first
func (r *Ranker) Rank(tokens []string) []string {
	scored := r.RankScored(tokens)
	words := make([]string, len(scored))
	for i, s := range scored {
		words[i] = s.Word
	}
	return words
}
