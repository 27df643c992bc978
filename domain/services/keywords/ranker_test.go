package keywords

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solm0/solmee-xyz-keystone/domain/config"
)

func newTestRanker() *Ranker {
	return NewRanker(NewStemmer(config.NewLexicon(nil, []string{"the"}), 2), 3, 6)
}

func repeat(word string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = word
	}
	return out
}

func TestRanker_TieBreakIsFirstOccurrence(t *testing.T) {
	t.Parallel()

	tokens := []string{"apple", "cherry", "apple", "banana", "cherry", "apple", "cherry", "banana", "banana"}

	assert.Equal(t, []string{"apple", "cherry", "banana"}, newTestRanker().Rank(tokens))
}

func TestRanker_DescendingFrequency(t *testing.T) {
	t.Parallel()

	var tokens []string
	tokens = append(tokens, repeat("low", 3)...)
	tokens = append(tokens, repeat("high", 5)...)
	tokens = append(tokens, repeat("mid", 4)...)

	scored := newTestRanker().RankScored(tokens)

	assert.Equal(t, []Scored{{"high", 5}, {"mid", 4}, {"low", 3}}, scored)
}

func TestRanker_DropsBelowThreshold(t *testing.T) {
	t.Parallel()

	tokens := append(repeat("kept", 3), repeat("dropped", 2)...)

	assert.Equal(t, []string{"kept"}, newTestRanker().Rank(tokens))
}

func TestRanker_TruncatesToMax(t *testing.T) {
	t.Parallel()

	var tokens []string
	for _, w := range []string{"aa", "bb", "cc", "dd", "ee", "ff", "gg", "hh"} {
		tokens = append(tokens, repeat(w, 3)...)
	}

	assert.Equal(t, []string{"aa", "bb", "cc", "dd", "ee", "ff"}, newTestRanker().Rank(tokens))
}

func TestRanker_StopwordsAndCaseFolding(t *testing.T) {
	t.Parallel()

	tokens := []string{"Go", "go", "GO", "the", "the", "the"}

	assert.Equal(t, []Scored{{"go", 3}}, newTestRanker().RankScored(tokens))
}

func TestRanker_EmptyIsValid(t *testing.T) {
	t.Parallel()

	assert.Empty(t, newTestRanker().Rank(nil))
	assert.Empty(t, newTestRanker().Rank([]string{"once", "twice", "twice"}))
}

func TestRanker_Properties(t *testing.T) {
	t.Parallel()

	vocab := []string{"aa", "bb", "cc", "dd", "ee", "ff", "gg", "hh", "ii", "jj"}
	rng := rand.New(rand.NewSource(42))
	ranker := newTestRanker()

	for i := 0; i < 200; i++ {
		tokens := make([]string, rng.Intn(80))
		freq := map[string]int{}
		for j := range tokens {
			tokens[j] = vocab[rng.Intn(len(vocab))]
			freq[tokens[j]]++
		}

		got := ranker.RankScored(tokens)
		again := ranker.RankScored(tokens)

		require.Equal(t, got, again)
		assert.LessOrEqual(t, len(got), 6)
		for k, s := range got {
			assert.GreaterOrEqual(t, s.Count, 3)
			assert.Equal(t, freq[s.Word], s.Count)
			if k > 0 {
				assert.GreaterOrEqual(t, got[k-1].Count, s.Count)
			}
		}
	}
}
