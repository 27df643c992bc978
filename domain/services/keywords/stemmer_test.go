package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solm0/solmee-xyz-keystone/domain/config"
)

func TestStemmer_Stem(t *testing.T) {
	t.Parallel()

	stemmer := NewStemmer(config.DefaultLexicon(), 2)

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "topic particle", token: "서울은", want: "서울"},
		{name: "remainder too short", token: "좋은", want: "좋은"},
		{name: "two syllable suffix", token: "학교에서", want: "학교"},
		{name: "longest suffix wins", token: "친구이랑", want: "친구"},
		{name: "strips only once", token: "도시에서는", want: "도시에서"},
		{name: "predicate ending", token: "도시다", want: "도시"},
		{name: "latin lower-cased", token: "GoLang", want: "golang"},
		{name: "no suffix", token: "생활", want: "생활"},
		{name: "jamo suffix never matches", token: "간다", want: "간다"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, stemmer.Stem(tt.token))
		})
	}
}

func TestStemmer_Clean(t *testing.T) {
	t.Parallel()

	stemmer := NewStemmer(config.DefaultLexicon(), 2)

	tests := []struct {
		token  string
		want   string
		wantOK bool
	}{
		{token: "도시다", want: "도시", wantOK: true},
		{token: "그리고", wantOK: false},
		{token: "있어야", wantOK: false},
		{token: "것이", wantOK: false},
		{token: "하다", wantOK: false},
		{token: "정보를", wantOK: false},
		{token: "Kubernetes", want: "kubernetes", wantOK: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.token, func(t *testing.T) {
			t.Parallel()
			got, ok := stemmer.Clean(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStemmer_CustomLexicon(t *testing.T) {
	t.Parallel()

	lexicon := config.NewLexicon([]string{"ing", "s"}, []string{"test"})
	stemmer := NewStemmer(lexicon, 2)

	assert.Equal(t, "walk", stemmer.Stem("walking"))
	assert.Equal(t, "walkings", stemmer.Stem("walkingss"))
	_, ok := stemmer.Clean("tests")
	assert.False(t, ok)
}
