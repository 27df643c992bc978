package keywords

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solm0/solmee-xyz-keystone/domain/config"
)

func TestExtractor_KoreanParagraph(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(config.DefaultPipelineConfig(), NewStaticLexicon(config.DefaultLexicon()))

	// 서울은 -> 서울 (1), 좋은 (1), 도시다/도시/도시 -> 도시 (3), 생활 (1)
	scored := extractor.ExtractScored("서울은 좋은 도시다 도시 생활 도시")

	assert.Equal(t, []Scored{{Word: "도시", Count: 3}}, scored)
	assert.Equal(t, []string{"도시"}, extractor.Extract("서울은 좋은 도시다 도시 생활 도시"))
}

func TestExtractor_MixedScripts(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(config.DefaultPipelineConfig(), NewStaticLexicon(config.DefaultLexicon()))
	text := strings.Repeat("Go는 빠르다. golang 서버를 만들었다. ", 3) + "GO 서버에서"

	got := extractor.Extract(text)

	// go and 서버 occur 4 times; 빠르, golang and 만들었 3 times each
	assert.Equal(t, []string{"go", "서버", "빠르", "golang", "만들었"}, got)
}

func TestExtractor_TokenLengthDoesNotChangeStemming(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultPipelineConfig()
	cfg.MinTokenRunes = 3
	extractor := NewExtractor(cfg, NewStaticLexicon(config.DefaultLexicon()))

	// 도시는 keeps its 3 runes through the tokenizer and still loses 는
	got := extractor.Extract("도시는 도시는 도시는 숲")

	assert.Equal(t, []string{"도시"}, got)
}

func TestExtractor_SwappedLexiconApplies(t *testing.T) {
	t.Parallel()

	source := NewSwappableLexicon(config.DefaultLexicon())
	extractor := NewExtractor(config.DefaultPipelineConfig(), source)
	text := "도시 도시 도시"

	assert.Equal(t, []string{"도시"}, extractor.Extract(text))

	source.Swap(config.NewLexicon(config.KoreanSuffixes, []string{"도시"}))

	assert.Empty(t, extractor.Extract(text))
}

func TestExtractor_ConcurrentUse(t *testing.T) {
	t.Parallel()

	source := NewSwappableLexicon(config.DefaultLexicon())
	extractor := NewExtractor(config.DefaultPipelineConfig(), source)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				extractor.Extract("서울 서울 서울 도시 도시 도시")
			}
		}()
	}
	source.Swap(config.DefaultLexicon())
	wg.Wait()
}
