package keywords

import (
	"sync/atomic"

	"github.com/solm0/solmee-xyz-keystone/domain/config"
)

// LexiconSource supplies the lexicon to use for one extraction
type LexiconSource interface {
	Lexicon() *config.Lexicon
}

// StaticLexicon is a LexiconSource that never changes
type StaticLexicon struct {
	lexicon *config.Lexicon
}

// NewStaticLexicon wraps a fixed lexicon
func NewStaticLexicon(lexicon *config.Lexicon) *StaticLexicon {
	return &StaticLexicon{lexicon: lexicon}
}

// Lexicon returns the wrapped lexicon
func (s *StaticLexicon) Lexicon() *config.Lexicon {
	return s.lexicon
}

// SwappableLexicon is a LexiconSource whose lexicon can be replaced while
// extractions run; each extraction keeps the lexicon it started with
type SwappableLexicon struct {
	current atomic.Pointer[config.Lexicon]
}

// NewSwappableLexicon creates a source holding initial
func NewSwappableLexicon(initial *config.Lexicon) *SwappableLexicon {
	s := &SwappableLexicon{}
	s.current.Store(initial)
	return s
}

// Lexicon returns the current lexicon
func (s *SwappableLexicon) Lexicon() *config.Lexicon {
	return s.current.Load()
}

// Swap installs a new lexicon
func (s *SwappableLexicon) Swap(lexicon *config.Lexicon) {
	s.current.Store(lexicon)
}

// Extractor runs tokenize, clean and rank over plain text
type Extractor struct {
	cfg       *config.PipelineConfig
	tokenizer *Tokenizer
	source    LexiconSource
}

// NewExtractor creates a keyword extractor
func NewExtractor(cfg *config.PipelineConfig, source LexiconSource) *Extractor {
	return &Extractor{
		cfg:       cfg,
		tokenizer: NewTokenizer(cfg.MinTokenRunes),
		source:    source,
	}
}

func (e *Extractor) ranker() *Ranker {
	stemmer := NewStemmer(e.source.Lexicon(), e.cfg.MinStemRunes)
	return NewRanker(stemmer, e.cfg.MinFrequency, e.cfg.MaxKeywords)
}

// Extract returns at most MaxKeywords keywords of text. An empty result is valid.
func (e *Extractor) Extract(text string) []string {
	return e.ranker().Rank(e.tokenizer.Tokenize(text))
}

// ExtractScored is Extract with the occurrence counts
func (e *Extractor) ExtractScored(text string) []Scored {
	return e.ranker().RankScored(e.tokenizer.Tokenize(text))
}
