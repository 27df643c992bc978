package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PipelineConfig holds the tunable rules of the content pipeline
type PipelineConfig struct {
	// Keyword ranking
	MinFrequency  int
	MaxKeywords   int
	MinTokenRunes int
	MinStemRunes  int // shortest remainder a suffix strip may leave

	// Link extraction
	RelationshipKind    string
	ReferenceComponents map[string]string

	// Article defaults
	DefaultTagID string

	// Behaviour flags
	StrictDocuments bool
	LockArticles    bool
}

// DefaultPipelineConfig returns the default pipeline configuration
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		MinFrequency:  3,
		MaxKeywords:   6,
		MinTokenRunes: 2,
		MinStemRunes:  2,

		RelationshipKind: "post",
		ReferenceComponents: map[string]string{
			"internalLink": "post",
		},

		StrictDocuments: false,
		LockArticles:    false,
	}
}

// ProductionPipelineConfig returns production-specific configuration
func ProductionPipelineConfig() *PipelineConfig {
	config := DefaultPipelineConfig()

	// Racing saves of one article serialize in production
	config.LockArticles = true

	return config
}

// DevelopmentPipelineConfig returns development-specific configuration
func DevelopmentPipelineConfig() *PipelineConfig {
	config := DefaultPipelineConfig()

	// Surface broken editor output early
	config.StrictDocuments = true

	return config
}

// LoadPipelineConfig loads pipeline configuration based on environment
func LoadPipelineConfig(environment string) *PipelineConfig {
	switch environment {
	case "production":
		return ProductionPipelineConfig()
	case "development":
		return DevelopmentPipelineConfig()
	default:
		return DefaultPipelineConfig()
	}
}

// Validate checks if the configuration is valid
func (c *PipelineConfig) Validate() error {
	if c.MinFrequency < 1 {
		return fmt.Errorf("min frequency must be at least 1, got %d", c.MinFrequency)
	}
	if c.MaxKeywords < 1 {
		return fmt.Errorf("max keywords must be at least 1, got %d", c.MaxKeywords)
	}
	if c.MinTokenRunes < 1 {
		return fmt.Errorf("min token runes must be at least 1, got %d", c.MinTokenRunes)
	}
	if c.MinStemRunes < 1 {
		return fmt.Errorf("min stem runes must be at least 1, got %d", c.MinStemRunes)
	}
	if c.RelationshipKind == "" {
		return fmt.Errorf("relationship kind is required")
	}
	return nil
}

// Lexicon is the immutable word data used by the stemmer and filter.
// Suffixes are kept longest first; equal lengths keep their declared order.
type Lexicon struct {
	suffixes  []string
	stopwords map[string]struct{}
}

// NewLexicon builds a lexicon from a suffix list and any number of stopword lists
func NewLexicon(suffixes []string, stopwordLists ...[]string) *Lexicon {
	ordered := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		if s != "" {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return len([]rune(ordered[i])) > len([]rune(ordered[j]))
	})

	stopwords := make(map[string]struct{})
	for _, list := range stopwordLists {
		for _, w := range list {
			stopwords[w] = struct{}{}
		}
	}

	return &Lexicon{suffixes: ordered, stopwords: stopwords}
}

// DefaultLexicon returns the Korean suffix list with the Korean and blog stopwords
func DefaultLexicon() *Lexicon {
	return NewLexicon(KoreanSuffixes, KoreanStopwords, BlogStopwords)
}

// Suffixes returns a copy of the ordered suffix list
func (l *Lexicon) Suffixes() []string {
	out := make([]string, len(l.suffixes))
	copy(out, l.suffixes)
	return out
}

// IsStopword reports an exact match against the stopword set
func (l *Lexicon) IsStopword(word string) bool {
	_, ok := l.stopwords[word]
	return ok
}

// StopwordCount returns the number of distinct stopwords
func (l *Lexicon) StopwordCount() int {
	return len(l.stopwords)
}

// LexiconFile is the on-disk shape of a lexicon override
type LexiconFile struct {
	// Suffixes replaces the built-in suffix list when non-empty
	Suffixes []string `yaml:"suffixes"`
	// Stopwords are added to the built-in stopwords
	Stopwords []string `yaml:"stopwords"`
	// ReplaceStopwords drops the built-in stopwords entirely
	ReplaceStopwords bool `yaml:"replace_stopwords"`
}

// LoadLexiconFile reads a YAML lexicon override and merges it with the defaults
func LoadLexiconFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon merges a YAML lexicon override with the defaults
func ParseLexicon(data []byte) (*Lexicon, error) {
	var file LexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}

	suffixes := KoreanSuffixes
	if len(file.Suffixes) > 0 {
		suffixes = file.Suffixes
	}

	if file.ReplaceStopwords {
		return NewLexicon(suffixes, file.Stopwords), nil
	}
	return NewLexicon(suffixes, KoreanStopwords, BlogStopwords, file.Stopwords), nil
}
