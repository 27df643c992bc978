package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ArticleID identifies an article. Articles are created by the CMS, so any
// non-blank identifier is accepted.
type ArticleID struct {
	value string
}

// NewArticleID creates a new random ArticleID
func NewArticleID() ArticleID {
	return ArticleID{value: uuid.New().String()}
}

// NewArticleIDFromString creates an ArticleID from an existing string
func NewArticleIDFromString(id string) (ArticleID, error) {
	if strings.TrimSpace(id) == "" {
		return ArticleID{}, errors.New("article ID cannot be empty")
	}
	return ArticleID{value: id}, nil
}

// MustArticleID panics on an empty id; for fixtures and constants
func MustArticleID(id string) ArticleID {
	a, err := NewArticleIDFromString(id)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the string representation of the ArticleID
func (id ArticleID) String() string {
	return id.value
}

// Equals checks if two ArticleIDs are equal
func (id ArticleID) Equals(other ArticleID) bool {
	return id.value == other.value
}

// IsZero checks if the ArticleID is the zero value
func (id ArticleID) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (id ArticleID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ArticleID) UnmarshalText(data []byte) error {
	id.value = string(data)
	return nil
}

// KeywordID identifies a keyword record
type KeywordID struct {
	value string
}

// NewKeywordID creates a new random KeywordID
func NewKeywordID() KeywordID {
	return KeywordID{value: uuid.New().String()}
}

// NewKeywordIDFromString creates a KeywordID from an existing string
func NewKeywordIDFromString(id string) (KeywordID, error) {
	if strings.TrimSpace(id) == "" {
		return KeywordID{}, errors.New("keyword ID cannot be empty")
	}
	return KeywordID{value: id}, nil
}

// String returns the string representation of the KeywordID
func (id KeywordID) String() string {
	return id.value
}

// IsZero checks if the KeywordID is the zero value
func (id KeywordID) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (id KeywordID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *KeywordID) UnmarshalText(data []byte) error {
	id.value = string(data)
	return nil
}

// ArticleStatus is the publication state of an article
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
)

// ParseArticleStatus validates a status string; empty means draft
func ParseArticleStatus(s string) (ArticleStatus, error) {
	switch ArticleStatus(s) {
	case "", StatusDraft:
		return StatusDraft, nil
	case StatusPublished:
		return StatusPublished, nil
	default:
		return "", errors.New("status must be draft or published")
	}
}
