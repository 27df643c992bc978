package entities

import (
	"strings"

	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// Keyword is a vocabulary record. Its name is the normalized token and is
// unique across the vocabulary; records are never renamed.
type Keyword struct {
	ID   valueobjects.KeywordID `json:"id"`
	Name string                 `json:"name"`
}

// NewKeyword creates a keyword record with a fresh id
func NewKeyword(name string) (Keyword, error) {
	if strings.TrimSpace(name) == "" {
		return Keyword{}, pkgerrors.NewValidationError("keyword name cannot be empty")
	}
	return Keyword{ID: valueobjects.NewKeywordID(), Name: name}, nil
}

// ReconstructKeyword rebuilds a keyword from stored data
func ReconstructKeyword(id, name string) Keyword {
	kid, _ := valueobjects.NewKeywordIDFromString(id)
	return Keyword{ID: kid, Name: name}
}

// Vocabulary indexes keyword records by name
type Vocabulary map[string]valueobjects.KeywordID

// NewVocabulary indexes records; the first record wins on duplicate names
func NewVocabulary(keywords []Keyword) Vocabulary {
	v := make(Vocabulary, len(keywords))
	for _, k := range keywords {
		if _, exists := v[k.Name]; !exists {
			v[k.Name] = k.ID
		}
	}
	return v
}

// Lookup returns the id for name
func (v Vocabulary) Lookup(name string) (valueobjects.KeywordID, bool) {
	id, ok := v[name]
	return id, ok
}
