package queries

import "github.com/solm0/solmee-xyz-keystone/pkg/utils"

// GetArticleGraphQuery asks for every association of one article
type GetArticleGraphQuery struct {
	ArticleID string `validate:"required"`
}

// Validate validates the GetArticleGraphQuery
func (q GetArticleGraphQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListKeywordsQuery asks for the keyword vocabulary, optionally filtered by name prefix
type ListKeywordsQuery struct {
	Prefix string `validate:"max=64"`
	Limit  int    `validate:"min=0,max=1000"`
}

// Validate validates the ListKeywordsQuery
func (q ListKeywordsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// KeywordView is one vocabulary entry
type KeywordView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListKeywordsResult represents the vocabulary listing
type ListKeywordsResult struct {
	Keywords []KeywordView `json:"keywords"`
	Total    int           `json:"total"`
}
