package commands

import (
	"encoding/json"
	"time"

	"github.com/solm0/solmee-xyz-keystone/pkg/utils"
)

// ProcessContentCommand is raised whenever an article body is created or updated
type ProcessContentCommand struct {
	ArticleID string `json:"articleId" validate:"required,max=128"`
	Operation string `json:"operation" validate:"required,oneof=create update"`
	// Title is used when a create event registers an unknown article
	Title            string          `json:"title,omitempty" validate:"max=200"`
	Document         json.RawMessage `json:"document"`
	PreviousDocument json.RawMessage `json:"previousDocument,omitempty"`
}

// Validate validates the command
func (c ProcessContentCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// HasPreviousDocument reports whether the trigger sent the body before the change
func (c ProcessContentCommand) HasPreviousDocument() bool {
	return len(c.PreviousDocument) > 0
}

// RegisterArticleCommand creates or updates an article record
type RegisterArticleCommand struct {
	ArticleID string `json:"id,omitempty" validate:"omitempty,max=128"`
	Title     string `json:"title" validate:"required,max=200"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=draft published"`

	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Order       *int       `json:"order,omitempty"`
	Meta        bool       `json:"meta,omitempty"`
}

// Validate validates the command
func (c RegisterArticleCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// AssignDefaultTagCommand tags a freshly created article with the configured default tag
type AssignDefaultTagCommand struct {
	ArticleID string `json:"articleId" validate:"required"`
}

// Validate validates the command
func (c AssignDefaultTagCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SetCuratedLinksCommand replaces the editor-curated links of an article
type SetCuratedLinksCommand struct {
	ArticleID string   `json:"articleId" validate:"required"`
	Targets   []string `json:"targets" validate:"max=100,dive,required"`
}

// Validate validates the command
func (c SetCuratedLinksCommand) Validate() error {
	return utils.ValidateStruct(c)
}
