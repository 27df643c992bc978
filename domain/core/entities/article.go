package entities

import (
	"strings"
	"time"

	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

const maxTitleLength = 200

// Article is a blog post as seen by the content pipeline: its keyword
// associations and its two link relations.
type Article struct {
	id        valueobjects.ArticleID
	title     string
	status    valueobjects.ArticleStatus
	tagID     string
	details   Details
	createdAt time.Time
	updatedAt time.Time
}

// Details are the listing fields of a post. The pipeline stores them as given.
type Details struct {
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Order       *int       `json:"order,omitempty"`
	Meta        bool       `json:"meta"`
}

func (d Details) clone() Details {
	out := Details{Meta: d.Meta}
	if d.PublishedAt != nil {
		t := d.PublishedAt.UTC()
		out.PublishedAt = &t
	}
	if d.Order != nil {
		o := *d.Order
		out.Order = &o
	}
	return out
}

// NewArticle creates a draft article
func NewArticle(id valueobjects.ArticleID, title string) (*Article, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("article id cannot be empty")
	}
	title = strings.TrimSpace(title)
	if len([]rune(title)) > maxTitleLength {
		return nil, pkgerrors.NewValidationError("title is too long")
	}

	now := time.Now().UTC()
	return &Article{
		id:        id,
		title:     title,
		status:    valueobjects.StatusDraft,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructArticle rebuilds an article from stored data
func ReconstructArticle(id valueobjects.ArticleID, title string, status valueobjects.ArticleStatus, tagID string, details Details, createdAt, updatedAt time.Time) *Article {
	return &Article{
		id:        id,
		title:     title,
		status:    status,
		tagID:     tagID,
		details:   details.clone(),
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (a *Article) ID() valueobjects.ArticleID         { return a.id }
func (a *Article) Title() string                      { return a.title }
func (a *Article) Status() valueobjects.ArticleStatus { return a.status }
func (a *Article) TagID() string                      { return a.tagID }
func (a *Article) Details() Details                   { return a.details.clone() }
func (a *Article) CreatedAt() time.Time               { return a.createdAt }
func (a *Article) UpdatedAt() time.Time               { return a.updatedAt }

// SetStatus moves the article between draft and published
func (a *Article) SetStatus(status valueobjects.ArticleStatus) {
	if a.status == status {
		return
	}
	a.status = status
	a.updatedAt = time.Now().UTC()
}

// SetDetails replaces the listing fields
func (a *Article) SetDetails(details Details) {
	a.details = details.clone()
	a.updatedAt = time.Now().UTC()
}

// HasTag reports whether a tag is already assigned
func (a *Article) HasTag() bool {
	return a.tagID != ""
}

// AssignTag sets the article tag
func (a *Article) AssignTag(tagID string) error {
	if strings.TrimSpace(tagID) == "" {
		return pkgerrors.NewValidationError("tag id cannot be empty")
	}
	a.tagID = tagID
	a.updatedAt = time.Now().UTC()
	return nil
}

// ArticleGraph is the read model of one article's associations
type ArticleGraph struct {
	ArticleID         string    `json:"articleId"`
	Title             string    `json:"title"`
	Status            string    `json:"status"`
	TagID             string    `json:"tagId,omitempty"`
	Details
	Keywords          []Keyword `json:"keywords"`
	Links             []string  `json:"links"`
	Backlinks         []string  `json:"backlinks"`
	InternalLinks     []string  `json:"internalLinks"`
	InternalBacklinks []string  `json:"internalBacklinks"`
}
