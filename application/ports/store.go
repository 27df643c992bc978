package ports

import (
	"context"

	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/domain/events"
)

// KeywordStore is the keyword side of the entity store
type KeywordStore interface {
	// FetchAllKeywords returns the full vocabulary
	FetchAllKeywords(ctx context.Context) ([]entities.Keyword, error)

	// ReadArticleKeywordIDs returns the ids currently associated with an article
	ReadArticleKeywordIDs(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error)

	// SetArticleKeywords replaces the article's keyword associations with
	// connectIDs plus one new record per createNames entry, atomically.
	// A name that already exists fails with ConstraintViolation.
	SetArticleKeywords(ctx context.Context, articleID valueobjects.ArticleID, connectIDs, createNames []string) ([]entities.Keyword, error)
}

// LinkStore is the internal link side of the entity store. The store keeps
// internal backlinks consistent with every applied delta.
type LinkStore interface {
	// ReadArticlePreviousLinkTargets returns the recorded internal link targets
	ReadArticlePreviousLinkTargets(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error)

	// ApplyInternalLinkDelta connects and disconnects targets in one mutation.
	// A target that does not exist fails with ConstraintViolation.
	ApplyInternalLinkDelta(ctx context.Context, articleID valueobjects.ArticleID, connect, disconnect []string) error
}

// ArticleStore holds the article records themselves
type ArticleStore interface {
	// SaveArticle creates or updates an article record
	SaveArticle(ctx context.Context, article *entities.Article) error

	// GetArticle returns NotFound when the article is unknown
	GetArticle(ctx context.Context, articleID valueobjects.ArticleID) (*entities.Article, error)

	// AssignTag sets the article tag
	AssignTag(ctx context.Context, articleID valueobjects.ArticleID, tagID string) error

	// SetCuratedLinks replaces the editor-curated links; backlinks follow
	SetCuratedLinks(ctx context.Context, articleID valueobjects.ArticleID, targets []string) error

	// GetArticleGraph returns every association of an article
	GetArticleGraph(ctx context.Context, articleID valueobjects.ArticleID) (*entities.ArticleGraph, error)
}

// EntityStore is the durable state the content pipeline reads and mutates
type EntityStore interface {
	KeywordStore
	LinkStore
	ArticleStore
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Unlock releases a lock taken by ArticleLocker
type Unlock func(ctx context.Context) error

// ArticleLocker serializes pipeline runs for one article
type ArticleLocker interface {
	// Lock blocks until the article lock is held or ctx is done
	Lock(ctx context.Context, articleID valueobjects.ArticleID) (Unlock, error)
}
