package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/domain/events"
	"github.com/solm0/solmee-xyz-keystone/domain/services/reconcile"
)

// KeywordResult describes the outcome of one keyword persistence
type KeywordResult struct {
	Keywords   []string `json:"keywords"`
	ConnectIDs []string `json:"connected"`
	Created    []string `json:"created"`
	Applied    bool     `json:"applied"`
}

// KeywordPersister writes an article's extracted keywords to the store
type KeywordPersister struct {
	store     ports.KeywordStore
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewKeywordPersister creates a new keyword persister
func NewKeywordPersister(store ports.KeywordStore, publisher ports.EventPublisher, logger *zap.Logger) *KeywordPersister {
	return &KeywordPersister{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Persist replaces the article's keyword set with exactly the extracted
// keywords, reusing vocabulary records by name and creating the rest.
// An empty extraction clears the set. Store failures are returned unretried.
func (p *KeywordPersister) Persist(ctx context.Context, articleID valueobjects.ArticleID, extracted []string) (*KeywordResult, error) {
	vocabulary, err := p.store.FetchAllKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keyword vocabulary: %w", err)
	}

	plan := reconcile.PlanKeywords(extracted, entities.NewVocabulary(vocabulary))
	result := &KeywordResult{
		Keywords:   plan.Keywords,
		ConnectIDs: plan.ConnectIDs,
		Created:    plan.Create,
	}

	current, err := p.store.ReadArticleKeywordIDs(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to read article keywords: %w", err)
	}
	if plan.Satisfied(current) {
		p.logger.Debug("Keyword set unchanged",
			zap.String("article_id", articleID.String()),
			zap.Strings("keywords", plan.Keywords),
		)
		return result, nil
	}

	if _, err := p.store.SetArticleKeywords(ctx, articleID, plan.ConnectIDs, plan.Create); err != nil {
		return nil, fmt.Errorf("failed to set article keywords: %w", err)
	}
	result.Applied = true

	p.logger.Info("Article keywords updated",
		zap.String("article_id", articleID.String()),
		zap.Strings("keywords", plan.Keywords),
		zap.Int("connected", len(plan.ConnectIDs)),
		zap.Int("created", len(plan.Create)),
	)

	publish(ctx, p.publisher, p.logger,
		events.NewKeywordsUpdated(articleID, plan.Keywords, plan.ConnectIDs, plan.Create, time.Now().UTC()))

	return result, nil
}

// publish sends an event after a successful mutation. The mutation already
// happened, so a publish failure is only logged.
func publish(ctx context.Context, publisher ports.EventPublisher, logger *zap.Logger, event events.DomainEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.String("article_id", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
