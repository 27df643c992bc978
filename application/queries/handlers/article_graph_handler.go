package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/application/queries"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// GetArticleGraphHandler handles article graph queries
type GetArticleGraphHandler struct {
	store  ports.ArticleStore
	logger *zap.Logger
}

// NewGetArticleGraphHandler creates a new handler
func NewGetArticleGraphHandler(store ports.ArticleStore, logger *zap.Logger) *GetArticleGraphHandler {
	return &GetArticleGraphHandler{store: store, logger: logger}
}

// Handle processes the query
func (h *GetArticleGraphHandler) Handle(ctx context.Context, query queries.GetArticleGraphQuery) (*entities.ArticleGraph, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	articleID, err := valueobjects.NewArticleIDFromString(query.ArticleID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	graph, err := h.store.GetArticleGraph(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article graph: %w", err)
	}

	h.logger.Debug("Article graph loaded",
		zap.String("article_id", articleID.String()),
		zap.Int("keywords", len(graph.Keywords)),
		zap.Int("internal_links", len(graph.InternalLinks)),
	)
	return graph, nil
}

// ListKeywordsHandler handles vocabulary queries
type ListKeywordsHandler struct {
	store ports.KeywordStore
}

// NewListKeywordsHandler creates a new handler
func NewListKeywordsHandler(store ports.KeywordStore) *ListKeywordsHandler {
	return &ListKeywordsHandler{store: store}
}

// Handle returns the vocabulary in creation order. Total counts the matches
// before the limit is applied.
func (h *ListKeywordsHandler) Handle(ctx context.Context, query queries.ListKeywordsQuery) (*queries.ListKeywordsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	all, err := h.store.FetchAllKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keywords: %w", err)
	}

	views := make([]queries.KeywordView, 0, len(all))
	for _, kw := range all {
		if query.Prefix != "" && !strings.HasPrefix(kw.Name, query.Prefix) {
			continue
		}
		views = append(views, queries.KeywordView{ID: kw.ID.String(), Name: kw.Name})
	}

	result := &queries.ListKeywordsResult{Keywords: views, Total: len(views)}
	if query.Limit > 0 && len(views) > query.Limit {
		result.Keywords = views[:query.Limit]
	}
	return result, nil
}
