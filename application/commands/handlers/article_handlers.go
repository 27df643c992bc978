package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/commands"
	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/config"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// RegisterArticleHandler creates or updates article records
type RegisterArticleHandler struct {
	store  ports.ArticleStore
	logger *zap.Logger
}

// NewRegisterArticleHandler creates a new register article handler
func NewRegisterArticleHandler(store ports.ArticleStore, logger *zap.Logger) *RegisterArticleHandler {
	return &RegisterArticleHandler{store: store, logger: logger}
}

// Handle executes the register article command. A missing id gets a fresh one.
func (h *RegisterArticleHandler) Handle(ctx context.Context, cmd commands.RegisterArticleCommand) (*entities.Article, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	articleID := valueobjects.NewArticleID()
	if cmd.ArticleID != "" {
		id, err := valueobjects.NewArticleIDFromString(cmd.ArticleID)
		if err != nil {
			return nil, pkgerrors.NewValidationError(err.Error())
		}
		articleID = id
	}

	status, err := valueobjects.ParseArticleStatus(cmd.Status)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	article, err := entities.NewArticle(articleID, cmd.Title)
	if err != nil {
		return nil, err
	}
	article.SetStatus(status)
	article.SetDetails(entities.Details{PublishedAt: cmd.PublishedAt, Order: cmd.Order, Meta: cmd.Meta})

	// An existing record keeps its tag and creation time
	existing, err := h.store.GetArticle(ctx, articleID)
	switch {
	case err == nil:
		article = entities.ReconstructArticle(articleID, article.Title(), status, existing.TagID(), article.Details(), existing.CreatedAt(), article.UpdatedAt())
	case !pkgerrors.IsNotFound(err):
		return nil, fmt.Errorf("failed to read article: %w", err)
	}

	if err := h.store.SaveArticle(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save article: %w", err)
	}

	h.logger.Info("Article registered",
		zap.String("article_id", articleID.String()),
		zap.String("status", string(status)),
	)
	return article, nil
}

// AssignDefaultTagHandler connects the configured default tag to untagged articles
type AssignDefaultTagHandler struct {
	cfg    *config.PipelineConfig
	store  ports.ArticleStore
	logger *zap.Logger
}

// NewAssignDefaultTagHandler creates a new assign default tag handler
func NewAssignDefaultTagHandler(cfg *config.PipelineConfig, store ports.ArticleStore, logger *zap.Logger) *AssignDefaultTagHandler {
	return &AssignDefaultTagHandler{cfg: cfg, store: store, logger: logger}
}

// Handle reports whether a tag was assigned. Nothing happens when no default
// tag is configured or the article already has one.
func (h *AssignDefaultTagHandler) Handle(ctx context.Context, cmd commands.AssignDefaultTagCommand) (bool, error) {
	if err := cmd.Validate(); err != nil {
		return false, fmt.Errorf("invalid command: %w", err)
	}
	if h.cfg.DefaultTagID == "" {
		return false, nil
	}

	articleID, err := valueobjects.NewArticleIDFromString(cmd.ArticleID)
	if err != nil {
		return false, pkgerrors.NewValidationError(err.Error())
	}

	article, err := h.store.GetArticle(ctx, articleID)
	if err != nil {
		return false, fmt.Errorf("failed to read article: %w", err)
	}
	if article.HasTag() {
		return false, nil
	}

	if err := h.store.AssignTag(ctx, articleID, h.cfg.DefaultTagID); err != nil {
		return false, fmt.Errorf("failed to assign default tag: %w", err)
	}

	h.logger.Info("Default tag assigned",
		zap.String("article_id", articleID.String()),
		zap.String("tag_id", h.cfg.DefaultTagID),
	)
	return true, nil
}

// SetCuratedLinksHandler replaces editor-curated links
type SetCuratedLinksHandler struct {
	store  ports.ArticleStore
	logger *zap.Logger
}

// NewSetCuratedLinksHandler creates a new set curated links handler
func NewSetCuratedLinksHandler(store ports.ArticleStore, logger *zap.Logger) *SetCuratedLinksHandler {
	return &SetCuratedLinksHandler{store: store, logger: logger}
}

// Handle executes the set curated links command
func (h *SetCuratedLinksHandler) Handle(ctx context.Context, cmd commands.SetCuratedLinksCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	articleID, err := valueobjects.NewArticleIDFromString(cmd.ArticleID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	targets := make([]string, 0, len(cmd.Targets))
	for _, target := range cmd.Targets {
		if target == articleID.String() {
			return pkgerrors.NewValidationError("an article cannot link to itself")
		}
		targets = append(targets, target)
	}

	if err := h.store.SetCuratedLinks(ctx, articleID, targets); err != nil {
		return fmt.Errorf("failed to set curated links: %w", err)
	}

	h.logger.Info("Curated links updated",
		zap.String("article_id", articleID.String()),
		zap.Int("count", len(targets)),
	)
	return nil
}
