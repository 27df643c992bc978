package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/commands"
	"github.com/solm0/solmee-xyz-keystone/application/services"
	"github.com/solm0/solmee-xyz-keystone/domain/config"
	"github.com/solm0/solmee-xyz-keystone/domain/core/document"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// ProcessContentHandler decodes a changed article body and runs the content pipeline on it
type ProcessContentHandler struct {
	cfg      *config.PipelineConfig
	pipeline *services.ContentPipeline
	logger   *zap.Logger
}

// NewProcessContentHandler creates a new process content handler
func NewProcessContentHandler(
	cfg *config.PipelineConfig,
	pipeline *services.ContentPipeline,
	logger *zap.Logger,
) *ProcessContentHandler {
	return &ProcessContentHandler{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Handle executes the process content command. On a partial failure both the
// result and the error are returned.
func (h *ProcessContentHandler) Handle(ctx context.Context, cmd commands.ProcessContentCommand) (*services.ContentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	articleID, err := valueobjects.NewArticleIDFromString(cmd.ArticleID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	doc, dropped, err := h.decode(cmd.Document, "document", articleID)
	if err != nil {
		return nil, err
	}

	input := services.ContentInput{
		ArticleID:       articleID,
		Document:        doc,
		DroppedSubtrees: dropped,
	}

	if cmd.HasPreviousDocument() {
		previous, _, err := h.decode(cmd.PreviousDocument, "previousDocument", articleID)
		if err != nil {
			return nil, err
		}
		input.PreviousDocument = &previous
	}

	return h.pipeline.Run(ctx, input)
}

// decode honours StrictDocuments; lenient mode warns about every dropped subtree
func (h *ProcessContentHandler) decode(data []byte, field string, articleID valueobjects.ArticleID) (document.Document, int, error) {
	if h.cfg.StrictDocuments {
		doc, err := document.DecodeStrict(data)
		if err != nil {
			return document.Document{}, 0, fmt.Errorf("%s: %w", field, err)
		}
		return doc, 0, nil
	}

	doc, report := document.Decode(data)
	if !report.Clean() {
		h.logger.Warn("Dropped malformed document subtrees",
			zap.String("article_id", articleID.String()),
			zap.String("field", field),
			zap.Int("dropped", report.Dropped()),
			zap.Strings("issues", report.Issues),
		)
	}
	return doc, report.Dropped(), nil
}
