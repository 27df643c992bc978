package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/commands"
	cmdhandlers "github.com/solm0/solmee-xyz-keystone/application/commands/handlers"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// DetailTypeContentChanged is the EventBridge detail-type the CMS emits when
// an article body is created or updated
const DetailTypeContentChanged = "article.content_changed"

// contentChangedDetail is the detail of a content-changed event
type contentChangedDetail struct {
	ArticleID        string          `json:"articleId"`
	Operation        string          `json:"operation"`
	Title            string          `json:"title,omitempty"`
	Document         json.RawMessage `json:"document"`
	PreviousDocument json.RawMessage `json:"previousDocument,omitempty"`
}

// EventHandler runs the article lifecycle hooks for content-changed events
type EventHandler struct {
	dispatcher *cmdhandlers.ContentDispatcher
	logger     *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(dispatcher *cmdhandlers.ContentDispatcher, logger *zap.Logger) *EventHandler {
	return &EventHandler{dispatcher: dispatcher, logger: logger}
}

// Handle processes one event. Only failures that a retry can fix are
// returned; everything else is logged and acknowledged.
func (h *EventHandler) Handle(ctx context.Context, event events.CloudWatchEvent) error {
	logger := h.logger.With(
		zap.String("event_id", event.ID),
		zap.String("detail_type", event.DetailType),
		zap.String("source", event.Source),
	)

	if event.DetailType != DetailTypeContentChanged {
		logger.Warn("Ignoring event with unexpected detail type")
		return nil
	}

	var detail contentChangedDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		logger.Error("Dropping event with unreadable detail", zap.Error(err))
		return nil
	}

	result, err := h.dispatcher.Dispatch(ctx, commands.ProcessContentCommand{
		ArticleID:        detail.ArticleID,
		Operation:        detail.Operation,
		Title:            detail.Title,
		Document:         detail.Document,
		PreviousDocument: detail.PreviousDocument,
	})
	if err == nil && result != nil {
		logger.Info("Content processed",
			zap.String("article_id", detail.ArticleID),
			zap.Strings("keywords", result.Keywords.Keywords),
			zap.Strings("connected", result.Links.Delta.Connect),
			zap.Strings("disconnected", result.Links.Delta.Disconnect),
		)
		return nil
	}
	if err == nil {
		return nil
	}

	if retryable(err) {
		logger.Error("Content processing failed, event will be retried",
			zap.String("article_id", detail.ArticleID),
			zap.Error(err),
		)
		return fmt.Errorf("process article %s: %w", detail.ArticleID, err)
	}

	logger.Error("Content processing failed",
		zap.String("article_id", detail.ArticleID),
		zap.Bool("partial", result != nil && result.Partial()),
		zap.Error(err),
	)
	return nil
}

// retryable reports whether err came from the store being out of reach.
// Both halves are idempotent, so replaying the event is safe.
func retryable(err error) bool {
	return pkgerrors.IsStoreUnavailable(err) || pkgerrors.IsType(err, pkgerrors.ErrorTypeTimeout)
}
