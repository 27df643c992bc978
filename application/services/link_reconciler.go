package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/domain/events"
	"github.com/solm0/solmee-xyz-keystone/domain/services/reconcile"
)

// LinkInput is what the reconciler needs for one article
type LinkInput struct {
	ArticleID valueobjects.ArticleID
	// Targets are the extracted ids in document order, duplicates allowed
	Targets []string
	// Previous is used instead of the stored targets when PreviousKnown is set
	Previous      []string
	PreviousKnown bool
}

// LinkResult describes the outcome of one reconciliation
type LinkResult struct {
	Targets []string            `json:"targets"`
	Delta   reconcile.LinkDelta `json:"delta"`
	Applied bool                `json:"applied"`
}

// LinkReconciler keeps an article's internal links equal to the references in its body
type LinkReconciler struct {
	store     ports.LinkStore
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewLinkReconciler creates a new link reconciler
func NewLinkReconciler(store ports.LinkStore, publisher ports.EventPublisher, logger *zap.Logger) *LinkReconciler {
	return &LinkReconciler{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Reconcile applies the connect/disconnect delta between the previous and
// the extracted targets. No mutation is issued when the delta is empty.
func (r *LinkReconciler) Reconcile(ctx context.Context, input LinkInput) (*LinkResult, error) {
	previous := input.Previous
	if !input.PreviousKnown {
		stored, err := r.store.ReadArticlePreviousLinkTargets(ctx, input.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("failed to read previous link targets: %w", err)
		}
		previous = stored
	}

	targets := reconcile.ToSet(input.Targets)
	delta := reconcile.DiffLinks(targets, previous)
	result := &LinkResult{Targets: targets, Delta: delta}

	if delta.IsEmpty() {
		r.logger.Debug("Internal links unchanged",
			zap.String("article_id", input.ArticleID.String()),
			zap.Int("targets", len(targets)),
		)
		return result, nil
	}

	if err := r.store.ApplyInternalLinkDelta(ctx, input.ArticleID, delta.Connect, delta.Disconnect); err != nil {
		return nil, fmt.Errorf("failed to apply internal link delta: %w", err)
	}
	result.Applied = true

	r.logger.Info("Internal links reconciled",
		zap.String("article_id", input.ArticleID.String()),
		zap.Strings("connected", delta.Connect),
		zap.Strings("disconnected", delta.Disconnect),
	)

	publish(ctx, r.publisher, r.logger,
		events.NewInternalLinksReconciled(input.ArticleID, delta.Connect, delta.Disconnect, time.Now().UTC()))

	return result, nil
}
