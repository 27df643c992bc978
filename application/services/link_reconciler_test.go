package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
	"github.com/solm0/solmee-xyz-keystone/tests/mocks"
)

func TestLinkReconciler_AppliesMinimalDelta(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := new(mocks.MockEntityStore)
	publisher := new(mocks.MockEventPublisher)
	articleID := valueobjects.MustArticleID("post-1")

	store.On("ReadArticlePreviousLinkTargets", ctx, articleID).Return([]string{"X", "Y"}, nil)
	store.On("ApplyInternalLinkDelta", ctx, articleID, []string{"Z"}, []string{"X"}).Return(nil)
	publisher.On("Publish", ctx, mock.AnythingOfType("events.InternalLinksReconciled")).Return(nil)

	reconciler := NewLinkReconciler(store, publisher, zap.NewNop())

	// Act
	result, err := reconciler.Reconcile(ctx, LinkInput{ArticleID: articleID, Targets: []string{"Y", "Z", "Y"}})

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, []string{"Y", "Z"}, result.Targets)
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestLinkReconciler_NoDeltaNoMutation(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockEntityStore)
	articleID := valueobjects.MustArticleID("post-1")

	store.On("ReadArticlePreviousLinkTargets", ctx, articleID).Return([]string{"A", "B"}, nil)

	reconciler := NewLinkReconciler(store, nil, zap.NewNop())

	result, err := reconciler.Reconcile(ctx, LinkInput{ArticleID: articleID, Targets: []string{"B", "A", "B"}})

	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.True(t, result.Delta.IsEmpty())
	store.AssertNotCalled(t, "ApplyInternalLinkDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkReconciler_UsesSuppliedPrevious(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockEntityStore)
	articleID := valueobjects.MustArticleID("post-1")

	store.On("ApplyInternalLinkDelta", ctx, articleID, []string{}, []string{"old"}).Return(nil)

	reconciler := NewLinkReconciler(store, nil, zap.NewNop())

	result, err := reconciler.Reconcile(ctx, LinkInput{
		ArticleID:     articleID,
		Targets:       nil,
		Previous:      []string{"old"},
		PreviousKnown: true,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, result.Delta.Disconnect)
	store.AssertNotCalled(t, "ReadArticlePreviousLinkTargets", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestLinkReconciler_StoreErrors(t *testing.T) {
	ctx := context.Background()
	articleID := valueobjects.MustArticleID("post-1")

	t.Run("read fails", func(t *testing.T) {
		store := new(mocks.MockEntityStore)
		store.On("ReadArticlePreviousLinkTargets", ctx, articleID).
			Return(nil, pkgerrors.NewStoreUnavailableError("read internal links", errors.New("eof")))

		_, err := NewLinkReconciler(store, nil, zap.NewNop()).Reconcile(ctx, LinkInput{ArticleID: articleID, Targets: []string{"A"}})

		assert.True(t, pkgerrors.IsStoreUnavailable(err))
	})

	t.Run("dangling target", func(t *testing.T) {
		store := new(mocks.MockEntityStore)
		store.On("ReadArticlePreviousLinkTargets", ctx, articleID).Return([]string{}, nil)
		store.On("ApplyInternalLinkDelta", ctx, articleID, []string{"ghost"}, []string{}).
			Return(pkgerrors.NewConstraintViolationError("apply internal link delta", "target article ghost does not exist"))

		_, err := NewLinkReconciler(store, nil, zap.NewNop()).Reconcile(ctx, LinkInput{ArticleID: articleID, Targets: []string{"ghost"}})

		assert.True(t, pkgerrors.IsConstraintViolation(err))
	})
}
