package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/config"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/domain/services/keywords"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/persistence/memory"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
	"github.com/solm0/solmee-xyz-keystone/tests/fixtures"
	"github.com/solm0/solmee-xyz-keystone/tests/mocks"
)

// countingStore counts mutation calls on top of the memory store
type countingStore struct {
	*memory.Store
	mutations atomic.Int32
}

func (s *countingStore) SetArticleKeywords(ctx context.Context, id valueobjects.ArticleID, connect, create []string) ([]entities.Keyword, error) {
	s.mutations.Add(1)
	return s.Store.SetArticleKeywords(ctx, id, connect, create)
}

func (s *countingStore) ApplyInternalLinkDelta(ctx context.Context, id valueobjects.ArticleID, connect, disconnect []string) error {
	s.mutations.Add(1)
	return s.Store.ApplyInternalLinkDelta(ctx, id, connect, disconnect)
}

func newPipeline(store ports.EntityStore, cfg *config.PipelineConfig, locker ports.ArticleLocker) *ContentPipeline {
	logger := zap.NewNop()
	extractor := keywords.NewExtractor(cfg, keywords.NewStaticLexicon(config.DefaultLexicon()))
	return NewContentPipeline(
		cfg,
		extractor,
		NewKeywordPersister(store, nil, logger),
		NewLinkReconciler(store, nil, logger),
		locker,
		nil,
		logger,
	)
}

func seedArticles(t *testing.T, store ports.ArticleStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.SaveArticle(context.Background(), fixtures.NewArticleBuilder().WithID(id).MustBuild()))
	}
}

func TestContentPipeline_Run_EndToEnd(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore()}
	seedArticles(t, store, "a", "b", "c", "d")
	pipeline := newPipeline(store, config.DefaultPipelineConfig(), nil)

	doc := fixtures.NewDocumentBuilder().
		Heading("도시 도시 도시 제목은 제외").
		Paragraph("서울은 좋은 도시다 도시 생활 도시").
		ParagraphWithRefs("참고", "b", "c").
		Paragraph("").
		ParagraphWithRefs("다시", "b").
		InternalLinkBlock("d").
		Build()

	// Act
	result, err := pipeline.Run(ctx, ContentInput{ArticleID: valueobjects.MustArticleID("a"), Document: doc})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"도시"}, result.Extraction.Keywords)
	assert.Equal(t, []string{"b", "c", "b", "d"}, result.Extraction.Targets)
	assert.Equal(t, []string{"b", "c", "d"}, result.Links.Targets)
	assert.Equal(t, []string{"도시"}, result.Keywords.Created)

	graph, err := store.GetArticleGraph(ctx, valueobjects.MustArticleID("a"))
	require.NoError(t, err)
	require.Len(t, graph.Keywords, 1)
	assert.Equal(t, "도시", graph.Keywords[0].Name)
	assert.Equal(t, []string{"b", "c", "d"}, graph.InternalLinks)

	b, _ := store.GetArticleGraph(ctx, valueobjects.MustArticleID("b"))
	assert.Equal(t, []string{"a"}, b.InternalBacklinks)
}

func TestContentPipeline_Run_IdempotentOnUnchangedContent(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore()}
	seedArticles(t, store, "a", "b")
	pipeline := newPipeline(store, config.DefaultPipelineConfig(), nil)

	doc := fixtures.NewDocumentBuilder().
		Paragraph(strings.Repeat("golang 서버 ", 4)).
		ParagraphWithRefs("링크", "b").
		Build()
	input := ContentInput{ArticleID: valueobjects.MustArticleID("a"), Document: doc}

	_, err := pipeline.Run(ctx, input)
	require.NoError(t, err)
	require.Equal(t, int32(2), store.mutations.Load())

	second, err := pipeline.Run(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, int32(2), store.mutations.Load(), "second run must not mutate")
	assert.False(t, second.Keywords.Applied)
	assert.False(t, second.Links.Applied)
}

func TestContentPipeline_Run_DropsStaleKeywordsAndLinks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedArticles(t, store, "a", "b", "c")
	pipeline := newPipeline(store, config.DefaultPipelineConfig(), nil)
	id := valueobjects.MustArticleID("a")

	first := fixtures.NewDocumentBuilder().Paragraph("apple apple apple kiwi kiwi kiwi").ParagraphWithRefs("x", "b").Build()
	_, err := pipeline.Run(ctx, ContentInput{ArticleID: id, Document: first})
	require.NoError(t, err)

	second := fixtures.NewDocumentBuilder().Paragraph("apple apple apple").ParagraphWithRefs("x", "c").Build()
	_, err = pipeline.Run(ctx, ContentInput{ArticleID: id, Document: second})
	require.NoError(t, err)

	graph, _ := store.GetArticleGraph(ctx, id)
	require.Len(t, graph.Keywords, 1)
	assert.Equal(t, "apple", graph.Keywords[0].Name)
	assert.Equal(t, []string{"c"}, graph.InternalLinks)

	b, _ := store.GetArticleGraph(ctx, valueobjects.MustArticleID("b"))
	assert.Empty(t, b.InternalBacklinks)
}

func TestContentPipeline_Run_EmptyDocumentClears(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedArticles(t, store, "a", "b")
	pipeline := newPipeline(store, config.DefaultPipelineConfig(), nil)
	id := valueobjects.MustArticleID("a")

	full := fixtures.NewDocumentBuilder().Paragraph("apple apple apple").ParagraphWithRefs("x", "b").Build()
	_, err := pipeline.Run(ctx, ContentInput{ArticleID: id, Document: full})
	require.NoError(t, err)

	result, err := pipeline.Run(ctx, ContentInput{ArticleID: id})

	require.NoError(t, err)
	assert.True(t, result.Keywords.Applied)
	assert.Equal(t, []string{"b"}, result.Links.Delta.Disconnect)
	graph, _ := store.GetArticleGraph(ctx, id)
	assert.Empty(t, graph.Keywords)
	assert.Empty(t, graph.InternalLinks)
}

func TestContentPipeline_Run_HalvesFailIndependently(t *testing.T) {
	// Arrange
	store := new(mocks.MockEntityStore)
	id := valueobjects.MustArticleID("a")
	unavailable := pkgerrors.NewStoreUnavailableError("fetch keywords", errors.New("connection refused"))

	store.On("FetchAllKeywords", mock.Anything).Return(nil, unavailable)
	store.On("ReadArticlePreviousLinkTargets", mock.Anything, id).Return([]string{}, nil)
	store.On("ApplyInternalLinkDelta", mock.Anything, id, []string{"b"}, []string{}).Return(nil)

	pipeline := newPipeline(store, config.DefaultPipelineConfig(), nil)
	doc := fixtures.NewDocumentBuilder().Paragraph("apple apple apple").ParagraphWithRefs("x", "b").Build()

	// Act
	result, err := pipeline.Run(context.Background(), ContentInput{ArticleID: id, Document: doc})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStoreUnavailable(err))
	assert.True(t, result.Partial())
	assert.Nil(t, result.Keywords)
	assert.Error(t, result.KeywordsErr)
	require.NotNil(t, result.Links)
	assert.True(t, result.Links.Applied)
	store.AssertExpectations(t)
}

func TestContentPipeline_Run_BothHalvesFail(t *testing.T) {
	store := new(mocks.MockEntityStore)
	id := valueobjects.MustArticleID("a")

	store.On("FetchAllKeywords", mock.Anything).Return(nil, errors.New("keywords down"))
	store.On("ReadArticlePreviousLinkTargets", mock.Anything, id).Return(nil, errors.New("links down"))

	pipeline := newPipeline(store, config.DefaultPipelineConfig(), nil)

	result, err := pipeline.Run(context.Background(), ContentInput{ArticleID: id})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "keywords down")
	assert.Contains(t, err.Error(), "links down")
	assert.False(t, result.Partial())
}

func TestContentPipeline_Run_PreviousDocument(t *testing.T) {
	store := new(mocks.MockEntityStore)
	id := valueobjects.MustArticleID("a")

	store.On("FetchAllKeywords", mock.Anything).Return([]entities.Keyword{}, nil)
	store.On("ReadArticleKeywordIDs", mock.Anything, id).Return([]string{}, nil)
	store.On("ApplyInternalLinkDelta", mock.Anything, id, []string{"c"}, []string{"b"}).Return(nil)

	pipeline := newPipeline(store, config.DefaultPipelineConfig(), nil)
	previous := fixtures.NewDocumentBuilder().ParagraphWithRefs("x", "b").Build()
	next := fixtures.NewDocumentBuilder().ParagraphWithRefs("x", "c").Build()

	_, err := pipeline.Run(context.Background(), ContentInput{ArticleID: id, Document: next, PreviousDocument: &previous})

	require.NoError(t, err)
	store.AssertNotCalled(t, "ReadArticlePreviousLinkTargets", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestContentPipeline_Run_LocksArticle(t *testing.T) {
	store := memory.NewStore()
	seedArticles(t, store, "a")
	locker := new(mocks.MockArticleLocker)
	id := valueobjects.MustArticleID("a")

	var released atomic.Bool
	locker.On("Lock", mock.Anything, id).Return(ports.Unlock(func(context.Context) error {
		released.Store(true)
		return nil
	}), nil)

	cfg := config.DefaultPipelineConfig()
	cfg.LockArticles = true
	pipeline := newPipeline(store, cfg, locker)

	_, err := pipeline.Run(context.Background(), ContentInput{ArticleID: id})

	require.NoError(t, err)
	assert.True(t, released.Load())
	locker.AssertExpectations(t)
}

func TestContentPipeline_Run_LockFailure(t *testing.T) {
	store := new(mocks.MockEntityStore)
	locker := new(mocks.MockArticleLocker)
	id := valueobjects.MustArticleID("a")

	locker.On("Lock", mock.Anything, id).Return(nil, pkgerrors.NewTimeoutError("lock article a"))

	cfg := config.DefaultPipelineConfig()
	cfg.LockArticles = true
	pipeline := newPipeline(store, cfg, locker)

	result, err := pipeline.Run(context.Background(), ContentInput{ArticleID: id})

	assert.Nil(t, result)
	assert.Error(t, err)
	store.AssertNotCalled(t, "FetchAllKeywords", mock.Anything)
}

func TestContentPipeline_Extract_NoStoreAccess(t *testing.T) {
	store := new(mocks.MockEntityStore)
	pipeline := newPipeline(store, config.DefaultPipelineConfig(), nil)

	ext := pipeline.Extract(fixtures.NewDocumentBuilder().Paragraph("서울은 좋은 도시다 도시 생활 도시").Build())

	assert.Equal(t, "서울은 좋은 도시다 도시 생활 도시", ext.Text)
	assert.Equal(t, []string{"도시"}, ext.Keywords)
	assert.Empty(t, ext.Targets)
	store.AssertExpectations(t)
}
