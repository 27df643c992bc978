package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cmdhandlers "github.com/solm0/solmee-xyz-keystone/application/commands/handlers"
	"github.com/solm0/solmee-xyz-keystone/application/ports"
	queryhandlers "github.com/solm0/solmee-xyz-keystone/application/queries/handlers"
	"github.com/solm0/solmee-xyz-keystone/application/services"
	"github.com/solm0/solmee-xyz-keystone/domain/config"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/domain/services/keywords"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/observability"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/persistence/memory"
	"github.com/solm0/solmee-xyz-keystone/interfaces/http/rest/handlers"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
	"github.com/solm0/solmee-xyz-keystone/pkg/extensions"
	"github.com/solm0/solmee-xyz-keystone/tests/fixtures"
)

// linkOutage fails every internal link write
type linkOutage struct {
	*memory.Store
}

func (linkOutage) ApplyInternalLinkDelta(context.Context, valueobjects.ArticleID, []string, []string) error {
	return pkgerrors.NewStoreUnavailableError("apply internal link delta", errors.New("connection reset"))
}

func newTestServer(t *testing.T, store ports.EntityStore, opts Options) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.DefaultPipelineConfig()
	cfg.DefaultTagID = "blog"

	pipeline := services.NewContentPipeline(
		cfg,
		keywords.NewExtractor(cfg, keywords.NewStaticLexicon(config.DefaultLexicon())),
		services.NewKeywordPersister(store, nil, logger),
		services.NewLinkReconciler(store, nil, logger),
		nil,
		nil,
		logger,
	)
	register := cmdhandlers.NewRegisterArticleHandler(store, logger)
	hooks := extensions.NewHookManager()
	plugin := cmdhandlers.NewContentPlugin(
		store,
		register,
		cmdhandlers.NewAssignDefaultTagHandler(cfg, store, logger),
		cmdhandlers.NewProcessContentHandler(cfg, pipeline, logger),
		logger,
	)
	require.NoError(t, extensions.NewPluginManager(hooks).Register(context.Background(), plugin))

	errorHandler := pkgerrors.NewErrorHandler(logger, false)
	content := handlers.NewContentHandler(cmdhandlers.NewContentDispatcher(hooks), pipeline, errorHandler, logger)
	articles := handlers.NewArticleHandler(
		register,
		cmdhandlers.NewSetCuratedLinksHandler(store, logger),
		queryhandlers.NewGetArticleGraphHandler(store, logger),
		queryhandlers.NewListKeywordsHandler(store),
		errorHandler,
		logger,
	)
	return NewRouter(content, articles, errorHandler, opts, logger).Setup()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seedArticles(t *testing.T, store ports.ArticleStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.SaveArticle(context.Background(), fixtures.NewArticleBuilder().WithID(id).MustBuild()))
	}
}

func TestRouter_ContentLifecycle(t *testing.T) {
	// Arrange
	store := memory.NewStore()
	seedArticles(t, store, "b")
	server := newTestServer(t, store, Options{})

	create := map[string]interface{}{
		"operation": "create",
		"title":     "여행 기록",
		"document":  fixtures.NewDocumentBuilder().Paragraph("여행 여행 여행 일기").InternalLinkBlock("b").JSON(),
	}

	// Act
	rec := do(t, server, http.MethodPost, "/api/v1/articles/post-1/content", create)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[handlers.ContentResponse](t, rec)
	assert.Equal(t, []string{"여행"}, resp.Keywords)
	assert.Equal(t, []string{"여행"}, resp.Created)
	assert.Equal(t, []string{"b"}, resp.InternalLinks.Connect)
	assert.Empty(t, resp.Errors)

	rec = do(t, server, http.MethodGet, "/api/v1/articles/post-1/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	graph := decode[entities.ArticleGraph](t, rec)
	assert.Equal(t, "여행 기록", graph.Title)
	assert.Equal(t, "blog", graph.TagID)
	assert.Equal(t, []string{"b"}, graph.InternalLinks)

	update := map[string]interface{}{
		"operation": "update",
		"document":  fixtures.NewDocumentBuilder().Paragraph("짧은 글").JSON(),
	}
	rec = do(t, server, http.MethodPost, "/api/v1/articles/post-1/content", update)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[handlers.ContentResponse](t, rec)
	assert.Empty(t, resp.Keywords)
	assert.Equal(t, []string{"b"}, resp.InternalLinks.Disconnect)

	rec = do(t, server, http.MethodGet, "/api/v1/articles/b/graph", nil)
	graph = decode[entities.ArticleGraph](t, rec)
	assert.Empty(t, graph.InternalBacklinks)
}

func TestRouter_ProcessContentStatuses(t *testing.T) {
	doc := fixtures.NewDocumentBuilder().Paragraph("서버 서버 서버").InternalLinkBlock("b").JSON()

	tests := []struct {
		name       string
		store      func() ports.EntityStore
		path       string
		body       map[string]interface{}
		wantStatus int
		assertBody func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "one half failing is a partial success",
			store: func() ports.EntityStore {
				s := memory.NewStore()
				seedArticles(t, s, "a", "b")
				return linkOutage{s}
			},
			path:       "/api/v1/articles/a/content",
			body:       map[string]interface{}{"operation": "update", "document": doc},
			wantStatus: http.StatusMultiStatus,
			assertBody: func(t *testing.T, rec *httptest.ResponseRecorder) {
				resp := decode[handlers.ContentResponse](t, rec)
				assert.Equal(t, []string{"서버"}, resp.Keywords)
				require.Len(t, resp.Errors, 1)
				assert.Equal(t, ports.HalfLinks, resp.Errors[0].Half)
				assert.Equal(t, string(pkgerrors.ErrorTypeStoreUnavailable), resp.Errors[0].Type)
			},
		},
		{
			name:       "update of an unknown article",
			store:      func() ports.EntityStore { return memory.NewStore() },
			path:       "/api/v1/articles/ghost/content",
			body:       map[string]interface{}{"operation": "update", "document": doc},
			wantStatus: http.StatusNotFound,
			assertBody: func(t *testing.T, rec *httptest.ResponseRecorder) {
				resp := decode[handlers.ContentResponse](t, rec)
				assert.Len(t, resp.Errors, 2)
			},
		},
		{
			name:       "unknown operation",
			store:      func() ports.EntityStore { return memory.NewStore() },
			path:       "/api/v1/articles/a/content",
			body:       map[string]interface{}{"operation": "delete", "document": doc},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.store(), Options{})

			rec := do(t, server, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.assertBody != nil {
				tt.assertBody(t, rec)
			}
		})
	}
}

func TestRouter_Articles(t *testing.T) {
	store := memory.NewStore()
	seedArticles(t, store, "b")
	server := newTestServer(t, store, Options{})

	t.Run("register", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/articles", map[string]string{"id": "a", "title": "글", "status": "published"})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		article := decode[handlers.ArticleResponse](t, rec)
		assert.Equal(t, "a", article.ID)
		assert.Equal(t, "published", article.Status)
	})

	t.Run("register without title", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/v1/articles", map[string]string{"id": "c"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("curated links", func(t *testing.T) {
		rec := do(t, server, http.MethodPut, "/api/v1/articles/a/links", map[string][]string{"targets": {"b"}})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = do(t, server, http.MethodGet, "/api/v1/articles/b/graph", nil)
		graph := decode[entities.ArticleGraph](t, rec)
		assert.Equal(t, []string{"a"}, graph.Backlinks)
	})

	t.Run("self link rejected", func(t *testing.T) {
		rec := do(t, server, http.MethodPut, "/api/v1/articles/a/links", map[string][]string{"targets": {"a"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("dangling curated link", func(t *testing.T) {
		rec := do(t, server, http.MethodPut, "/api/v1/articles/a/links", map[string][]string{"targets": {"ghost"}})

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown graph", func(t *testing.T) {
		rec := do(t, server, http.MethodGet, "/api/v1/articles/ghost/graph", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRouter_Keywords(t *testing.T) {
	store := memory.NewStore()
	seedArticles(t, store, "a")
	_, err := store.SetArticleKeywords(context.Background(), valueobjects.MustArticleID("a"), nil, []string{"golang", "go루틴", "서버"})
	require.NoError(t, err)
	server := newTestServer(t, store, Options{})

	rec := do(t, server, http.MethodGet, "/api/v1/keywords?prefix=go&limit=1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Keywords []struct {
			Name string `json:"name"`
		} `json:"keywords"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Keywords, 1)
	assert.Equal(t, "golang", result.Keywords[0].Name)

	rec = do(t, server, http.MethodGet, "/api/v1/keywords?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Extract(t *testing.T) {
	store := memory.NewStore()
	server := newTestServer(t, store, Options{})
	body := map[string]interface{}{
		"document": fixtures.NewDocumentBuilder().
			Paragraph("서버 서버 서버").
			InternalLinkBlock("b").
			InternalLinkBlock("b").
			Raw(map[string]interface{}{"type": "paragraph", "children": "broken"}).
			JSON(),
	}

	rec := do(t, server, http.MethodPost, "/api/v1/extract", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[handlers.ExtractResponse](t, rec)
	assert.Equal(t, []string{"서버"}, resp.Keywords)
	assert.Equal(t, []string{"b", "b"}, resp.Targets)
	assert.Equal(t, 1, resp.DroppedSubtrees)

	vocabulary, err := store.FetchAllKeywords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, vocabulary, "extract must not write")
}

func TestRouter_Operational(t *testing.T) {
	collector := observability.NewCollector("keystone_test")
	notReady := errors.New("store down")
	ready := notReady
	server := newTestServer(t, memory.NewStore(), Options{
		Metrics:  collector.Handler(),
		Recorder: collector,
		Ready:    func(context.Context) error { return ready },
	})

	assert.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, server, http.MethodGet, "/ready", nil).Code)
	ready = nil
	assert.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/ready", nil).Code)

	rec := do(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/ready"`)

	assert.Equal(t, http.StatusNotFound, do(t, server, http.MethodGet, "/nope", nil).Code)
}
