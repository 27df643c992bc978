package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/commands"
	cmdhandlers "github.com/solm0/solmee-xyz-keystone/application/commands/handlers"
	"github.com/solm0/solmee-xyz-keystone/application/queries"
	queryhandlers "github.com/solm0/solmee-xyz-keystone/application/queries/handlers"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// ArticleHandler handles article records, curated links and the read side
type ArticleHandler struct {
	register *cmdhandlers.RegisterArticleHandler
	curated  *cmdhandlers.SetCuratedLinksHandler
	graph    *queryhandlers.GetArticleGraphHandler
	keywords *queryhandlers.ListKeywordsHandler
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(
	register *cmdhandlers.RegisterArticleHandler,
	curated *cmdhandlers.SetCuratedLinksHandler,
	graph *queryhandlers.GetArticleGraphHandler,
	keywords *queryhandlers.ListKeywordsHandler,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *ArticleHandler {
	return &ArticleHandler{
		register: register,
		curated:  curated,
		graph:    graph,
		keywords: keywords,
		errors:   errorHandler,
		logger:   logger,
	}
}

// ArticleResponse is the JSON view of an article record
type ArticleResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	TagID     string    `json:"tagId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toArticleResponse(a *entities.Article) ArticleResponse {
	return ArticleResponse{
		ID:        a.ID().String(),
		Title:     a.Title(),
		Status:    string(a.Status()),
		TagID:     a.TagID(),
		CreatedAt: a.CreatedAt(),
		UpdatedAt: a.UpdatedAt(),
	}
}

// RegisterArticle handles POST /api/v1/articles
func (h *ArticleHandler) RegisterArticle(w http.ResponseWriter, r *http.Request) {
	var cmd commands.RegisterArticleCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	article, err := h.register.Handle(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, toArticleResponse(article))
}

// SetLinksRequest is the body of PUT /articles/{articleID}/links
type SetLinksRequest struct {
	Targets []string `json:"targets"`
}

// SetLinks handles PUT /api/v1/articles/{articleID}/links
func (h *ArticleHandler) SetLinks(w http.ResponseWriter, r *http.Request) {
	var req SetLinksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	err := h.curated.Handle(r.Context(), commands.SetCuratedLinksCommand{
		ArticleID: chi.URLParam(r, "articleID"),
		Targets:   req.Targets,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /api/v1/articles/{articleID}/graph
func (h *ArticleHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	graph, err := h.graph.Handle(r.Context(), queries.GetArticleGraphQuery{
		ArticleID: chi.URLParam(r, "articleID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, graph)
}

// ListKeywords handles GET /api/v1/keywords?prefix=&limit=
func (h *ArticleHandler) ListKeywords(w http.ResponseWriter, r *http.Request) {
	query := queries.ListKeywordsQuery{Prefix: r.URL.Query().Get("prefix")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := cast.ToIntE(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("limit must be a number"))
			return
		}
		query.Limit = limit
	}

	result, err := h.keywords.Handle(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}
