package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/commands"
	cmdhandlers "github.com/solm0/solmee-xyz-keystone/application/commands/handlers"
	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/application/services"
	"github.com/solm0/solmee-xyz-keystone/domain/core/document"
	"github.com/solm0/solmee-xyz-keystone/domain/services/reconcile"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// ContentHandler serves the content-changed trigger and the extraction dry run
type ContentHandler struct {
	dispatcher *cmdhandlers.ContentDispatcher
	pipeline   *services.ContentPipeline
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(
	dispatcher *cmdhandlers.ContentDispatcher,
	pipeline *services.ContentPipeline,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *ContentHandler {
	return &ContentHandler{
		dispatcher: dispatcher,
		pipeline:   pipeline,
		errors:     errorHandler,
		logger:     logger,
	}
}

// ProcessContentRequest is the body of POST /articles/{articleID}/content
type ProcessContentRequest struct {
	Operation        string          `json:"operation"`
	Title            string          `json:"title,omitempty"`
	Document         json.RawMessage `json:"document"`
	PreviousDocument json.RawMessage `json:"previousDocument,omitempty"`
}

// HalfError reports a failed half of the pipeline
type HalfError struct {
	Half    string `json:"half"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ContentResponse is the outcome of one pipeline run
type ContentResponse struct {
	ArticleID     string              `json:"articleId"`
	Keywords      []string            `json:"keywords"`
	Created       []string            `json:"created"`
	InternalLinks reconcile.LinkDelta `json:"internalLinks"`
	Errors        []HalfError         `json:"errors,omitempty"`
}

// ProcessContent handles POST /api/v1/articles/{articleID}/content.
// 200 when both halves succeeded, 207 when exactly one failed.
func (h *ContentHandler) ProcessContent(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")

	var req ProcessContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), commands.ProcessContentCommand{
		ArticleID:        articleID,
		Operation:        req.Operation,
		Title:            req.Title,
		Document:         req.Document,
		PreviousDocument: req.PreviousDocument,
	})
	if result == nil {
		if err == nil {
			err = pkgerrors.NewInternalError("content pipeline produced no result")
		}
		h.errors.Handle(w, r, err)
		return
	}

	response := toContentResponse(articleID, result)
	status := http.StatusOK
	switch {
	case result.KeywordsErr != nil && result.LinksErr != nil:
		status = pkgerrors.HTTPStatusOf(result.KeywordsErr)
	case result.Partial():
		status = http.StatusMultiStatus
	case err != nil:
		h.errors.Handle(w, r, err)
		return
	}

	if status != http.StatusOK {
		h.logger.Warn("Content processed with failures",
			zap.String("article_id", articleID),
			zap.Int("status", status),
			zap.Int("failed_halves", len(response.Errors)))
	}
	respondJSON(w, h.logger, status, response)
}

func toContentResponse(articleID string, result *services.ContentResult) ContentResponse {
	response := ContentResponse{
		ArticleID: articleID,
		Keywords:  []string{},
		Created:   []string{},
		InternalLinks: reconcile.LinkDelta{
			Connect:    []string{},
			Disconnect: []string{},
		},
	}
	if result.Keywords != nil {
		response.Keywords = nonNil(result.Keywords.Keywords)
		response.Created = nonNil(result.Keywords.Created)
	}
	if result.Links != nil {
		response.InternalLinks.Connect = nonNil(result.Links.Delta.Connect)
		response.InternalLinks.Disconnect = nonNil(result.Links.Delta.Disconnect)
	}
	if result.KeywordsErr != nil {
		response.Errors = append(response.Errors, halfError(ports.HalfKeywords, result.KeywordsErr))
	}
	if result.LinksErr != nil {
		response.Errors = append(response.Errors, halfError(ports.HalfLinks, result.LinksErr))
	}
	return response
}

func halfError(half string, err error) HalfError {
	out := HalfError{Half: half, Type: string(pkgerrors.ErrorTypeInternal), Message: "An internal error occurred"}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		out.Type = string(appErr.Type)
		out.Message = appErr.Message
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ExtractRequest is the body of POST /extract
type ExtractRequest struct {
	Document json.RawMessage `json:"document"`
}

// ExtractResponse is a dry run of the pipeline's extraction step
type ExtractResponse struct {
	services.Extraction
	DroppedSubtrees int      `json:"droppedSubtrees"`
	Issues          []string `json:"issues,omitempty"`
}

// Extract handles POST /api/v1/extract. Nothing is written to the store.
func (h *ContentHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	doc, report := document.Decode(req.Document)
	extraction := h.pipeline.Extract(doc)
	extraction.Keywords = nonNil(extraction.Keywords)
	extraction.Targets = nonNil(extraction.Targets)

	respondJSON(w, h.logger, http.StatusOK, ExtractResponse{
		Extraction:      extraction,
		DroppedSubtrees: report.Dropped(),
		Issues:          report.Issues,
	})
}
