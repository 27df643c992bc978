package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTaxonomyPredicates(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		check  func(error) bool
		status int
	}{
		{
			name:   "malformed document",
			err:    NewMalformedDocumentError("[0].children", "children must be an array"),
			check:  IsMalformedDocument,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "constraint violation",
			err:    NewConstraintViolationError("set keywords", "keyword name already exists"),
			check:  IsConstraintViolation,
			status: http.StatusConflict,
		},
		{
			name:   "store unavailable",
			err:    NewStoreUnavailableError("fetch keywords", fmt.Errorf("dial tcp: refused")),
			check:  IsStoreUnavailable,
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "validation",
			err:    NewValidationError("article id is required"),
			check:  IsValidation,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("pipeline: %w", tt.err)

			assert.True(t, tt.check(wrapped))
			assert.Equal(t, tt.status, HTTPStatusOf(wrapped))
		})
	}
}

func TestStoreUnavailable_UnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")

	err := NewStoreUnavailableError("apply link delta", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "apply link delta")
}

func TestHTTPStatusOf_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusOf(fmt.Errorf("boom")))
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})

	t.Run("app error keeps its type", func(t *testing.T) {
		err := Wrap(NewNotFoundError("article"), "graph query")
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "graph query: article not found")
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		err := Wrapf(fmt.Errorf("boom"), "step %d", 2)
		assert.True(t, IsInternal(err))
	})
}

func TestErrorHandler_Handle(t *testing.T) {
	// Arrange
	handler := NewErrorHandler(zap.NewNop(), false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles/a1/graph", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()

	// Act
	handler.Handle(rec, req, NewConstraintViolationError("apply link delta", "target article does not exist"))

	// Assert
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Error)
	assert.Equal(t, string(ErrorTypeConstraintViolation), body.Type)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestErrorHandler_HidesUnknownErrors(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.Handle(rec, req, fmt.Errorf("secret detail"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestErrorHandler_MiddlewareRecoversPanics(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected")
	})
	rec := httptest.NewRecorder()

	handler.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
