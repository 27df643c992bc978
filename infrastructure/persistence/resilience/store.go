// Package resilience wraps an entity store with a circuit breaker, tracing
// and per-operation metrics.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

var tracer = otel.Tracer("github.com/solm0/solmee-xyz-keystone/infrastructure/persistence/resilience")

// Recorder receives store metrics
type Recorder interface {
	RecordStoreOperation(operation string, err error, d time.Duration)
	RecordBreakerState(name string, state int)
}

type nopRecorder struct{}

func (nopRecorder) RecordStoreOperation(string, error, time.Duration) {}
func (nopRecorder) RecordBreakerState(string, int)                    {}

// BreakerSettings configures the circuit breaker
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerSettings returns the settings used when none are configured
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:         name,
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// Store decorates a ports.EntityStore. Only StoreUnavailable failures count
// against the breaker; NotFound and constraint violations are answers, and a
// caller giving up on its own context says nothing about the store.
type Store struct {
	next     ports.EntityStore
	breaker  *gobreaker.CircuitBreaker
	recorder Recorder
	logger   *zap.Logger
	flight   singleflight.Group
}

var _ ports.EntityStore = (*Store)(nil)

// NewStore wraps next. recorder may be nil.
func NewStore(next ports.EntityStore, settings BreakerSettings, recorder Recorder, logger *zap.Logger) *Store {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	s := &Store{next: next, recorder: recorder, logger: logger}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			recorder.RecordBreakerState(name, int(to))
		},
		IsSuccessful: func(err error) bool {
			var gone *callerGone
			if errors.As(err, &gone) {
				return true
			}
			return err == nil || !pkgerrors.IsStoreUnavailable(err)
		},
	})
	recorder.RecordBreakerState(settings.Name, int(gobreaker.StateClosed))
	return s
}

// State reports the breaker state
func (s *Store) State() gobreaker.State {
	return s.breaker.State()
}

// callerGone marks a failure caused by the caller's own context
type callerGone struct {
	err error
}

func (e *callerGone) Error() string { return e.err.Error() }
func (e *callerGone) Unwrap() error { return e.err }

func call[T any](ctx context.Context, s *Store, op string, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	var out interface{}
	var err error
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = pkgerrors.NewStoreUnavailableError(op, ctxErr)
	} else {
		out, err = s.breaker.Execute(func() (interface{}, error) {
			v, err := fn(ctx)
			if err != nil && ctx.Err() != nil {
				return v, &callerGone{err: err}
			}
			return v, err
		})
	}
	var gone *callerGone
	if errors.As(err, &gone) {
		err = gone.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = pkgerrors.NewStoreUnavailableError(op, err)
	}
	s.recorder.RecordStoreOperation(op, err, time.Since(start))

	var zero T
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}

func exec(ctx context.Context, s *Store, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	_, err := call(ctx, s, op, attrs, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func articleAttr(id valueobjects.ArticleID) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("article.id", id.String())}
}

// FetchAllKeywords collapses concurrent vocabulary reads into one store call.
// The shared call outlives any single caller; each caller waits on its own ctx.
func (s *Store) FetchAllKeywords(ctx context.Context) ([]entities.Keyword, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan("keywords", func() (interface{}, error) {
		return call(shared, s, "fetch_keywords", nil, s.next.FetchAllKeywords)
	})
	select {
	case <-ctx.Done():
		return nil, pkgerrors.NewStoreUnavailableError("fetch_keywords", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("vocabulary read shared")
		}
		return append([]entities.Keyword(nil), res.Val.([]entities.Keyword)...), nil
	}
}

func (s *Store) ReadArticleKeywordIDs(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	return call(ctx, s, "read_article_keywords", articleAttr(articleID), func(ctx context.Context) ([]string, error) {
		return s.next.ReadArticleKeywordIDs(ctx, articleID)
	})
}

func (s *Store) SetArticleKeywords(ctx context.Context, articleID valueobjects.ArticleID, connectIDs, createNames []string) ([]entities.Keyword, error) {
	attrs := append(articleAttr(articleID),
		attribute.Int("keywords.connect", len(connectIDs)),
		attribute.Int("keywords.create", len(createNames)))
	return call(ctx, s, "set_article_keywords", attrs, func(ctx context.Context) ([]entities.Keyword, error) {
		return s.next.SetArticleKeywords(ctx, articleID, connectIDs, createNames)
	})
}

func (s *Store) ReadArticlePreviousLinkTargets(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	return call(ctx, s, "read_internal_links", articleAttr(articleID), func(ctx context.Context) ([]string, error) {
		return s.next.ReadArticlePreviousLinkTargets(ctx, articleID)
	})
}

func (s *Store) ApplyInternalLinkDelta(ctx context.Context, articleID valueobjects.ArticleID, connect, disconnect []string) error {
	attrs := append(articleAttr(articleID),
		attribute.Int("links.connect", len(connect)),
		attribute.Int("links.disconnect", len(disconnect)))
	return exec(ctx, s, "apply_internal_link_delta", attrs, func(ctx context.Context) error {
		return s.next.ApplyInternalLinkDelta(ctx, articleID, connect, disconnect)
	})
}

func (s *Store) SaveArticle(ctx context.Context, article *entities.Article) error {
	return exec(ctx, s, "save_article", articleAttr(article.ID()), func(ctx context.Context) error {
		return s.next.SaveArticle(ctx, article)
	})
}

func (s *Store) GetArticle(ctx context.Context, articleID valueobjects.ArticleID) (*entities.Article, error) {
	return call(ctx, s, "get_article", articleAttr(articleID), func(ctx context.Context) (*entities.Article, error) {
		return s.next.GetArticle(ctx, articleID)
	})
}

func (s *Store) AssignTag(ctx context.Context, articleID valueobjects.ArticleID, tagID string) error {
	return exec(ctx, s, "assign_tag", articleAttr(articleID), func(ctx context.Context) error {
		return s.next.AssignTag(ctx, articleID, tagID)
	})
}

func (s *Store) SetCuratedLinks(ctx context.Context, articleID valueobjects.ArticleID, targets []string) error {
	return exec(ctx, s, "set_curated_links", articleAttr(articleID), func(ctx context.Context) error {
		return s.next.SetCuratedLinks(ctx, articleID, targets)
	})
}

func (s *Store) GetArticleGraph(ctx context.Context, articleID valueobjects.ArticleID) (*entities.ArticleGraph, error) {
	return call(ctx, s, "get_article_graph", articleAttr(articleID), func(ctx context.Context) (*entities.ArticleGraph, error) {
		return s.next.GetArticleGraph(ctx, articleID)
	})
}
