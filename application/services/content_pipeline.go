package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/config"
	"github.com/solm0/solmee-xyz-keystone/domain/core/document"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/domain/services/extraction"
	"github.com/solm0/solmee-xyz-keystone/domain/services/keywords"
)

var tracer = otel.Tracer("github.com/solm0/solmee-xyz-keystone/application/services")

// ContentInput is one content-changed event for an article
type ContentInput struct {
	ArticleID valueobjects.ArticleID
	Document  document.Document
	// PreviousDocument, when set, is the body before the change
	PreviousDocument *document.Document
	// DroppedSubtrees is how many malformed subtrees decoding discarded
	DroppedSubtrees int
}

// Extraction is what the pipeline read out of a document
type Extraction struct {
	Text     string   `json:"text"`
	Keywords []string `json:"keywords"`
	Targets  []string `json:"targets"`
}

// ContentResult reports each half separately. A half that failed has a nil
// result and its error is kept in the matching field.
type ContentResult struct {
	Extraction  Extraction     `json:"extraction"`
	Keywords    *KeywordResult `json:"keywords,omitempty"`
	Links       *LinkResult    `json:"links,omitempty"`
	KeywordsErr error          `json:"-"`
	LinksErr    error          `json:"-"`
}

// Partial reports whether exactly one half failed
func (r *ContentResult) Partial() bool {
	return (r.KeywordsErr == nil) != (r.LinksErr == nil)
}

// ContentPipeline runs keyword and link maintenance for changed article bodies
type ContentPipeline struct {
	cfg       *config.PipelineConfig
	extractor *keywords.Extractor
	links     *extraction.LinkExtractor
	persister *KeywordPersister
	reconcile *LinkReconciler
	locker    ports.ArticleLocker
	metrics   ports.PipelineMetrics
	logger    *zap.Logger
}

// NewContentPipeline creates a new content pipeline. locker may be nil when
// articles are not serialized.
func NewContentPipeline(
	cfg *config.PipelineConfig,
	extractor *keywords.Extractor,
	persister *KeywordPersister,
	reconciler *LinkReconciler,
	locker ports.ArticleLocker,
	metrics ports.PipelineMetrics,
	logger *zap.Logger,
) *ContentPipeline {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &ContentPipeline{
		cfg:       cfg,
		extractor: extractor,
		links:     extraction.NewLinkExtractor(cfg.RelationshipKind, cfg.ReferenceComponents),
		persister: persister,
		reconcile: reconciler,
		locker:    locker,
		metrics:   metrics,
		logger:    logger,
	}
}

// Extract runs the CPU-only part of the pipeline without touching the store
func (p *ContentPipeline) Extract(doc document.Document) Extraction {
	text := extraction.PlainText(doc)
	return Extraction{
		Text:     text,
		Keywords: p.extractor.Extract(text),
		Targets:  p.links.Targets(doc),
	}
}

// Run extracts keywords and links from the document and writes both back.
// The halves touch disjoint relations and run concurrently; each is checked
// on its own, so one failing never hides the other's outcome.
func (p *ContentPipeline) Run(ctx context.Context, input ContentInput) (*ContentResult, error) {
	ctx, span := tracer.Start(ctx, "ContentPipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.String("article.id", input.ArticleID.String()))

	if p.cfg.LockArticles && p.locker != nil {
		unlock, err := p.locker.Lock(ctx, input.ArticleID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lock failed")
			return nil, fmt.Errorf("failed to lock article %s: %w", input.ArticleID, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("Failed to release article lock",
					zap.String("article_id", input.ArticleID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	result := &ContentResult{Extraction: p.Extract(input.Document)}
	p.metrics.RecordExtraction(len(result.Extraction.Keywords), len(result.Extraction.Targets), input.DroppedSubtrees)

	linkInput := LinkInput{ArticleID: input.ArticleID, Targets: result.Extraction.Targets}
	if input.PreviousDocument != nil {
		linkInput.Previous = p.links.Targets(*input.PreviousDocument)
		linkInput.PreviousKnown = true
	}

	p.logger.Debug("Content extracted",
		zap.String("article_id", input.ArticleID.String()),
		zap.Strings("keywords", result.Extraction.Keywords),
		zap.Strings("targets", result.Extraction.Targets),
		zap.Int("dropped_subtrees", input.DroppedSubtrees),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Keywords, result.KeywordsErr = p.runKeywords(ctx, input.ArticleID, result.Extraction.Keywords)
	}()
	go func() {
		defer wg.Done()
		result.Links, result.LinksErr = p.runLinks(ctx, linkInput)
	}()
	wg.Wait()

	var merr *multierror.Error
	if result.KeywordsErr != nil {
		merr = multierror.Append(merr, result.KeywordsErr)
	}
	if result.LinksErr != nil {
		merr = multierror.Append(merr, result.LinksErr)
	}
	if err := merr.ErrorOrNil(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		p.logger.Error("Content pipeline failed",
			zap.String("article_id", input.ArticleID.String()),
			zap.Bool("partial", result.Partial()),
			zap.Error(err),
		)
		return result, err
	}

	return result, nil
}

func (p *ContentPipeline) runKeywords(ctx context.Context, articleID valueobjects.ArticleID, extracted []string) (*KeywordResult, error) {
	ctx, span := tracer.Start(ctx, "ContentPipeline.keywords")
	defer span.End()

	start := time.Now()
	res, err := p.persister.Persist(ctx, articleID, extracted)
	p.metrics.RecordHalf(ports.HalfKeywords, outcome(err, res != nil && res.Applied), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (p *ContentPipeline) runLinks(ctx context.Context, input LinkInput) (*LinkResult, error) {
	ctx, span := tracer.Start(ctx, "ContentPipeline.links")
	defer span.End()

	start := time.Now()
	res, err := p.reconcile.Reconcile(ctx, input)
	p.metrics.RecordHalf(ports.HalfLinks, outcome(err, res != nil && res.Applied), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func outcome(err error, applied bool) string {
	switch {
	case err != nil:
		return ports.OutcomeFailed
	case applied:
		return ports.OutcomeApplied
	default:
		return ports.OutcomeSkipped
	}
}
