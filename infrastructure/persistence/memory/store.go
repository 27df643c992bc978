// Package memory is an in-process entity store for local runs and tests
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

type articleRecord struct {
	article       *entities.Article
	keywordIDs    []string
	links         []string
	internalLinks []string
}

// Store keeps every relation in maps guarded by one lock, so each mutation is atomic
type Store struct {
	mu sync.RWMutex

	articles      map[string]*articleRecord
	keywords      map[string]entities.Keyword
	keywordByName map[string]string
	keywordOrder  []string

	// reverse indexes: target -> sources
	backlinks         map[string]map[string]struct{}
	internalBacklinks map[string]map[string]struct{}
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		articles:          make(map[string]*articleRecord),
		keywords:          make(map[string]entities.Keyword),
		keywordByName:     make(map[string]string),
		backlinks:         make(map[string]map[string]struct{}),
		internalBacklinks: make(map[string]map[string]struct{}),
	}
}

var _ ports.EntityStore = (*Store)(nil)

func (s *Store) record(articleID valueobjects.ArticleID) (*articleRecord, error) {
	rec, ok := s.articles[articleID.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("article " + articleID.String())
	}
	return rec, nil
}

// FetchAllKeywords returns the vocabulary in creation order
func (s *Store) FetchAllKeywords(ctx context.Context) ([]entities.Keyword, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreUnavailableError("fetch keywords", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Keyword, 0, len(s.keywordOrder))
	for _, id := range s.keywordOrder {
		out = append(out, s.keywords[id])
	}
	return out, nil
}

// ReadArticleKeywordIDs returns the article's keyword ids
func (s *Store) ReadArticleKeywordIDs(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreUnavailableError("read article keywords", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.record(articleID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, rec.keywordIDs...), nil
}

// SetArticleKeywords replaces the article's keyword set
func (s *Store) SetArticleKeywords(ctx context.Context, articleID valueobjects.ArticleID, connectIDs, createNames []string) ([]entities.Keyword, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreUnavailableError("set article keywords", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(articleID)
	if err != nil {
		return nil, err
	}

	// validate everything before the first write
	for _, id := range connectIDs {
		if _, ok := s.keywords[id]; !ok {
			return nil, pkgerrors.NewConstraintViolationError("set article keywords", "keyword "+id+" does not exist")
		}
	}
	pending := make(map[string]struct{}, len(createNames))
	for _, name := range createNames {
		if _, exists := s.keywordByName[name]; exists {
			return nil, pkgerrors.NewConstraintViolationError("set article keywords", "keyword name "+name+" already exists")
		}
		if _, dup := pending[name]; dup {
			return nil, pkgerrors.NewConstraintViolationError("set article keywords", "keyword name "+name+" repeated")
		}
		pending[name] = struct{}{}
	}

	result := make([]entities.Keyword, 0, len(connectIDs)+len(createNames))
	ids := make([]string, 0, len(connectIDs)+len(createNames))
	for _, id := range connectIDs {
		result = append(result, s.keywords[id])
		ids = append(ids, id)
	}
	for _, name := range createNames {
		k, err := entities.NewKeyword(name)
		if err != nil {
			return nil, err
		}
		s.keywords[k.ID.String()] = k
		s.keywordByName[name] = k.ID.String()
		s.keywordOrder = append(s.keywordOrder, k.ID.String())
		result = append(result, k)
		ids = append(ids, k.ID.String())
	}

	rec.keywordIDs = dedupe(ids)
	return result, nil
}

// ReadArticlePreviousLinkTargets returns the recorded internal link targets
func (s *Store) ReadArticlePreviousLinkTargets(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreUnavailableError("read internal links", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.record(articleID)
	if err != nil {
		return nil, err
	}
	return append([]string{}, rec.internalLinks...), nil
}

// ApplyInternalLinkDelta connects and disconnects internal link targets and
// updates the internal backlink index in the same critical section
func (s *Store) ApplyInternalLinkDelta(ctx context.Context, articleID valueobjects.ArticleID, connect, disconnect []string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewStoreUnavailableError("apply internal link delta", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(articleID)
	if err != nil {
		return err
	}
	for _, target := range connect {
		if _, ok := s.articles[target]; !ok {
			return pkgerrors.NewConstraintViolationError("apply internal link delta", "target article "+target+" does not exist")
		}
	}

	source := articleID.String()
	rec.internalLinks = without(rec.internalLinks, disconnect)
	for _, target := range disconnect {
		unindex(s.internalBacklinks, target, source)
	}
	rec.internalLinks = dedupe(append(rec.internalLinks, connect...))
	for _, target := range connect {
		index(s.internalBacklinks, target, source)
	}
	return nil
}

// SaveArticle creates or updates an article record, keeping its associations
func (s *Store) SaveArticle(ctx context.Context, article *entities.Article) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewStoreUnavailableError("save article", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.articles[article.ID().String()]; ok {
		rec.article = article
		return nil
	}
	s.articles[article.ID().String()] = &articleRecord{article: article}
	return nil
}

// GetArticle returns an article record
func (s *Store) GetArticle(ctx context.Context, articleID valueobjects.ArticleID) (*entities.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreUnavailableError("get article", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.record(articleID)
	if err != nil {
		return nil, err
	}
	a := rec.article
	return entities.ReconstructArticle(a.ID(), a.Title(), a.Status(), a.TagID(), a.Details(), a.CreatedAt(), a.UpdatedAt()), nil
}

// AssignTag sets the article tag
func (s *Store) AssignTag(ctx context.Context, articleID valueobjects.ArticleID, tagID string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewStoreUnavailableError("assign tag", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(articleID)
	if err != nil {
		return err
	}
	a := rec.article
	updated := entities.ReconstructArticle(a.ID(), a.Title(), a.Status(), a.TagID(), a.Details(), a.CreatedAt(), time.Now().UTC())
	if err := updated.AssignTag(tagID); err != nil {
		return err
	}
	rec.article = updated
	return nil
}

// SetCuratedLinks replaces the curated links and mirrors them as backlinks
func (s *Store) SetCuratedLinks(ctx context.Context, articleID valueobjects.ArticleID, targets []string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewStoreUnavailableError("set curated links", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(articleID)
	if err != nil {
		return err
	}
	targets = dedupe(targets)
	for _, target := range targets {
		if _, ok := s.articles[target]; !ok {
			return pkgerrors.NewConstraintViolationError("set curated links", "target article "+target+" does not exist")
		}
	}

	source := articleID.String()
	for _, old := range rec.links {
		unindex(s.backlinks, old, source)
	}
	rec.links = targets
	for _, target := range targets {
		index(s.backlinks, target, source)
	}
	return nil
}

// GetArticleGraph returns every association of an article
func (s *Store) GetArticleGraph(ctx context.Context, articleID valueobjects.ArticleID) (*entities.ArticleGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewStoreUnavailableError("get article graph", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.record(articleID)
	if err != nil {
		return nil, err
	}

	kws := make([]entities.Keyword, 0, len(rec.keywordIDs))
	for _, id := range rec.keywordIDs {
		kws = append(kws, s.keywords[id])
	}

	id := articleID.String()
	return &entities.ArticleGraph{
		ArticleID:         id,
		Title:             rec.article.Title(),
		Status:            string(rec.article.Status()),
		TagID:             rec.article.TagID(),
		Details:           rec.article.Details(),
		Keywords:          kws,
		Links:             append([]string{}, rec.links...),
		Backlinks:         sources(s.backlinks, id),
		InternalLinks:     append([]string{}, rec.internalLinks...),
		InternalBacklinks: sources(s.internalBacklinks, id),
	}, nil
}

func index(idx map[string]map[string]struct{}, target, source string) {
	if idx[target] == nil {
		idx[target] = make(map[string]struct{})
	}
	idx[target][source] = struct{}{}
}

func unindex(idx map[string]map[string]struct{}, target, source string) {
	delete(idx[target], source)
	if len(idx[target]) == 0 {
		delete(idx, target)
	}
}

func sources(idx map[string]map[string]struct{}, target string) []string {
	out := make([]string, 0, len(idx[target]))
	for source := range idx[target] {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func without(ids, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
