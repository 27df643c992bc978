package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/domain/events"
)

// MockEntityStore is a mock implementation of ports.EntityStore
type MockEntityStore struct {
	mock.Mock
}

func (m *MockEntityStore) FetchAllKeywords(ctx context.Context) ([]entities.Keyword, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Keyword), args.Error(1)
}

func (m *MockEntityStore) ReadArticleKeywordIDs(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockEntityStore) SetArticleKeywords(ctx context.Context, articleID valueobjects.ArticleID, connectIDs, createNames []string) ([]entities.Keyword, error) {
	args := m.Called(ctx, articleID, connectIDs, createNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Keyword), args.Error(1)
}

func (m *MockEntityStore) ReadArticlePreviousLinkTargets(ctx context.Context, articleID valueobjects.ArticleID) ([]string, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockEntityStore) ApplyInternalLinkDelta(ctx context.Context, articleID valueobjects.ArticleID, connect, disconnect []string) error {
	args := m.Called(ctx, articleID, connect, disconnect)
	return args.Error(0)
}

func (m *MockEntityStore) SaveArticle(ctx context.Context, article *entities.Article) error {
	args := m.Called(ctx, article)
	return args.Error(0)
}

func (m *MockEntityStore) GetArticle(ctx context.Context, articleID valueobjects.ArticleID) (*entities.Article, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Article), args.Error(1)
}

func (m *MockEntityStore) AssignTag(ctx context.Context, articleID valueobjects.ArticleID, tagID string) error {
	args := m.Called(ctx, articleID, tagID)
	return args.Error(0)
}

func (m *MockEntityStore) SetCuratedLinks(ctx context.Context, articleID valueobjects.ArticleID, targets []string) error {
	args := m.Called(ctx, articleID, targets)
	return args.Error(0)
}

func (m *MockEntityStore) GetArticleGraph(ctx context.Context, articleID valueobjects.ArticleID) (*entities.ArticleGraph, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ArticleGraph), args.Error(1)
}

var _ ports.EntityStore = (*MockEntityStore)(nil)

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockArticleLocker is a mock implementation of ports.ArticleLocker
type MockArticleLocker struct {
	mock.Mock
}

func (m *MockArticleLocker) Lock(ctx context.Context, articleID valueobjects.ArticleID) (ports.Unlock, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Unlock), args.Error(1)
}
