package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(articleID valueobjects.ArticleID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.New().String(),
		AggregateID: articleID.String(),
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

const (
	TypeKeywordsUpdated         = "article.keywords_updated"
	TypeInternalLinksReconciled = "article.internal_links_reconciled"
)

// KeywordsUpdated is raised after an article's keyword set was replaced
type KeywordsUpdated struct {
	BaseEvent
	ArticleID    string   `json:"article_id"`
	Keywords     []string `json:"keywords"`
	ConnectedIDs []string `json:"connected_ids"`
	CreatedNames []string `json:"created_names"`
}

// NewKeywordsUpdated creates a KeywordsUpdated event
func NewKeywordsUpdated(articleID valueobjects.ArticleID, keywords, connectedIDs, createdNames []string, timestamp time.Time) KeywordsUpdated {
	return KeywordsUpdated{
		BaseEvent:    newBase(articleID, TypeKeywordsUpdated, timestamp),
		ArticleID:    articleID.String(),
		Keywords:     keywords,
		ConnectedIDs: connectedIDs,
		CreatedNames: createdNames,
	}
}

// InternalLinksReconciled is raised after an internal link delta was applied
type InternalLinksReconciled struct {
	BaseEvent
	ArticleID    string   `json:"article_id"`
	Connected    []string `json:"connected"`
	Disconnected []string `json:"disconnected"`
}

// NewInternalLinksReconciled creates an InternalLinksReconciled event
func NewInternalLinksReconciled(articleID valueobjects.ArticleID, connected, disconnected []string, timestamp time.Time) InternalLinksReconciled {
	return InternalLinksReconciled{
		BaseEvent:    newBase(articleID, TypeInternalLinksReconciled, timestamp),
		ArticleID:    articleID.String(),
		Connected:    connected,
		Disconnected: disconnected,
	}
}
