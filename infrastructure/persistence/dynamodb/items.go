package dynamodb

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
)

// Single-table layout. Every relation of an article lives in the article's
// partition so one Query returns the whole graph.
//
//	ARTICLE#<id>   META             article record
//	ARTICLE#<id>   KEYWORD#<kid>    keyword association
//	ARTICLE#<id>   ILINK#<target>   internal link
//	ARTICLE#<id>   IBACK#<source>   internal backlink mirror
//	ARTICLE#<id>   LINK#<target>    curated link
//	ARTICLE#<id>   BACK#<source>    curated backlink mirror
//	VOCAB          NAME#<name>      keyword record, unique by name
//	KEYWORD#<kid>  META             keyword id guard
//	LOCK#<id>      LOCK             article lock
const (
	metaSK       = "META"
	vocabPK      = "VOCAB"
	lockSK       = "LOCK"
	keywordSK    = "KEYWORD#"
	internalSK   = "ILINK#"
	internalBack = "IBACK#"
	curatedSK    = "LINK#"
	curatedBack  = "BACK#"
	nameSK       = "NAME#"
)

// sortableTime keeps fractional digits so keyword timestamps sort lexically
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

const (
	entityArticle  = "Article"
	entityKeyword  = "Keyword"
	entityRelation = "Relation"
	entityLock     = "Lock"
)

func articlePK(id string) string { return "ARTICLE#" + id }
func keywordPK(id string) string { return "KEYWORD#" + id }
func lockPK(id string) string    { return "LOCK#" + id }

type ddbArticle struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ArticleID  string `dynamodbav:"ArticleID"`
	Title      string `dynamodbav:"Title"`
	Status     string `dynamodbav:"Status"`
	TagID      string `dynamodbav:"TagID,omitempty"`
	Published  string `dynamodbav:"PublishedAt,omitempty"`
	Order      *int   `dynamodbav:"Order,omitempty"`
	Meta       bool   `dynamodbav:"Meta"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

type ddbKeyword struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	KeywordID  string `dynamodbav:"KeywordID"`
	Name       string `dynamodbav:"Name"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

// ddbRelation is any article-partition edge: keyword associations, links and backlinks
type ddbRelation struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Target     string `dynamodbav:"Target"`
	Name       string `dynamodbav:"Name,omitempty"`
	Position   int    `dynamodbav:"Position"`
}

func toArticleItem(a *entities.Article) ddbArticle {
	id := a.ID().String()
	details := a.Details()
	var published string
	if details.PublishedAt != nil {
		published = details.PublishedAt.Format(time.RFC3339Nano)
	}
	return ddbArticle{
		PK:         articlePK(id),
		SK:         metaSK,
		EntityType: entityArticle,
		ArticleID:  id,
		Title:      a.Title(),
		Status:     string(a.Status()),
		TagID:      a.TagID(),
		Published:  published,
		Order:      details.Order,
		Meta:       details.Meta,
		CreatedAt:  a.CreatedAt().UTC().Format(time.RFC3339Nano),
		UpdatedAt:  a.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}
}

func (item ddbArticle) toEntity() (*entities.Article, error) {
	id, err := valueobjects.NewArticleIDFromString(item.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("stored article %s: %w", item.PK, err)
	}
	status, err := valueobjects.ParseArticleStatus(item.Status)
	if err != nil {
		return nil, fmt.Errorf("stored article %s: %w", item.PK, err)
	}
	created, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	updated, _ := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	return entities.ReconstructArticle(id, item.Title, status, item.TagID, item.details(), created, updated), nil
}

func (item ddbArticle) details() entities.Details {
	details := entities.Details{Order: item.Order, Meta: item.Meta}
	if item.Published != "" {
		if t, err := time.Parse(time.RFC3339Nano, item.Published); err == nil {
			details.PublishedAt = &t
		}
	}
	return details
}

func relation(pk, prefix, target, name string, position int) ddbRelation {
	return ddbRelation{
		PK:         pk,
		SK:         prefix + target,
		EntityType: entityRelation,
		Target:     target,
		Name:       name,
		Position:   position,
	}
}

// partition groups the relation items of one article by sort key prefix
type partition struct {
	article   *ddbArticle
	relations map[string][]ddbRelation
}

func (p partition) targets(prefix string) []string {
	rels := p.relations[prefix]
	out := make([]string, 0, len(rels))
	for _, r := range rels {
		out = append(out, r.Target)
	}
	return out
}

func (p partition) keywords() []entities.Keyword {
	rels := p.relations[keywordSK]
	out := make([]entities.Keyword, 0, len(rels))
	for _, r := range rels {
		out = append(out, entities.ReconstructKeyword(r.Target, r.Name))
	}
	return out
}

func (p partition) nextPosition(prefix string) int {
	next := 0
	for _, r := range p.relations[prefix] {
		if r.Position >= next {
			next = r.Position + 1
		}
	}
	return next
}

// prefixOf returns the relation prefix of a sort key, or "" for anything else
func prefixOf(sk string) string {
	for _, prefix := range []string{keywordSK, internalSK, internalBack, curatedSK, curatedBack} {
		if strings.HasPrefix(sk, prefix) {
			return prefix
		}
	}
	return ""
}

// sortRelations orders forward relations by position and mirrors by source id
func sortRelations(p *partition) {
	for prefix, rels := range p.relations {
		mirror := prefix == internalBack || prefix == curatedBack
		sort.SliceStable(rels, func(i, j int) bool {
			if mirror {
				return rels[i].Target < rels[j].Target
			}
			return rels[i].Position < rels[j].Position
		})
	}
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
