package fixtures

import (
	"encoding/json"

	"github.com/solm0/solmee-xyz-keystone/domain/core/document"
	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
)

// DocumentBuilder builds editor documents in their JSON wire shape
type DocumentBuilder struct {
	nodes []map[string]interface{}
}

func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{nodes: []map[string]interface{}{}}
}

// Paragraph adds a paragraph holding one text run per argument
func (b *DocumentBuilder) Paragraph(texts ...string) *DocumentBuilder {
	children := make([]interface{}, 0, len(texts))
	for _, t := range texts {
		children = append(children, map[string]interface{}{"text": t})
	}
	b.nodes = append(b.nodes, map[string]interface{}{"type": "paragraph", "children": children})
	return b
}

// ParagraphWithRefs adds a paragraph that embeds a reference to each target
func (b *DocumentBuilder) ParagraphWithRefs(text string, targets ...string) *DocumentBuilder {
	children := []interface{}{map[string]interface{}{"text": text}}
	for _, target := range targets {
		children = append(children, RelationshipNode("post", target), map[string]interface{}{"text": ""})
	}
	b.nodes = append(b.nodes, map[string]interface{}{"type": "paragraph", "children": children})
	return b
}

// Heading adds a heading block
func (b *DocumentBuilder) Heading(text string) *DocumentBuilder {
	b.nodes = append(b.nodes, map[string]interface{}{
		"type":     "heading",
		"level":    2,
		"children": []interface{}{map[string]interface{}{"text": text}},
	})
	return b
}

// InternalLinkBlock adds an internalLink component block pointing at target
func (b *DocumentBuilder) InternalLinkBlock(target string) *DocumentBuilder {
	b.nodes = append(b.nodes, map[string]interface{}{
		"type":      "component-block",
		"component": "internalLink",
		"props": map[string]interface{}{
			"post": map[string]interface{}{"id": target, "label": target},
		},
		"children": []interface{}{
			map[string]interface{}{"type": "component-inline-prop", "children": []interface{}{map[string]interface{}{"text": ""}}},
		},
	})
	return b
}

// Raw appends an arbitrary node
func (b *DocumentBuilder) Raw(node map[string]interface{}) *DocumentBuilder {
	b.nodes = append(b.nodes, node)
	return b
}

// JSON returns the document as the editor serializes it
func (b *DocumentBuilder) JSON() json.RawMessage {
	data, err := json.Marshal(b.nodes)
	if err != nil {
		panic(err)
	}
	return data
}

// Build decodes the document
func (b *DocumentBuilder) Build() document.Document {
	doc, _ := document.Decode(b.JSON())
	return doc
}

// RelationshipNode returns an inline relationship node
func RelationshipNode(kind, target string) map[string]interface{} {
	return map[string]interface{}{
		"type":         "relationship",
		"relationship": kind,
		"data":         map[string]interface{}{"id": target, "label": target},
		"children":     []interface{}{map[string]interface{}{"text": ""}},
	}
}

// ArticleBuilder helps create test articles with default values
type ArticleBuilder struct {
	id      string
	title   string
	status  valueobjects.ArticleStatus
	tagID   string
	details entities.Details
}

func NewArticleBuilder() *ArticleBuilder {
	return &ArticleBuilder{
		id:     valueobjects.NewArticleID().String(),
		title:  "Test Article",
		status: valueobjects.StatusDraft,
	}
}

func (b *ArticleBuilder) WithID(id string) *ArticleBuilder {
	b.id = id
	return b
}

func (b *ArticleBuilder) WithTitle(title string) *ArticleBuilder {
	b.title = title
	return b
}

func (b *ArticleBuilder) Published() *ArticleBuilder {
	b.status = valueobjects.StatusPublished
	return b
}

func (b *ArticleBuilder) WithTag(tagID string) *ArticleBuilder {
	b.tagID = tagID
	return b
}

func (b *ArticleBuilder) WithDetails(details entities.Details) *ArticleBuilder {
	b.details = details
	return b
}

func (b *ArticleBuilder) Build() (*entities.Article, error) {
	id, err := valueobjects.NewArticleIDFromString(b.id)
	if err != nil {
		return nil, err
	}
	article, err := entities.NewArticle(id, b.title)
	if err != nil {
		return nil, err
	}
	article.SetStatus(b.status)
	article.SetDetails(b.details)
	if b.tagID != "" {
		if err := article.AssignTag(b.tagID); err != nil {
			return nil, err
		}
	}
	return article, nil
}

func (b *ArticleBuilder) MustBuild() *entities.Article {
	article, err := b.Build()
	if err != nil {
		panic(err)
	}
	return article
}
