package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solm0/solmee-xyz-keystone/domain/core/document"
)

func ref(id string) document.Relationship {
	return document.Relationship{Relationship: "post", TargetID: id, Content: []document.Node{document.Text{}}}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		doc  document.Document
		want string
	}{
		{
			name: "empty document",
			doc:  document.Document{},
			want: "",
		},
		{
			name: "runs joined without separator, paragraphs with a space",
			doc: document.Document{Nodes: []document.Node{
				document.Paragraph{Content: []document.Node{document.Text{Value: "서울"}, document.Text{Value: "은"}}},
				document.Paragraph{Content: []document.Node{document.Text{Value: "좋은 도시"}}},
			}},
			want: "서울은 좋은 도시",
		},
		{
			name: "non paragraph blocks excluded",
			doc: document.Document{Nodes: []document.Node{
				document.Element{Type: "heading", Content: []document.Node{document.Text{Value: "제목"}}},
				document.Paragraph{Content: []document.Node{document.Text{Value: "본문"}}},
				document.Element{Type: "blockquote", Content: []document.Node{
					document.Paragraph{Content: []document.Node{document.Text{Value: "인용"}}},
				}},
			}},
			want: "본문",
		},
		{
			name: "inline references skipped",
			doc: document.Document{Nodes: []document.Node{
				document.Paragraph{Content: []document.Node{
					document.Text{Value: "앞"}, ref("b"), document.Text{Value: "뒤"},
				}},
			}},
			want: "앞뒤",
		},
		{
			name: "empty paragraph still separates",
			doc: document.Document{Nodes: []document.Node{
				document.Paragraph{Content: []document.Node{document.Text{Value: "a"}}},
				document.Paragraph{},
				document.Paragraph{Content: []document.Node{document.Text{Value: "b"}}},
			}},
			want: "a  b",
		},
		{
			name: "no paragraphs",
			doc: document.Document{Nodes: []document.Node{
				document.Element{Type: "divider"},
			}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.doc))
		})
	}
}

func TestLinkExtractor_KeepsOrderAndDuplicates(t *testing.T) {
	// Arrange
	doc := document.Document{Nodes: []document.Node{
		document.Paragraph{Content: []document.Node{document.Text{Value: "x"}, ref("B")}},
		document.Element{Type: "layout", Content: []document.Node{
			document.Element{Type: "layout-area", Content: []document.Node{
				document.Paragraph{Content: []document.Node{ref("C")}},
			}},
		}},
		document.Paragraph{Content: []document.Node{ref("B")}},
		document.Element{Type: "blockquote", Content: []document.Node{
			document.Paragraph{Content: []document.Node{ref("D")}},
		}},
	}}
	extractor := NewLinkExtractor("post", nil)

	// Act
	targets := extractor.Targets(doc)

	// Assert
	assert.Equal(t, []string{"B", "C", "B", "D"}, targets)
}

func TestLinkExtractor_Filters(t *testing.T) {
	doc := document.Document{Nodes: []document.Node{
		document.Paragraph{Content: []document.Node{
			document.Relationship{Relationship: "tag", TargetID: "t1"},
			document.Relationship{Relationship: "post"},
			ref("A"),
		}},
	}}

	assert.Equal(t, []string{"A"}, NewLinkExtractor("post", nil).Targets(doc))
}

func TestLinkExtractor_RecursesIntoMatchedNodes(t *testing.T) {
	doc := document.Document{Nodes: []document.Node{
		document.Relationship{Relationship: "post", TargetID: "outer", Content: []document.Node{
			ref("inner"),
		}},
	}}

	assert.Equal(t, []string{"outer", "inner"}, NewLinkExtractor("post", nil).Targets(doc))
}

func TestLinkExtractor_ComponentBlocks(t *testing.T) {
	doc := document.Document{Nodes: []document.Node{
		document.ComponentBlock{Component: "internalLink", Props: map[string]string{"post": "A"}},
		document.ComponentBlock{Component: "notice", Props: map[string]string{}, Content: []document.Node{
			document.Paragraph{Content: []document.Node{ref("B")}},
		}},
		document.ComponentBlock{Component: "quote", Props: map[string]string{"post": "ignored"}},
	}}
	extractor := NewLinkExtractor("post", map[string]string{"internalLink": "post"})

	assert.Equal(t, []string{"A", "B"}, extractor.Targets(doc))
}

func TestLinkExtractor_EmptyDocument(t *testing.T) {
	assert.Empty(t, NewLinkExtractor("post", nil).Targets(document.Document{}))
}
