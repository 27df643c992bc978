// Package document models the rich-text body of an article as a closed set of
// node variants and provides traversal and decoding over it.
package document

// Kind identifies a node variant
type Kind string

const (
	KindText           Kind = "text"
	KindParagraph      Kind = "paragraph"
	KindRelationship   Kind = "relationship"
	KindComponentBlock Kind = "component-block"
	KindElement        Kind = "element"
)

// Node is one node of a document tree. The set of implementations is closed.
type Node interface {
	Kind() Kind
	Children() []Node
	isNode()
}

// Text is a run of characters. It never has children.
type Text struct {
	Value string
}

// Paragraph is a block of inline content
type Paragraph struct {
	Content []Node
}

// Relationship is an inline reference to another entity.
// TargetID is empty when the editor left the reference unset.
type Relationship struct {
	Relationship string
	TargetID     string
	Label        string
	Content      []Node
}

// ComponentBlock is a custom block with named props. Props holding a
// reference keep only the referenced id.
type ComponentBlock struct {
	Component string
	Props     map[string]string
	Content   []Node
}

// Element is any other structural node: headings, quotes, layouts, dividers, lists.
type Element struct {
	Type    string
	Content []Node
}

func (Text) Kind() Kind           { return KindText }
func (Paragraph) Kind() Kind      { return KindParagraph }
func (Relationship) Kind() Kind   { return KindRelationship }
func (ComponentBlock) Kind() Kind { return KindComponentBlock }
func (Element) Kind() Kind        { return KindElement }

func (Text) Children() []Node             { return nil }
func (n Paragraph) Children() []Node      { return n.Content }
func (n Relationship) Children() []Node   { return n.Content }
func (n ComponentBlock) Children() []Node { return n.Content }
func (n Element) Children() []Node        { return n.Content }

func (Text) isNode()           {}
func (Paragraph) isNode()      {}
func (Relationship) isNode()   {}
func (ComponentBlock) isNode() {}
func (Element) isNode()        {}

// Document is the ordered sequence of top-level nodes of an article body
type Document struct {
	Nodes []Node
}

// IsEmpty reports whether the document has no top-level nodes
func (d Document) IsEmpty() bool {
	return len(d.Nodes) == 0
}

// Visitor is called for each node in pre-order. Returning false skips the
// node's children; traversal of its siblings continues.
type Visitor func(node Node, depth int) bool

// Walk traverses nodes depth-first in pre-order, preserving document order
func Walk(nodes []Node, visit Visitor) {
	walk(nodes, 0, visit)
}

func walk(nodes []Node, depth int, visit Visitor) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if visit(n, depth) {
			walk(n.Children(), depth+1, visit)
		}
	}
}

// Walk traverses the whole document in pre-order
func (d Document) Walk(visit Visitor) {
	Walk(d.Nodes, visit)
}
