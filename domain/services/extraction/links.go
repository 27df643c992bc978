package extraction

import "github.com/solm0/solmee-xyz-keystone/domain/core/document"

// LinkExtractor collects the ids of articles embedded in a document
type LinkExtractor struct {
	relationshipKind string
	components       map[string]string
}

// NewLinkExtractor matches relationship nodes of relationshipKind and
// component blocks named in components, whose value is the prop holding the reference
func NewLinkExtractor(relationshipKind string, components map[string]string) *LinkExtractor {
	copied := make(map[string]string, len(components))
	for k, v := range components {
		copied[k] = v
	}
	return &LinkExtractor{relationshipKind: relationshipKind, components: copied}
}

// Targets returns referenced ids in pre-order document order. Duplicates are
// kept; the reconciler decides how to collapse them.
func (e *LinkExtractor) Targets(doc document.Document) []string {
	targets := make([]string, 0)

	doc.Walk(func(node document.Node, _ int) bool {
		switch n := node.(type) {
		case document.Relationship:
			if n.Relationship == e.relationshipKind && n.TargetID != "" {
				targets = append(targets, n.TargetID)
			}
		case document.ComponentBlock:
			if prop, ok := e.components[n.Component]; ok {
				if id := n.Props[prop]; id != "" {
					targets = append(targets, id)
				}
			}
		}
		return true
	})

	return targets
}
