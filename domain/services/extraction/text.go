// Package extraction projects a document tree onto the inputs of the
// keyword and link pipelines.
package extraction

import (
	"strings"

	"github.com/solm0/solmee-xyz-keystone/domain/core/document"
)

// PlainText concatenates the text runs of top-level paragraphs. Runs inside a
// paragraph are joined without separator and paragraphs with a single space.
// Headings, quotes, layouts and other blocks are not part of the body prose.
func PlainText(doc document.Document) string {
	paragraphs := make([]string, 0, len(doc.Nodes))

	for _, node := range doc.Nodes {
		para, ok := node.(document.Paragraph)
		if !ok {
			continue
		}

		var b strings.Builder
		for _, child := range para.Content {
			if text, ok := child.(document.Text); ok {
				b.WriteString(text.Value)
			}
		}
		paragraphs = append(paragraphs, b.String())
	}

	return strings.Join(paragraphs, " ")
}
