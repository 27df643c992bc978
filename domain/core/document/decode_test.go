package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

const sampleDocument = `[
	{"type": "heading", "level": 2, "children": [{"text": "제목"}]},
	{"type": "paragraph", "children": [
		{"text": "앞 "},
		{"type": "relationship", "relationship": "post", "data": {"id": "post-b", "label": "B"}, "children": [{"text": ""}]},
		{"text": " 뒤", "bold": true}
	]},
	{"type": "component-block", "component": "internalLink",
		"props": {"post": {"id": 42, "label": "C"}, "title": "ignored"},
		"children": [{"type": "component-inline-prop", "children": [{"text": ""}]}]}
]`

func TestDecode_BuildsTaggedVariants(t *testing.T) {
	// Act
	doc, report := Decode([]byte(sampleDocument))

	// Assert
	require.True(t, report.Clean(), report.Issues)
	require.Len(t, doc.Nodes, 3)

	heading, ok := doc.Nodes[0].(Element)
	require.True(t, ok)
	assert.Equal(t, "heading", heading.Type)

	para, ok := doc.Nodes[1].(Paragraph)
	require.True(t, ok)
	require.Len(t, para.Content, 3)
	assert.Equal(t, Text{Value: "앞 "}, para.Content[0])

	rel, ok := para.Content[1].(Relationship)
	require.True(t, ok)
	assert.Equal(t, "post", rel.Relationship)
	assert.Equal(t, "post-b", rel.TargetID)
	assert.Equal(t, "B", rel.Label)

	block, ok := doc.Nodes[2].(ComponentBlock)
	require.True(t, ok)
	assert.Equal(t, "internalLink", block.Component)
	assert.Equal(t, map[string]string{"post": "42"}, block.Props)
}

func TestDecode_AcceptsWrappedDocument(t *testing.T) {
	doc, report := Decode([]byte(`{"document": [{"type": "paragraph", "children": [{"text": "hi"}]}]}`))

	assert.True(t, report.Clean())
	assert.Len(t, doc.Nodes, 1)
}

func TestDecode_EmptyInputs(t *testing.T) {
	for _, input := range []string{"", "  ", "null", "[]"} {
		doc, report := Decode([]byte(input))
		assert.True(t, doc.IsEmpty(), "input %q", input)
		assert.True(t, report.Clean(), "input %q", input)
	}
}

func TestDecode_FailsClosed(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		wantIssue string
	}{
		{
			name:      "children is not an array",
			input:     `[{"type": "paragraph", "children": "oops"}, {"type": "paragraph", "children": [{"text": "ok"}]}]`,
			wantNodes: 2,
			wantIssue: "$[0].children: children must be an array",
		},
		{
			name:      "node is not an object",
			input:     `[42, {"type": "paragraph"}]`,
			wantNodes: 1,
			wantIssue: "$[0]: node must be an object",
		},
		{
			name:      "not json",
			input:     `{{{`,
			wantNodes: 0,
		},
		{
			name:      "top level object without document",
			input:     `{"type": "paragraph"}`,
			wantNodes: 0,
			wantIssue: "$: document must be an array of nodes",
		},
		{
			name:      "text is not a string",
			input:     `[{"type": "paragraph", "children": [{"text": 5}, {"text": "kept"}]}]`,
			wantNodes: 1,
			wantIssue: "$[0].children[0].text: text must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, report := Decode([]byte(tt.input))

			assert.Len(t, doc.Nodes, tt.wantNodes)
			assert.Equal(t, 1, report.Dropped())
			if tt.wantIssue != "" {
				assert.Equal(t, tt.wantIssue, report.Issues[0])
			}
		})
	}
}

func TestDecode_MalformedSubtreeIsEmpty(t *testing.T) {
	doc, _ := Decode([]byte(`[{"type": "paragraph", "children": {"text": "x"}}]`))

	require.Len(t, doc.Nodes, 1)
	assert.Empty(t, doc.Nodes[0].Children())
}

func TestDecodeStrict(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc, err := DecodeStrict([]byte(sampleDocument))
		require.NoError(t, err)
		assert.Len(t, doc.Nodes, 3)
	})

	t.Run("malformed children", func(t *testing.T) {
		_, err := DecodeStrict([]byte(`[{"type": "quote", "children": [{"type": "paragraph", "children": 1}]}]`))

		require.Error(t, err)
		assert.True(t, pkgerrors.IsMalformedDocument(err))
		assert.Contains(t, err.Error(), "$[0].children[0].children")
	})

	t.Run("relationship data not an object", func(t *testing.T) {
		_, err := DecodeStrict([]byte(`[{"type": "relationship", "relationship": "post", "data": "x"}]`))
		assert.True(t, pkgerrors.IsMalformedDocument(err))
	})
}

func TestDecode_NullRelationshipData(t *testing.T) {
	doc, report := Decode([]byte(`[{"type": "relationship", "relationship": "post", "data": null}]`))

	require.True(t, report.Clean())
	rel := doc.Nodes[0].(Relationship)
	assert.Empty(t, rel.TargetID)
}
