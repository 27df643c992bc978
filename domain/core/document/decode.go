package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// Report describes what a lenient decode had to discard
type Report struct {
	// Issues holds one entry per discarded subtree, as "path: reason"
	Issues []string
}

// Dropped returns the number of discarded subtrees
func (r Report) Dropped() int {
	return len(r.Issues)
}

// Clean reports whether nothing was discarded
func (r Report) Clean() bool {
	return len(r.Issues) == 0
}

// Decode parses an editor document and fails closed: any subtree that breaks
// the node shape is treated as empty and recorded in the report. Input that is
// not JSON at all yields an empty document.
func Decode(data []byte) (Document, Report) {
	d := &decoder{}
	doc, _ := d.decode(data)
	return doc, Report{Issues: d.issues}
}

// DecodeStrict parses an editor document and returns a MalformedDocument error
// on the first shape violation
func DecodeStrict(data []byte) (Document, error) {
	d := &decoder{strict: true}
	return d.decode(data)
}

type decoder struct {
	strict bool
	issues []string
	err    error
}

func (d *decoder) decode(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Document{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		d.fail("$", fmt.Sprintf("invalid JSON: %v", err))
		return Document{}, d.err
	}

	// Documents arrive either as the bare node array or wrapped as {"document": [...]}
	if obj, ok := raw.(map[string]interface{}); ok {
		if inner, found := obj["document"]; found {
			raw = inner
		}
	}

	list, ok := raw.([]interface{})
	if !ok {
		d.fail("$", "document must be an array of nodes")
		return Document{}, d.err
	}

	nodes := d.nodes(list, "$")
	if d.err != nil {
		return Document{}, d.err
	}
	return Document{Nodes: nodes}, nil
}

func (d *decoder) fail(path, reason string) {
	d.issues = append(d.issues, path+": "+reason)
	if d.strict && d.err == nil {
		d.err = pkgerrors.NewMalformedDocumentError(path, reason)
	}
}

func (d *decoder) nodes(list []interface{}, path string) []Node {
	out := make([]Node, 0, len(list))
	for i, item := range list {
		if d.err != nil {
			return nil
		}
		if n := d.node(item, fmt.Sprintf("%s[%d]", path, i)); n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (d *decoder) children(obj map[string]interface{}, path string) []Node {
	raw, ok := obj["children"]
	if !ok || raw == nil {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		d.fail(path+".children", "children must be an array")
		return nil
	}
	return d.nodes(list, path+".children")
}

func (d *decoder) node(item interface{}, path string) Node {
	obj, ok := item.(map[string]interface{})
	if !ok {
		d.fail(path, "node must be an object")
		return nil
	}

	nodeType, hasType := obj["type"]
	if !hasType {
		if text, isText := obj["text"]; isText {
			value, ok := text.(string)
			if !ok {
				d.fail(path+".text", "text must be a string")
				return nil
			}
			return Text{Value: value}
		}
		return Element{Content: d.children(obj, path)}
	}

	typeName, ok := nodeType.(string)
	if !ok {
		d.fail(path+".type", "type must be a string")
		return nil
	}

	switch Kind(typeName) {
	case KindParagraph:
		return Paragraph{Content: d.children(obj, path)}
	case KindRelationship:
		return d.relationship(obj, path)
	case KindComponentBlock:
		return d.componentBlock(obj, path)
	default:
		return Element{Type: typeName, Content: d.children(obj, path)}
	}
}

func (d *decoder) relationship(obj map[string]interface{}, path string) Node {
	rel := Relationship{
		Relationship: cast.ToString(obj["relationship"]),
		Content:      d.children(obj, path),
	}

	switch data := obj["data"].(type) {
	case nil:
	case map[string]interface{}:
		rel.TargetID = referenceID(data)
		rel.Label = cast.ToString(data["label"])
	default:
		d.fail(path+".data", "relationship data must be an object")
	}

	return rel
}

func (d *decoder) componentBlock(obj map[string]interface{}, path string) Node {
	block := ComponentBlock{
		Component: cast.ToString(obj["component"]),
		Props:     map[string]string{},
		Content:   d.children(obj, path),
	}

	switch props := obj["props"].(type) {
	case nil:
	case map[string]interface{}:
		for name, value := range props {
			ref, ok := value.(map[string]interface{})
			if !ok {
				continue
			}
			if id := referenceID(ref); id != "" {
				block.Props[name] = id
			}
		}
	default:
		d.fail(path+".props", "props must be an object")
	}

	return block
}

// referenceID reads an id that may have been serialized as a string or a number
func referenceID(ref map[string]interface{}) string {
	raw, ok := ref["id"]
	if !ok || raw == nil {
		return ""
	}
	id, err := cast.ToStringE(raw)
	if err != nil {
		return ""
	}
	return id
}
