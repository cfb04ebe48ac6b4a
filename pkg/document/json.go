package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type blockJSON struct {
	Type      BlockType         `json:"type"`
	URL       string            `json:"url,omitempty"`
	Alt       string            `json:"alt,omitempty"`
	FileName  string            `json:"fileName,omitempty"`
	FileType  string            `json:"fileType,omitempty"`
	Checked   *bool             `json:"checked,omitempty"`
	Collapsed *bool             `json:"collapsed,omitempty"`
	Children  []json.RawMessage `json:"children"`
}

// MarshalJSON encodes a leaf as {"text": ..., "bold": true, ...} with marks in a fixed order.
func (t *Text) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	text, err := json.Marshal(t.Text)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"text":`)
	buf.Write(text)
	for _, name := range t.Marks.Names() {
		buf.WriteString(`,"` + name + `":true`)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *Block) MarshalJSON() ([]byte, error) {
	out := blockJSON{
		Type:     b.Type,
		URL:      b.URL,
		Alt:      b.Alt,
		FileName: b.FileName,
		FileType: b.FileType,
		Children: make([]json.RawMessage, 0, len(b.Children)),
	}
	switch b.Type {
	case TypeTodoItem:
		checked := b.Checked
		out.Checked = &checked
	case TypeToggleItem:
		collapsed := b.Collapsed
		out.Collapsed = &collapsed
	}
	for _, c := range b.Children {
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, raw)
	}
	return json.Marshal(out)
}

// Marshal encodes document content as a JSON array of nodes.
func Marshal(nodes []Node) ([]byte, error) {
	if nodes == nil {
		nodes = []Node{}
	}
	return json.Marshal(nodes)
}

// Unmarshal decodes a JSON array of nodes. Unknown block types are rejected.
func Unmarshal(data []byte) ([]Node, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("document: decode content: %w", err)
	}
	return decodeNodes(raws)
}

func decodeNodes(raws []json.RawMessage) ([]Node, error) {
	out := make([]Node, 0, len(raws))
	for _, raw := range raws {
		n, err := decodeNode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("document: decode node: %w", err)
	}

	_, hasText := fields["text"]
	_, hasType := fields["type"]
	if hasText && !hasType {
		t := &Text{}
		if err := json.Unmarshal(fields["text"], &t.Text); err != nil {
			return nil, fmt.Errorf("document: decode text: %w", err)
		}
		for _, mk := range markOrder {
			v, ok := fields[mk.name]
			if !ok {
				continue
			}
			var set bool
			if err := json.Unmarshal(v, &set); err != nil {
				return nil, fmt.Errorf("document: decode mark %s: %w", mk.name, err)
			}
			if set {
				t.Marks |= mk.mark
			}
		}
		return t, nil
	}

	var in blockJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("document: decode block: %w", err)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("document: unknown block type %q", in.Type)
	}
	children, err := decodeNodes(in.Children)
	if err != nil {
		return nil, err
	}
	b := &Block{
		Type:     in.Type,
		Children: children,
		URL:      in.URL,
		Alt:      in.Alt,
		FileName: in.FileName,
		FileType: in.FileType,
	}
	if in.Checked != nil {
		b.Checked = *in.Checked
	}
	if in.Collapsed != nil {
		b.Collapsed = *in.Collapsed
	}
	return b, nil
}
