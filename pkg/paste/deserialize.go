// Package paste turns clipboard payloads into document nodes: HTML through a sanitizing
// deserializer, plain text by splitting on blank lines.
package paste

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"notefiber-editor/pkg/document"
)

var ErrEmptyPayload = errors.New("paste: payload carries neither html nor text")

var whitespaceRun = regexp.MustCompile(`[ \t\n\r\f]+`)

// htmlSpace is the whitespace HTML collapses; a non-breaking space is not part of it.
const htmlSpace = " \t\n\r\f"

// breakingTags end an inline run; whitespace next to them is layout, not content.
var breakingTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "aside": true, "pre": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true,
	"div": true, "article": true, "section": true, "main": true, "header": true, "footer": true,
	"body": true, "html": true, "hr": true, "br": true, "img": true, "video": true,
}

var headingTags = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

// walkState is carried down the DOM while deserializing.
type walkState struct {
	marks  document.Mark
	pre    bool
	parent string // tag of the nearest element ancestor
	list   document.BlockType
}

// FromHTML sanitizes, parses and deserializes an HTML fragment.
func FromHTML(raw string) (nodes []document.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			nodes, err = nil, fmt.Errorf("paste: deserialize html: %v", r)
		}
	}()

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	dom, err := html.ParseFragment(strings.NewReader(Sanitize(raw)), body)
	if err != nil {
		return nil, fmt.Errorf("paste: parse html: %w", err)
	}
	// ParseFragment detaches the top-level nodes; re-link them so whitespace between
	// them can see its neighbours.
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range dom {
		root.AppendChild(n)
	}
	return Deserialize(root), nil
}

// Deserialize converts parsed DOM nodes into normalized document nodes. A result made
// only of inline content is wrapped in a single paragraph.
func Deserialize(dom ...*html.Node) []document.Node {
	var out []document.Node
	for _, n := range dom {
		out = append(out, deserializeNode(n, walkState{})...)
	}
	out = document.Normalize(out)
	if len(out) > 0 && allInline(out) {
		out = document.Normalize([]document.Node{document.NewBlock(document.TypeParagraph, out...)})
	}
	return out
}

func deserializeChildren(n *html.Node, st walkState) []document.Node {
	var out []document.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, deserializeNode(c, st)...)
	}
	return out
}

func deserializeNode(n *html.Node, st walkState) []document.Node {
	switch n.Type {
	case html.TextNode:
		return deserializeText(n, st)
	case html.ElementNode:
		return deserializeElement(n, st)
	case html.DocumentNode:
		return deserializeChildren(n, st)
	}
	return nil
}

// deserializeText collapses whitespace outside pre. A whitespace-only node survives
// as one space only when inline content sits on both sides of it. Non-breaking spaces
// become plain spaces.
func deserializeText(n *html.Node, st walkState) []document.Node {
	text := n.Data
	if !st.pre {
		if strings.Trim(text, htmlSpace) == "" {
			if !inlineNeighbour(n, false) || !inlineNeighbour(n, true) {
				return nil
			}
		}
		text = whitespaceRun.ReplaceAllString(text, " ")
		text = strings.ReplaceAll(text, "\u00a0", " ")
	}
	if text == "" {
		return nil
	}
	return []document.Node{&document.Text{Text: text, Marks: st.marks}}
}

func deserializeElement(el *html.Node, st walkState) []document.Node {
	tag := el.Data
	child := st
	child.parent = tag
	child.marks |= tagMarks(tag, st.pre) | ParseStyle(getAttrValue("style", el.Attr)).Marks()

	if level, ok := headingTags[tag]; ok {
		typ, _ := document.HeadingLevel(level)
		return textBlock(typ, deserializeChildren(el, child))
	}

	switch tag {
	case "br":
		return []document.Node{&document.Text{Text: "\n", Marks: st.marks}}

	case "p":
		return textBlock(document.TypeParagraph, deserializeChildren(el, child))

	case "blockquote":
		return block(document.TypeBlockQuote, deserializeChildren(el, child))

	case "aside":
		return block(document.TypeCallout, deserializeChildren(el, child))

	case "pre":
		child.pre = true
		child.marks = child.marks.Without(document.Code)
		return block(document.TypeCodeBlock, deserializeChildren(el, child))

	case "ul", "ol":
		list := document.TypeBulletedList
		switch {
		case tag == "ol":
			list = document.TypeNumberedList
		case getAttrValue("data-type", el.Attr) == "taskList":
			list = document.TypeTodoList
		case getAttrValue("data-type", el.Attr) == "toggleList":
			list = document.TypeToggleList
		}
		child.list = list
		return block(list, deserializeChildren(el, child))

	case "li":
		if st.parent != "ul" && st.parent != "ol" {
			return textBlock(document.TypeParagraph, deserializeChildren(el, child))
		}
		item, _ := st.list.ItemType()
		b := &document.Block{Type: item, Children: deserializeChildren(el, child)}
		switch item {
		case document.TypeTodoItem:
			b.Checked = getAttrValue("data-checked", el.Attr) == "true"
		case document.TypeToggleItem:
			b.Collapsed = getAttrValue("data-collapsed", el.Attr) == "true"
		}
		return []document.Node{b}

	case "hr":
		return []document.Node{document.NewVoid(document.TypeDivider)}

	case "img":
		src := getAttrValue("src", el.Attr)
		if src == "" {
			return nil
		}
		return []document.Node{document.NewVoid(document.TypeImage,
			document.WithURL(src), document.WithAlt(getAttrValue("alt", el.Attr)))}

	case "video":
		src := getAttrValue("src", el.Attr)
		if src == "" {
			return nil
		}
		return []document.Node{document.NewVoid(document.TypeVideo, document.WithURL(src))}

	case "a":
		href := getAttrValue("href", el.Attr)
		children := deserializeChildren(el, child)
		if href == "" {
			return children
		}
		return []document.Node{&document.Block{Type: document.TypeLink, URL: href, Children: children}}

	case "table":
		return block(document.TypeTable, deserializeChildren(el, child))
	case "tr":
		return block(document.TypeTableRow, deserializeChildren(el, child))
	case "td", "th":
		return block(document.TypeTableCell, deserializeChildren(el, child))
	case "thead", "tbody", "tfoot":
		return deserializeChildren(el, child)

	case "div", "article", "section", "main", "header", "footer", "body":
		if tag == "div" && getAttrValue("data-type", el.Attr) == "file" {
			return []document.Node{document.NewVoid(document.TypeFile,
				document.WithURL(getAttrValue("data-url", el.Attr)),
				document.WithFileName(getAttrValue("data-file-name", el.Attr)),
				document.WithFileType(getAttrValue("data-file-type", el.Attr)))}
		}
		children := deserializeChildren(el, child)
		if !allInline(children) {
			return children
		}
		return block(document.TypeParagraph, children)
	}

	return deserializeChildren(el, child)
}

// inlineNeighbour reports whether the nearest node before (or after, when next is set)
// n in document order is inline content, climbing out of inline parents.
func inlineNeighbour(n *html.Node, next bool) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		sib := cur.PrevSibling
		if next {
			sib = cur.NextSibling
		}
		if sib != nil {
			return sib.Type != html.ElementNode || !breakingTags[sib.Data]
		}
		p := cur.Parent
		if p == nil || p.Type != html.ElementNode || breakingTags[p.Data] {
			return false
		}
	}
	return false
}

func tagMarks(tag string, inPre bool) document.Mark {
	switch tag {
	case "strong", "b":
		return document.Bold
	case "em", "i":
		return document.Italic
	case "u":
		return document.Underline
	case "s", "strike", "del":
		return document.Strikethrough
	case "code":
		if !inPre {
			return document.Code
		}
	case "mark":
		return document.Highlight
	case "sup":
		return document.Superscript
	case "sub":
		return document.Subscript
	}
	return 0
}

func block(t document.BlockType, children []document.Node) []document.Node {
	return []document.Node{&document.Block{Type: t, Children: children}}
}

// textBlock builds a text-only block. Blocks found among its children, such as an
// image inside a paragraph, are hoisted out between runs of inline content.
func textBlock(t document.BlockType, children []document.Node) []document.Node {
	if allInline(children) {
		return block(t, children)
	}
	var (
		out []document.Node
		run []document.Node
	)
	flush := func() {
		if len(run) > 0 {
			out = append(out, &document.Block{Type: t, Children: run})
			run = nil
		}
	}
	for _, c := range children {
		if isInline(c) {
			run = append(run, c)
			continue
		}
		flush()
		out = append(out, c)
	}
	flush()
	return out
}

func isInline(n document.Node) bool {
	switch v := n.(type) {
	case *document.Text:
		return true
	case *document.Block:
		return v.Type.IsInline()
	}
	return false
}

func allInline(nodes []document.Node) bool {
	for _, n := range nodes {
		if !isInline(n) {
			return false
		}
	}
	return true
}

func getAttrValue(key string, attrs []html.Attribute) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
