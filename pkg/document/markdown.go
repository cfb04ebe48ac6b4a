package document

import (
	"io"
	"strings"

	md "github.com/nao1215/markdown"
)

// nestIndent shifts a nested list under its parent item; it clears both "- " and "1. ".
const nestIndent = "    "

// ToMarkdown renders document content as markdown, one blank line between top-level
// blocks. Marks markdown has no syntax for fall back to inline HTML.
func ToMarkdown(nodes []Node) string {
	doc := md.NewMarkdown(io.Discard)
	for i, n := range nodes {
		if i > 0 {
			doc.PlainText("")
		}
		writeMarkdownBlock(doc, n)
	}
	return strings.TrimRight(doc.String(), "\n") + "\n"
}

// PlainText returns the text of every block, one block per line.
func PlainText(nodes []Node) string {
	var lines []string
	var walk func(n Node)
	walk = func(n Node) {
		b, ok := n.(*Block)
		if !ok {
			return
		}
		if hasInline(b.Children) && !b.Type.IsVoid() {
			lines = append(lines, TextContent(b))
			return
		}
		for _, c := range b.Children {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

func writeMarkdownBlock(doc *md.Markdown, n Node) {
	b, ok := n.(*Block)
	if !ok || b.Type.IsInline() {
		doc.PlainText(inlineMarkdown([]Node{n}))
		return
	}

	switch b.Type {
	case TypeHeadingOne:
		doc.H1(inlineMarkdown(b.Children))
	case TypeHeadingTwo:
		doc.H2(inlineMarkdown(b.Children))
	case TypeHeadingThree:
		doc.H3(inlineMarkdown(b.Children))
	case TypeHeadingFour:
		doc.H4(inlineMarkdown(b.Children))
	case TypeHeadingFive:
		doc.H5(inlineMarkdown(b.Children))
	case TypeHeadingSix:
		doc.H6(inlineMarkdown(b.Children))

	case TypeBlockQuote, TypeCallout:
		doc.Blockquote(strings.TrimRight(blockBody(b), "\n"))

	case TypeCodeBlock:
		doc.CodeBlocks(md.SyntaxHighlight(""), TextContent(b))

	case TypeNumberedList:
		doc.OrderedList(listItemsMarkdown(b)...)
	case TypeBulletedList, TypeToggleList:
		doc.BulletList(listItemsMarkdown(b)...)
	case TypeTodoList:
		var set []md.CheckBoxSet
		for _, c := range b.Children {
			if item, ok := c.(*Block); ok {
				set = append(set, md.CheckBoxSet{Checked: item.Checked, Text: itemMarkdown(item)})
			}
		}
		doc.CheckBox(set)

	case TypeTable:
		if t, ok := tableSet(b); ok {
			doc.Table(t)
		}

	case TypeDivider:
		doc.HorizontalRule()
	case TypeImage:
		doc.PlainText(md.Image(b.Alt, b.URL))
	case TypeVideo:
		doc.PlainText(md.Link("video", b.URL))
	case TypeFile:
		name := b.FileName
		if name == "" {
			name = "file"
		}
		doc.PlainText(md.Link(name, b.URL))

	default:
		doc.PlainText(strings.TrimRight(blockBody(b), "\n"))
	}
}

// blockBody renders the content of a container or text block on its own.
func blockBody(b *Block) string {
	if hasInline(b.Children) {
		return inlineMarkdown(b.Children)
	}
	return ToMarkdown(b.Children)
}

func listItemsMarkdown(list *Block) []string {
	var out []string
	for _, c := range list.Children {
		if item, ok := c.(*Block); ok {
			out = append(out, itemMarkdown(item))
		}
	}
	return out
}

// itemMarkdown renders an item's text followed by any nested list, indented.
func itemMarkdown(item *Block) string {
	var inline, nested []Node
	for _, c := range item.Children {
		if sub, ok := c.(*Block); ok && sub.Type.IsList() {
			nested = append(nested, sub)
			continue
		}
		inline = append(inline, c)
	}
	text := inlineMarkdown(inline)
	for _, sub := range nested {
		sd := md.NewMarkdown(io.Discard)
		writeMarkdownBlock(sd, sub)
		for _, line := range strings.Split(strings.TrimRight(sd.String(), "\n"), "\n") {
			text += "\n" + nestIndent + line
		}
	}
	return text
}

func tableSet(table *Block) (md.TableSet, bool) {
	var rows [][]string
	cols := 0
	for _, r := range table.Children {
		row, ok := r.(*Block)
		if !ok || row.Type != TypeTableRow {
			continue
		}
		var cells []string
		for _, c := range row.Children {
			cell, ok := c.(*Block)
			if !ok {
				continue
			}
			cells = append(cells, strings.TrimSpace(strings.ReplaceAll(blockBody(cell), "\n", " ")))
		}
		rows = append(rows, cells)
		if len(cells) > cols {
			cols = len(cells)
		}
	}
	if len(rows) == 0 || cols == 0 {
		return md.TableSet{}, false
	}
	for i := range rows {
		for len(rows[i]) < cols {
			rows[i] = append(rows[i], "")
		}
	}
	return md.TableSet{Header: rows[0], Rows: rows[1:]}, true
}

func inlineMarkdown(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch v := n.(type) {
		case *Text:
			sb.WriteString(markText(v))
		case *Block:
			if v.Type == TypeLink {
				sb.WriteString(md.Link(inlineMarkdown(v.Children), v.URL))
			} else {
				sb.WriteString(inlineMarkdown(v.Children))
			}
		}
	}
	return sb.String()
}

// markText wraps a leaf in its marks, innermost first: code, bold, italic, then the
// HTML-only marks.
func markText(t *Text) string {
	s := t.Text
	if s == "" || t.Marks == 0 {
		return s
	}
	if t.Marks.Has(Code) {
		s = md.Code(s)
	}
	if t.Marks.Has(Bold) {
		s = md.Bold(s)
	}
	if t.Marks.Has(Italic) {
		s = md.Italic(s)
	}
	if t.Marks.Has(Strikethrough) {
		s = md.Strikethrough(s)
	}
	if t.Marks.Has(Highlight) {
		s = "==" + s + "=="
	}
	if t.Marks.Has(Underline) {
		s = "<u>" + s + "</u>"
	}
	if t.Marks.Has(Superscript) {
		s = "<sup>" + s + "</sup>"
	}
	if t.Marks.Has(Subscript) {
		s = "<sub>" + s + "</sub>"
	}
	return s
}
