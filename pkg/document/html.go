package document

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[BlockType]string{
	TypeParagraph:    "p",
	TypeHeadingOne:   "h1",
	TypeHeadingTwo:   "h2",
	TypeHeadingThree: "h3",
	TypeHeadingFour:  "h4",
	TypeHeadingFive:  "h5",
	TypeHeadingSix:   "h6",
	TypeBlockQuote:   "blockquote",
	TypeBulletedList: "ul",
	TypeNumberedList: "ol",
	TypeListItem:     "li",
	TypeTodoList:     "ul",
	TypeTodoItem:     "li",
	TypeToggleList:   "ul",
	TypeToggleItem:   "li",
	TypeCodeBlock:    "pre",
	TypeTable:        "table",
	TypeTableRow:     "tr",
	TypeTableCell:    "td",
	TypeCallout:      "aside",
}

var markTags = map[Mark]string{
	Bold:          "strong",
	Italic:        "em",
	Underline:     "u",
	Strikethrough: "s",
	Code:          "code",
	Highlight:     "mark",
	Superscript:   "sup",
	Subscript:     "sub",
}

// ToHTML serializes document content to HTML that the paste deserializer maps back to
// the same nodes.
func ToHTML(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		writeHTML(&sb, n, false)
	}
	return sb.String()
}

func writeHTML(sb *strings.Builder, n Node, pre bool) {
	switch v := n.(type) {
	case *Text:
		writeTextHTML(sb, v, pre)
	case *Block:
		writeBlockHTML(sb, v, pre)
	}
}

func writeTextHTML(sb *strings.Builder, t *Text, pre bool) {
	var tags []string
	for _, mk := range markOrder {
		if t.Marks.Has(mk.mark) && !(pre && mk.mark == Code) {
			tags = append(tags, markTags[mk.mark])
		}
	}
	for _, tag := range tags {
		sb.WriteString("<" + tag + ">")
	}
	text := html.EscapeString(t.Text)
	if !pre {
		text = strings.ReplaceAll(protectSpaces(text), "\n", "<br>")
	}
	sb.WriteString(text)
	for i := len(tags) - 1; i >= 0; i-- {
		sb.WriteString("</" + tags[i] + ">")
	}
}

// protectSpaces writes a space as &nbsp; when HTML would otherwise collapse it: at
// the start of a leaf or after another space.
func protectSpaces(s string) string {
	if !strings.Contains(s, " ") {
		return s
	}
	var sb strings.Builder
	prev := ' '
	for _, r := range s {
		if r == ' ' && prev == ' ' {
			sb.WriteString("&nbsp;")
		} else {
			sb.WriteRune(r)
		}
		prev = r
	}
	return sb.String()
}

func writeBlockHTML(sb *strings.Builder, b *Block, pre bool) {
	attr := func(name, value string) {
		sb.WriteString(" " + name + `="` + html.EscapeString(value) + `"`)
	}

	switch b.Type {
	case TypeDivider:
		sb.WriteString("<hr>")
		return
	case TypeImage:
		sb.WriteString("<img")
		attr("src", b.URL)
		if b.Alt != "" {
			attr("alt", b.Alt)
		}
		sb.WriteString(">")
		return
	case TypeVideo:
		sb.WriteString("<video")
		attr("src", b.URL)
		sb.WriteString("></video>")
		return
	case TypeFile:
		sb.WriteString(`<div data-type="file"`)
		attr("data-url", b.URL)
		attr("data-file-name", b.FileName)
		attr("data-file-type", b.FileType)
		sb.WriteString("></div>")
		return
	case TypeLink:
		sb.WriteString("<a")
		attr("href", b.URL)
		sb.WriteString(">")
		for _, c := range b.Children {
			writeHTML(sb, c, pre)
		}
		sb.WriteString("</a>")
		return
	}

	tag, ok := blockTags[b.Type]
	if !ok {
		tag = "div"
	}
	sb.WriteString("<" + tag)
	switch b.Type {
	case TypeTodoList:
		attr("data-type", "taskList")
	case TypeToggleList:
		attr("data-type", "toggleList")
	case TypeTodoItem:
		attr("data-checked", strconv.FormatBool(b.Checked))
	case TypeToggleItem:
		attr("data-collapsed", strconv.FormatBool(b.Collapsed))
	}
	sb.WriteString(">")
	// A newline right after <pre> is dropped by parsers, so one is always written.
	if b.Type == TypeCodeBlock && !pre {
		sb.WriteString("\n")
	}
	for _, c := range b.Children {
		writeHTML(sb, c, pre || b.Type == TypeCodeBlock)
	}
	sb.WriteString("</" + tag + ">")
}
