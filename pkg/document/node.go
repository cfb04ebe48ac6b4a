// Package document holds the structured document model edited by the notefiber editor:
// a tree of typed blocks and formatted text leaves, the selection that points into it,
// and the transactional operations every other editor component mutates it through.
package document

import "unicode/utf8"

// BlockType identifies the kind of a Block.
type BlockType string

const (
	TypeParagraph    BlockType = "paragraph"
	TypeHeadingOne   BlockType = "heading-one"
	TypeHeadingTwo   BlockType = "heading-two"
	TypeHeadingThree BlockType = "heading-three"
	TypeHeadingFour  BlockType = "heading-four"
	TypeHeadingFive  BlockType = "heading-five"
	TypeHeadingSix   BlockType = "heading-six"
	TypeBlockQuote   BlockType = "block-quote"
	TypeBulletedList BlockType = "bulleted-list"
	TypeNumberedList BlockType = "numbered-list"
	TypeListItem     BlockType = "list-item"
	TypeTodoList     BlockType = "todo-list"
	TypeTodoItem     BlockType = "todo-item"
	TypeToggleList   BlockType = "toggle-list"
	TypeToggleItem   BlockType = "toggle-item"
	TypeCodeBlock    BlockType = "code-block"
	TypeDivider      BlockType = "divider"
	TypeImage        BlockType = "image"
	TypeVideo        BlockType = "video"
	TypeFile         BlockType = "file"
	TypeTable        BlockType = "table"
	TypeTableRow     BlockType = "table-row"
	TypeTableCell    BlockType = "table-cell"
	TypeLink         BlockType = "link"
	TypeCallout      BlockType = "callout"

	// typeRoot marks the editor's invisible root container. It never appears in serialized content.
	typeRoot BlockType = ""
)

var knownTypes = map[BlockType]bool{
	TypeParagraph: true, TypeHeadingOne: true, TypeHeadingTwo: true, TypeHeadingThree: true,
	TypeHeadingFour: true, TypeHeadingFive: true, TypeHeadingSix: true, TypeBlockQuote: true,
	TypeBulletedList: true, TypeNumberedList: true, TypeListItem: true, TypeTodoList: true,
	TypeTodoItem: true, TypeToggleList: true, TypeToggleItem: true, TypeCodeBlock: true,
	TypeDivider: true, TypeImage: true, TypeVideo: true, TypeFile: true, TypeTable: true,
	TypeTableRow: true, TypeTableCell: true, TypeLink: true, TypeCallout: true,
}

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	return knownTypes[t]
}

// IsVoid reports whether blocks of this type render content but hold no editable text.
func (t BlockType) IsVoid() bool {
	switch t {
	case TypeDivider, TypeImage, TypeVideo, TypeFile:
		return true
	}
	return false
}

// IsMedia reports whether the type is a void block backed by an uploaded file.
func (t BlockType) IsMedia() bool {
	return t == TypeImage || t == TypeVideo || t == TypeFile
}

// IsInline reports whether blocks of this type live among text leaves.
func (t BlockType) IsInline() bool {
	return t == TypeLink
}

// IsList reports whether t is a list container.
func (t BlockType) IsList() bool {
	_, ok := listItems[t]
	return ok
}

// IsListItem reports whether t may only appear inside a list container.
func (t BlockType) IsListItem() bool {
	_, ok := itemLists[t]
	return ok
}

// ItemType returns the item type held by list container t.
func (t BlockType) ItemType() (BlockType, bool) {
	item, ok := listItems[t]
	return item, ok
}

// ListType returns the container type matching list item t.
func (t BlockType) ListType() (BlockType, bool) {
	list, ok := itemLists[t]
	return list, ok
}

var listItems = map[BlockType]BlockType{
	TypeBulletedList: TypeListItem,
	TypeNumberedList: TypeListItem,
	TypeTodoList:     TypeTodoItem,
	TypeToggleList:   TypeToggleItem,
}

// list-item is shared by bulleted and numbered lists; bulleted is the default container.
var itemLists = map[BlockType]BlockType{
	TypeListItem:   TypeBulletedList,
	TypeTodoItem:   TypeTodoList,
	TypeToggleItem: TypeToggleList,
}

// HeadingLevel returns the heading type for level 1..6.
func HeadingLevel(level int) (BlockType, bool) {
	headings := []BlockType{TypeHeadingOne, TypeHeadingTwo, TypeHeadingThree, TypeHeadingFour, TypeHeadingFive, TypeHeadingSix}
	if level < 1 || level > len(headings) {
		return "", false
	}
	return headings[level-1], true
}

// Node is either a *Block or a *Text. The set is closed: no other package can implement it.
type Node interface {
	isNode()
	clone() Node
}

// Text is a leaf carrying a run of characters and the formatting marks applied to it.
type Text struct {
	Text  string
	Marks Mark
}

// Block is a typed container. Attribute fields are only meaningful for the types noted.
type Block struct {
	Type     BlockType
	Children []Node

	URL       string // image, video, file, link
	Alt       string // image
	FileName  string // file
	FileType  string // file
	Checked   bool   // todo-item
	Collapsed bool   // toggle-item
}

func (*Text) isNode()  {}
func (*Block) isNode() {}

func (t *Text) clone() Node {
	c := *t
	return &c
}

func (b *Block) clone() Node {
	c := *b
	c.Children = CloneNodes(b.Children)
	return &c
}

// Len returns the length of the leaf in runes. Offsets in Points are rune offsets.
func (t *Text) Len() int {
	return utf8.RuneCountInString(t.Text)
}

// NewText builds a text leaf.
func NewText(text string, marks ...Mark) *Text {
	var m Mark
	for _, mk := range marks {
		m |= mk
	}
	return &Text{Text: text, Marks: m}
}

// NewBlock builds a block with the given children.
func NewBlock(t BlockType, children ...Node) *Block {
	return &Block{Type: t, Children: children}
}

// NewParagraph builds a paragraph holding a single unformatted leaf.
func NewParagraph(text string) *Block {
	return NewBlock(TypeParagraph, NewText(text))
}

// NewVoid builds a void block with its mandatory empty text child.
func NewVoid(t BlockType, attrs ...Attr) *Block {
	b := &Block{Type: t, Children: []Node{&Text{}}}
	for _, a := range attrs {
		a(b)
	}
	return b
}

// CloneNodes deep-copies a node list.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
	}
	return out
}

// Attr sets a variant-specific attribute on a block.
type Attr func(*Block)

func WithURL(url string) Attr           { return func(b *Block) { b.URL = url } }
func WithAlt(alt string) Attr           { return func(b *Block) { b.Alt = alt } }
func WithFileName(name string) Attr     { return func(b *Block) { b.FileName = name } }
func WithFileType(mime string) Attr     { return func(b *Block) { b.FileType = mime } }
func WithChecked(checked bool) Attr     { return func(b *Block) { b.Checked = checked } }
func WithCollapsed(collapsed bool) Attr { return func(b *Block) { b.Collapsed = collapsed } }

// TextContent concatenates every leaf below n.
func TextContent(n Node) string {
	switch v := n.(type) {
	case *Text:
		return v.Text
	case *Block:
		var s string
		for _, c := range v.Children {
			s += TextContent(c)
		}
		return s
	}
	return ""
}

func isInlineNode(n Node) bool {
	switch v := n.(type) {
	case *Text:
		return true
	case *Block:
		return v.Type.IsInline()
	}
	return false
}
