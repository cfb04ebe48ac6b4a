package document

import (
	"errors"
	"unicode/utf8"
)

var (
	ErrInvalidPath = errors.New("document: path does not address a node")
	ErrNotText     = errors.New("document: point is not inside a text leaf")
	ErrVoidTarget  = errors.New("document: operation targets a void block")
	ErrNoSelection = errors.New("document: editor has no selection")
	ErrBadType     = errors.New("document: block type not allowed here")

	// errNoop aborts a transaction without reporting failure to the caller.
	errNoop = errors.New("document: nothing to change")
)

// chain returns every node along p, starting with root and ending with the addressed node.
func chain(root *Block, p Path) ([]Node, error) {
	out := make([]Node, 0, len(p)+1)
	var cur Node = root
	out = append(out, cur)
	for _, idx := range p {
		b, ok := cur.(*Block)
		if !ok || idx < 0 || idx >= len(b.Children) {
			return nil, ErrInvalidPath
		}
		cur = b.Children[idx]
		out = append(out, cur)
	}
	return out, nil
}

func nodeAt(root *Block, p Path) (Node, error) {
	nodes, err := chain(root, p)
	if err != nil {
		return nil, err
	}
	return nodes[len(nodes)-1], nil
}

func textAt(root *Block, p Path) (*Text, error) {
	n, err := nodeAt(root, p)
	if err != nil {
		return nil, err
	}
	t, ok := n.(*Text)
	if !ok {
		return nil, ErrNotText
	}
	return t, nil
}

// textBlockOf returns the lowest non-inline block containing the node at p, and its path.
func textBlockOf(root *Block, p Path) (*Block, Path, error) {
	nodes, err := chain(root, p)
	if err != nil {
		return nil, nil, err
	}
	for i := len(nodes) - 1; i >= 1; i-- {
		b, ok := nodes[i].(*Block)
		if !ok || b.Type.IsInline() {
			continue
		}
		return b, p[:i].Copy(), nil
	}
	return nil, nil, ErrInvalidPath
}

// insideVoid reports whether any node along p is a void block.
func insideVoid(root *Block, p Path) bool {
	nodes, err := chain(root, p)
	if err != nil {
		return false
	}
	for _, n := range nodes {
		if b, ok := n.(*Block); ok && b.Type.IsVoid() {
			return true
		}
	}
	return false
}

// locate finds the parent of target and its index by identity.
func locate(root *Block, target Node) (*Block, int, Path, bool) {
	var (
		parent *Block
		index  int
		path   Path
		found  bool
	)
	var walk func(b *Block, base Path)
	walk = func(b *Block, base Path) {
		for i, c := range b.Children {
			if found {
				return
			}
			if c == target {
				parent, index, path, found = b, i, base.Child(i), true
				return
			}
			if cb, ok := c.(*Block); ok {
				walk(cb, base.Child(i))
			}
		}
	}
	walk(root, Path{})
	return parent, index, path, found
}

// leafRef is a text leaf seen from its text block.
type leafRef struct {
	text   *Text
	parent *Block
	index  int
	path   Path
	start  int // rune offset of the leaf within its text block
}

func (l leafRef) end() int { return l.start + l.text.Len() }

// blockLeaves lists the leaves of a text block in order, descending into inline blocks.
func blockLeaves(b *Block, base Path) []leafRef {
	var out []leafRef
	off := 0
	var walk func(parent *Block, at Path)
	walk = func(parent *Block, at Path) {
		for i, c := range parent.Children {
			switch v := c.(type) {
			case *Text:
				out = append(out, leafRef{text: v, parent: parent, index: i, path: at.Child(i), start: off})
				off += v.Len()
			case *Block:
				if v.Type.IsInline() {
					walk(v, at.Child(i))
				}
			}
		}
	}
	walk(b, base)
	return out
}

func blockLen(b *Block) int {
	leaves := blockLeaves(b, Path{})
	if len(leaves) == 0 {
		return 0
	}
	return leaves[len(leaves)-1].end()
}

// offsetInBlock converts a point into a rune offset from the start of its text block.
func offsetInBlock(b *Block, base Path, p Point) (int, error) {
	for _, l := range blockLeaves(b, base) {
		if l.path.Equal(p.Path) {
			if p.Offset < 0 || p.Offset > l.text.Len() {
				return 0, ErrInvalidPath
			}
			return l.start + p.Offset, nil
		}
	}
	return 0, ErrNotText
}

// pointInBlock converts a text block offset back into a point. Offsets on a leaf boundary
// resolve to the end of the earlier leaf.
func pointInBlock(b *Block, base Path, off int) Point {
	leaves := blockLeaves(b, base)
	if len(leaves) == 0 {
		return Point{Path: base.Child(0)}
	}
	if off < 0 {
		off = 0
	}
	for _, l := range leaves {
		if off <= l.end() {
			return Point{Path: l.path, Offset: off - l.start}
		}
	}
	last := leaves[len(leaves)-1]
	return Point{Path: last.path, Offset: last.text.Len()}
}

// textBlockRef is a block whose children are text leaves and inline blocks.
type textBlockRef struct {
	block *Block
	path  Path
}

// textBlocks lists every text block in document order. Void blocks are included so a
// selection can land on them.
func textBlocks(root *Block) []textBlockRef {
	var out []textBlockRef
	var walk func(b *Block, base Path)
	walk = func(b *Block, base Path) {
		hasInline := false
		for _, c := range b.Children {
			if isInlineNode(c) {
				hasInline = true
				break
			}
		}
		if b != root && hasInline {
			out = append(out, textBlockRef{block: b, path: base})
			return
		}
		for i, c := range b.Children {
			if cb, ok := c.(*Block); ok && !cb.Type.IsInline() {
				walk(cb, base.Child(i))
			}
		}
	}
	walk(root, Path{})
	return out
}

// blockSpan is the part of a text block covered by a range.
type blockSpan struct {
	textBlockRef
	from, to int
}

// spans splits the range [start, end] into per-text-block offsets.
func spans(root *Block, start, end Point) ([]blockSpan, error) {
	sb, sPath, err := textBlockOf(root, start.Path)
	if err != nil {
		return nil, err
	}
	eb, ePath, err := textBlockOf(root, end.Path)
	if err != nil {
		return nil, err
	}
	sOff, err := offsetInBlock(sb, sPath, start)
	if err != nil {
		return nil, err
	}
	eOff, err := offsetInBlock(eb, ePath, end)
	if err != nil {
		return nil, err
	}

	var out []blockSpan
	in := false
	for _, tb := range textBlocks(root) {
		if tb.block == sb {
			in = true
		}
		if !in {
			continue
		}
		span := blockSpan{textBlockRef: tb, from: 0, to: blockLen(tb.block)}
		if tb.block == sb {
			span.from = sOff
		}
		if tb.block == eb {
			span.to = eOff
			out = append(out, span)
			break
		}
		out = append(out, span)
	}
	if !in || len(out) == 0 {
		return nil, ErrInvalidPath
	}
	return out, nil
}

// splitRunes splits s at rune index i.
func splitRunes(s string, i int) (string, string) {
	if i <= 0 {
		return "", s
	}
	n := 0
	for byteIdx := range s {
		if n == i {
			return s[:byteIdx], s[byteIdx:]
		}
		n++
	}
	return s, ""
}

// sliceRunes returns the runes of s in [from, to).
func sliceRunes(s string, from, to int) string {
	_, rest := splitRunes(s, from)
	mid, _ := splitRunes(rest, to-from)
	return mid
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// splitChildrenAt splits the direct children of a text block so that a child boundary
// exists at block offset off. Inline blocks straddling the offset are split too.
// It returns the index of the first child at or after off.
func splitChildrenAt(b *Block, off int) int {
	pos := 0
	for i := 0; i < len(b.Children); i++ {
		c := b.Children[i]
		l := runeLen(TextContent(c))
		if off == pos {
			return i
		}
		if off < pos+l {
			local := off - pos
			switch v := c.(type) {
			case *Text:
				left, right := splitRunes(v.Text, local)
				b.Children = insertNodes(b.Children, i+1, &Text{Text: right, Marks: v.Marks})
				v.Text = left
			case *Block:
				k := splitChildrenAt(v, local)
				tail := &Block{Type: v.Type, URL: v.URL, Children: append([]Node(nil), v.Children[k:]...)}
				v.Children = v.Children[:k]
				b.Children = insertNodes(b.Children, i+1, tail)
			}
			return i + 1
		}
		pos += l
	}
	return len(b.Children)
}

func insertNodes(list []Node, at int, nodes ...Node) []Node {
	out := make([]Node, 0, len(list)+len(nodes))
	out = append(out, list[:at]...)
	out = append(out, nodes...)
	out = append(out, list[at:]...)
	return out
}

func removeAt(list []Node, at int) []Node {
	out := make([]Node, 0, len(list)-1)
	out = append(out, list[:at]...)
	return append(out, list[at+1:]...)
}

// splitLeavesAt splits the leaf straddling block offset off so that a leaf boundary
// exists there. Inline blocks are left intact.
func splitLeavesAt(b *Block, off int) {
	for _, l := range blockLeaves(b, nil) {
		if off > l.start && off < l.end() {
			left, right := splitRunes(l.text.Text, off-l.start)
			l.text.Text = left
			l.parent.Children = insertNodes(l.parent.Children, l.index+1, &Text{Text: right, Marks: l.text.Marks})
			return
		}
	}
}

// leavesIn splits at both ends and returns the non-empty leaves covering [from, to).
func leavesIn(b *Block, from, to int) []leafRef {
	splitLeavesAt(b, to)
	splitLeavesAt(b, from)
	var out []leafRef
	for _, l := range blockLeaves(b, nil) {
		if l.start >= from && l.end() <= to && l.text.Len() > 0 {
			out = append(out, l)
		}
	}
	return out
}

// deleteInBlock removes the text in [from, to) of a text block.
func deleteInBlock(b *Block, from, to int) {
	if from >= to {
		return
	}
	leaves := leavesIn(b, from, to)
	for i := len(leaves) - 1; i >= 0; i-- {
		l := leaves[i]
		l.parent.Children = removeAt(l.parent.Children, l.index)
	}
}

// insertTextAt inserts s at block offset off. A nil marks extends the leaf at off;
// otherwise the text gets its own leaf with those marks.
func insertTextAt(b *Block, off int, s string, marks *Mark) {
	leaves := blockLeaves(b, nil)
	if len(leaves) == 0 {
		var m Mark
		if marks != nil {
			m = *marks
		}
		b.Children = append(b.Children, &Text{Text: s, Marks: m})
		return
	}
	l := leaves[len(leaves)-1]
	for _, cand := range leaves {
		if off <= cand.end() {
			l = cand
			break
		}
	}
	local := off - l.start
	if local < 0 {
		local = 0
	}
	left, right := splitRunes(l.text.Text, local)
	if marks == nil || *marks == l.text.Marks {
		l.text.Text = left + s + right
		return
	}
	l.text.Text = left
	nodes := []Node{&Text{Text: s, Marks: *marks}}
	if right != "" {
		nodes = append(nodes, &Text{Text: right, Marks: l.text.Marks})
	}
	l.parent.Children = insertNodes(l.parent.Children, l.index+1, nodes...)
}

// marksAt returns the marks of the leaf holding block offset off.
func marksAt(b *Block, off int) Mark {
	leaves := blockLeaves(b, nil)
	for _, l := range leaves {
		if off <= l.end() {
			return l.text.Marks
		}
	}
	if len(leaves) > 0 {
		return leaves[len(leaves)-1].text.Marks
	}
	return 0
}

func removeNode(root *Block, n Node) bool {
	parent, idx, _, ok := locate(root, n)
	if !ok {
		return false
	}
	parent.Children = removeAt(parent.Children, idx)
	return true
}

func replaceNode(root *Block, old Node, repl ...Node) bool {
	parent, idx, _, ok := locate(root, old)
	if !ok {
		return false
	}
	out := make([]Node, 0, len(parent.Children)+len(repl))
	out = append(out, parent.Children[:idx]...)
	out = append(out, repl...)
	parent.Children = append(out, parent.Children[idx+1:]...)
	return true
}

func insertAfter(root *Block, ref Node, nodes ...Node) bool {
	parent, idx, _, ok := locate(root, ref)
	if !ok {
		return false
	}
	parent.Children = insertNodes(parent.Children, idx+1, nodes...)
	return true
}

// outerBlock climbs from b through list, table and row containers and returns the
// outermost block that may have siblings inserted next to it.
func outerBlock(root *Block, b *Block) *Block {
	cur := b
	for {
		parent, _, _, ok := locate(root, cur)
		if !ok || parent == root || !isContainer(parent.Type) {
			return cur
		}
		cur = parent
	}
}

// liftItem turns list item b into a block of type to, splitting its container around it.
func liftItem(root *Block, b *Block, to BlockType) error {
	list, idx, _, ok := locate(root, b)
	if !ok {
		return ErrInvalidPath
	}
	b.Type, b.Checked, b.Collapsed = to, false, false
	if !list.Type.IsList() {
		return nil
	}
	before := append([]Node(nil), list.Children[:idx]...)
	after := append([]Node(nil), list.Children[idx+1:]...)

	var repl []Node
	if len(before) > 0 {
		repl = append(repl, &Block{Type: list.Type, Children: before})
	}
	repl = append(repl, b)
	if len(after) > 0 {
		repl = append(repl, &Block{Type: list.Type, Children: after})
	}
	if !replaceNode(root, list, repl...) {
		return ErrInvalidPath
	}
	return nil
}

// findBlock returns the first block in document order matching fn.
func findBlock(root *Block, fn func(*Block) bool) (*Block, Path, bool) {
	var (
		found *Block
		path  Path
	)
	var walk func(b *Block, base Path) bool
	walk = func(b *Block, base Path) bool {
		for i, c := range b.Children {
			cb, ok := c.(*Block)
			if !ok {
				continue
			}
			if fn(cb) {
				found, path = cb, base.Child(i)
				return true
			}
			if walk(cb, base.Child(i)) {
				return true
			}
		}
		return false
	}
	walk(root, Path{})
	return found, path, found != nil
}
