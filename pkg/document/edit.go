package document

// deleteRange removes the content between start and end, merging the last touched text
// block into the first. It returns the block and offset where the caret belongs.
func (t *tx) deleteRange(start, end Point) (*Block, int, error) {
	sp, err := spans(t.root, start, end)
	if err != nil {
		return nil, 0, err
	}

	var kept []blockSpan
	for _, s := range sp {
		if !s.block.Type.IsVoid() {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		p := NewParagraph("")
		replaceNode(t.root, sp[0].block, p)
		for _, s := range sp[1:] {
			removeNode(t.root, s.block)
		}
		return p, 0, nil
	}
	for _, s := range sp {
		if s.block.Type.IsVoid() {
			removeNode(t.root, s.block)
		}
	}

	first, last := kept[0], kept[len(kept)-1]
	if first.block == last.block {
		deleteInBlock(first.block, first.from, first.to)
		return first.block, first.from, nil
	}
	deleteInBlock(first.block, first.from, first.to)
	deleteInBlock(last.block, last.from, last.to)
	for _, s := range kept[1 : len(kept)-1] {
		removeNode(t.root, s.block)
	}
	first.block.Children = append(first.block.Children, last.block.Children...)
	removeNode(t.root, last.block)
	return first.block, first.from, nil
}

// collapse deletes a ranged selection and returns the caret position; a collapsed
// selection is returned as is.
func (t *tx) collapse() (*Block, int, error) {
	if t.sel == nil {
		return nil, 0, ErrNoSelection
	}
	if t.sel.IsCollapsed() {
		return t.cursor()
	}
	start, end := t.sel.Edges()
	return t.deleteRange(start, end)
}

// InsertText inserts s at the selection, replacing a ranged selection first. Marks
// toggled on a collapsed selection apply to the inserted text.
func (e *Editor) InsertText(s string) error {
	if s == "" {
		return nil
	}
	_, err := e.apply(func(t *tx) error {
		b, off, err := t.collapse()
		if err != nil {
			return err
		}
		if b.Type.IsVoid() {
			return ErrVoidTarget
		}
		insertTextAt(b, off, s, e.pending)
		t.caret(b, off+runeLen(s))
		return nil
	})
	return err
}

// DeleteBackward removes one character before a collapsed caret, or the selected
// range. At the start of a block it first resets the block to a paragraph, lifting
// list items out of their list, and otherwise merges into the previous block.
func (e *Editor) DeleteBackward() error {
	_, err := e.apply(func(t *tx) error {
		if t.sel == nil {
			return ErrNoSelection
		}
		if !t.sel.IsCollapsed() {
			b, off, err := t.collapse()
			if err != nil {
				return err
			}
			t.caret(b, off)
			return nil
		}

		b, off, err := t.cursor()
		if err != nil {
			return err
		}
		switch {
		case b.Type.IsVoid():
			prev := previousTextBlock(t.root, b)
			if !removeNode(t.root, b) {
				return ErrInvalidPath
			}
			if prev != nil {
				t.caret(prev, blockLen(prev))
			}
			return nil
		case off > 0:
			deleteInBlock(b, off-1, off)
			t.caret(b, off-1)
			return nil
		case b.Type.IsListItem():
			return liftItem(t.root, b, TypeParagraph)
		case b.Type == TypeTableCell:
			return errNoop
		case b.Type != TypeParagraph:
			b.Type = TypeParagraph
			return nil
		}

		prev := previousTextBlock(t.root, b)
		if prev == nil || prev.Type == TypeTableCell {
			return errNoop
		}
		if prev.Type.IsVoid() {
			removeNode(t.root, prev)
			return nil
		}
		n := blockLen(prev)
		prev.Children = append(prev.Children, b.Children...)
		removeNode(t.root, b)
		t.caret(prev, n)
		return nil
	})
	return err
}

func previousTextBlock(root *Block, b *Block) *Block {
	var prev *Block
	for _, tb := range textBlocks(root) {
		if tb.block == b {
			return prev
		}
		prev = tb.block
	}
	return nil
}

// DeleteBeforeCursor removes n characters before a collapsed caret within its block.
func (e *Editor) DeleteBeforeCursor(n int) error {
	_, err := e.apply(func(t *tx) error {
		if t.sel == nil || !t.sel.IsCollapsed() {
			return ErrNoSelection
		}
		b, off, err := t.cursor()
		if err != nil {
			return err
		}
		if b.Type.IsVoid() {
			return ErrVoidTarget
		}
		if n > off {
			n = off
		}
		if n <= 0 {
			return errNoop
		}
		deleteInBlock(b, off-n, off)
		t.caret(b, off-n)
		return nil
	})
	return err
}

// ReplacePrefix deletes the n runes before the caret and converts the caret's block to
// typ in the same transaction. It reports false and leaves the document untouched when
// the block cannot take typ.
func (e *Editor) ReplacePrefix(n int, typ BlockType) (bool, error) {
	if list, ok := typ.ListType(); ok {
		typ = list
	}
	item, isList := typ.ItemType()
	if !isList && (!holdsTextOnly(typ) && typ != TypeBlockQuote && typ != TypeCallout || typ.IsInline()) {
		return false, ErrBadType
	}

	applied := false
	_, err := e.apply(func(t *tx) error {
		if t.sel == nil || !t.sel.IsCollapsed() {
			return ErrNoSelection
		}
		b, off, err := t.cursor()
		if err != nil {
			return err
		}
		if b.Type.IsVoid() || n <= 0 || n > off {
			return errNoop
		}
		deleteInBlock(b, off-n, off)
		t.caret(b, off-n)

		_, _, path, ok := locate(t.root, b)
		if !ok {
			return ErrInvalidPath
		}
		sel := Caret(pointInBlock(b, path, off-n))
		if isList {
			err = t.wrapInList(sel, typ, item)
		} else {
			err = t.setNodeType(sel, typ, nil)
		}
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// InsertBreak splits the caret's block in two. Code blocks and table cells take a
// line break instead, an empty list item leaves its list and headings continue as a
// paragraph.
func (e *Editor) InsertBreak() error {
	_, err := e.apply(func(t *tx) error {
		b, off, err := t.collapse()
		if err != nil {
			return err
		}

		switch {
		case b.Type.IsVoid():
			p := NewParagraph("")
			if !insertAfter(t.root, outerBlock(t.root, b), p) {
				return ErrInvalidPath
			}
			t.caret(p, 0)
			return nil
		case b.Type == TypeCodeBlock || b.Type == TypeTableCell:
			insertTextAt(b, off, "\n", nil)
			t.caret(b, off+1)
			return nil
		case b.Type.IsListItem() && TextContent(b) == "":
			if err := liftItem(t.root, b, TypeParagraph); err != nil {
				return err
			}
			t.caret(b, 0)
			return nil
		}

		i := splitChildrenAt(b, off)
		tail := &Block{Type: b.Type, Children: append([]Node(nil), b.Children[i:]...)}
		b.Children = b.Children[:i]
		if _, ok := headingLevel(b.Type); ok || b.Type == TypeBlockQuote {
			tail.Type = TypeParagraph
		}
		if !insertAfter(t.root, b, tail) {
			return ErrInvalidPath
		}
		t.caret(tail, 0)
		return nil
	})
	return err
}

func headingLevel(t BlockType) (int, bool) {
	for level := 1; level <= 6; level++ {
		if h, _ := HeadingLevel(level); h == t {
			return level, true
		}
	}
	return 0, false
}

// InsertFragment inserts pasted content at the selection. Inline content, or a single
// paragraph, is spliced into the caret's block. Block content splits the caret's block
// and lands between the halves, or after the enclosing list or table.
func (e *Editor) InsertFragment(nodes []Node) error {
	frag := Normalize(nodes)
	if len(frag) == 0 {
		return nil
	}
	if len(frag) == 1 {
		if p, ok := frag[0].(*Block); ok && p.Type == TypeParagraph {
			frag = p.Children
		}
	}

	_, err := e.apply(func(t *tx) error {
		b, off, err := t.collapse()
		if err != nil {
			return err
		}

		if !hasBlock(frag) && !b.Type.IsVoid() {
			if b.Type == TypeCodeBlock {
				s := ""
				for _, n := range frag {
					s += TextContent(n)
				}
				insertTextAt(b, off, s, nil)
				t.caret(b, off+runeLen(s))
				return nil
			}
			i := splitChildrenAt(b, off)
			b.Children = insertNodes(b.Children, i, frag...)
			n := 0
			for _, c := range frag {
				n += runeLen(TextContent(c))
			}
			t.caret(b, off+n)
			return nil
		}

		blocks := wrapInlineRuns(frag)
		outer := outerBlock(t.root, b)
		switch {
		case b.Type.IsVoid() || outer != b:
			if !insertAfter(t.root, outer, blocks...) {
				return ErrInvalidPath
			}
		case TextContent(b) == "" && b.Type == TypeParagraph:
			if !replaceNode(t.root, b, blocks...) {
				return ErrInvalidPath
			}
		default:
			i := splitChildrenAt(b, off)
			rest := append([]Node(nil), b.Children[i:]...)
			b.Children = b.Children[:i]
			ins := append([]Node(nil), blocks...)
			if len(rest) > 0 && runeLen(TextContent(&Block{Children: rest})) > 0 {
				ins = append(ins, &Block{Type: b.Type, Children: rest})
			}
			if !insertAfter(t.root, b, ins...) {
				return ErrInvalidPath
			}
		}

		tmp := &Block{Type: typeRoot, Children: blocks}
		tbs := textBlocks(tmp)
		if len(tbs) == 0 {
			return nil
		}
		lastTB := tbs[len(tbs)-1].block
		if lastTB.Type.IsVoid() {
			t.caretAfter(lastTB)
		} else {
			t.caret(lastTB, blockLen(lastTB))
		}
		return nil
	})
	return err
}
