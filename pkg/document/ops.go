package document

// rangeSpans resolves sel into per-text-block spans, refusing selections that start or
// end inside a void block.
func (t *tx) rangeSpans(sel Selection) ([]blockSpan, error) {
	start, end := sel.Edges()
	if insideVoid(t.root, start.Path) || insideVoid(t.root, end.Path) {
		return nil, ErrVoidTarget
	}
	return spans(t.root, start, end)
}

// SetNodeType changes the type of every block intersecting sel and applies attrs.
// List and item types are routed through WrapInList; list items converted to another
// type are lifted out of their container.
func (e *Editor) SetNodeType(sel Selection, typ BlockType, attrs ...Attr) error {
	if typ.IsList() {
		return e.WrapInList(sel, typ)
	}
	if list, ok := typ.ListType(); ok {
		return e.WrapInList(sel, list)
	}
	if !holdsTextOnly(typ) && typ != TypeBlockQuote && typ != TypeCallout || typ.IsInline() {
		return ErrBadType
	}

	_, err := e.apply(func(t *tx) error {
		return t.setNodeType(sel, typ, attrs)
	})
	return err
}

func (t *tx) setNodeType(sel Selection, typ BlockType, attrs []Attr) error {
	sp, err := t.rangeSpans(sel)
	if err != nil {
		return err
	}
	changed := false
	for _, s := range sp {
		b := s.block
		if b.Type.IsVoid() || b.Type == TypeTableCell {
			continue
		}
		if b.Type.IsListItem() {
			if err := liftItem(t.root, b, typ); err != nil {
				return err
			}
		} else {
			b.Type = typ
		}
		for _, a := range attrs {
			a(b)
		}
		changed = true
	}
	if !changed {
		return errNoop
	}
	return nil
}

// WrapInList converts the blocks intersecting sel into items of listType and wraps them
// in one new container. Blocks already inside a list have their container retyped.
// The caret moves to the start of the first wrapped item.
func (e *Editor) WrapInList(sel Selection, listType BlockType) error {
	item, ok := listType.ItemType()
	if !ok {
		return ErrBadType
	}

	_, err := e.apply(func(t *tx) error {
		return t.wrapInList(sel, listType, item)
	})
	return err
}

func (t *tx) wrapInList(sel Selection, listType, item BlockType) error {
	sp, err := t.rangeSpans(sel)
	if err != nil {
		return err
	}

	var (
		first   *Block
		current *Block // container created by this call
	)
	for _, s := range sp {
		b := s.block
		if b.Type.IsVoid() {
			current = nil
			continue
		}
		parent, idx, _, ok := locate(t.root, b)
		if !ok {
			return ErrInvalidPath
		}
		if first == nil {
			first = b
		}

		switch {
		case parent.Type.IsList():
			parent.Type = listType
			for _, c := range parent.Children {
				if cb, ok := c.(*Block); ok {
					cb.Type = item
				}
			}
			current = nil
		case b.Type == TypeTableCell:
			li := &Block{Type: item, Children: b.Children}
			b.Children = []Node{&Block{Type: listType, Children: []Node{li}}}
			if first == b {
				first = li
			}
			current = nil
		default:
			b.Type = item
			b.Checked, b.Collapsed = false, false
			if current != nil && idx > 0 && parent.Children[idx-1] == current {
				current.Children = append(current.Children, b)
				parent.Children = removeAt(parent.Children, idx)
				continue
			}
			current = &Block{Type: listType, Children: []Node{b}}
			parent.Children[idx] = current
		}
	}
	if first == nil {
		return ErrVoidTarget
	}
	t.caret(first, 0)
	return nil
}

// ToggleMark flips mark across sel. If every covered leaf already carries the mark it
// is removed, otherwise it is added everywhere. On a collapsed selection the mark is
// toggled for the next inserted text instead.
func (e *Editor) ToggleMark(sel Selection, mark Mark) error {
	if sel.IsCollapsed() {
		return e.togglePending(sel.Focus, mark)
	}

	_, err := e.apply(func(t *tx) error {
		sp, err := t.rangeSpans(sel)
		if err != nil {
			return err
		}
		var leaves []leafRef
		for i := len(sp) - 1; i >= 0; i-- {
			s := sp[i]
			if s.block.Type.IsVoid() || s.from >= s.to {
				continue
			}
			leaves = append(leaves, leavesIn(s.block, s.from, s.to)...)
		}
		if len(leaves) == 0 {
			return errNoop
		}
		all := true
		for _, l := range leaves {
			if !l.text.Marks.Has(mark) {
				all = false
				break
			}
		}
		for _, l := range leaves {
			if all {
				l.text.Marks = l.text.Marks.Without(mark)
			} else {
				l.text.Marks = l.text.Marks.With(mark)
			}
		}
		return nil
	})
	return err
}

func (e *Editor) togglePending(p Point, mark Mark) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := &tx{root: e.root}
	b, _, off, err := t.point(p)
	if err != nil {
		return err
	}
	if b.Type.IsVoid() {
		return ErrVoidTarget
	}
	m := marksAt(b, off)
	if e.pending != nil {
		m = *e.pending
	}
	if m.Has(mark) {
		m = m.Without(mark)
	} else {
		m = m.With(mark)
	}
	e.pending = &m
	return nil
}

// PendingMarks returns the marks the next inserted text will carry, if toggled.
func (e *Editor) PendingMarks() (Mark, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return 0, false
	}
	return *e.pending, true
}

// SetLink wraps the text covered by sel in a link to url. An empty url removes every
// link touching sel. On a collapsed selection inside a link the link target is updated.
func (e *Editor) SetLink(sel Selection, url string) error {
	_, err := e.apply(func(t *tx) error {
		sp, err := t.rangeSpans(sel)
		if err != nil {
			return err
		}
		changed := false
		for i := len(sp) - 1; i >= 0; i-- {
			s := sp[i]
			if s.block.Type.IsVoid() {
				continue
			}
			if url == "" {
				changed = unwrapLinks(s.block, s.from, s.to, true) || changed
				continue
			}
			if s.from == s.to {
				if sel.IsCollapsed() {
					changed = retargetLink(s.block, s.from, url) || changed
				}
				continue
			}
			unwrapLinks(s.block, s.from, s.to, false)
			lo := splitChildrenAt(s.block, s.from)
			hi := splitChildrenAt(s.block, s.to)
			link := &Block{Type: TypeLink, URL: url, Children: append([]Node(nil), s.block.Children[lo:hi]...)}
			out := append([]Node(nil), s.block.Children[:lo]...)
			out = append(out, link)
			s.block.Children = append(out, s.block.Children[hi:]...)
			changed = true
		}
		if !changed {
			return errNoop
		}
		return nil
	})
	return err
}

// Unlink removes links under sel.
func (e *Editor) Unlink(sel Selection) error {
	return e.SetLink(sel, "")
}

// unwrapLinks replaces direct link children overlapping [from, to) with their content.
// With touching set, links that merely end or start at the range also count.
func unwrapLinks(b *Block, from, to int, touching bool) bool {
	changed := false
	pos := 0
	var out []Node
	for _, c := range b.Children {
		l := runeLen(TextContent(c))
		overlap := pos < to && pos+l > from
		if touching {
			overlap = pos <= to && pos+l >= from
		}
		if cb, ok := c.(*Block); ok && cb.Type == TypeLink && overlap {
			out = append(out, cb.Children...)
			changed = true
		} else {
			out = append(out, c)
		}
		pos += l
	}
	b.Children = out
	return changed
}

func retargetLink(b *Block, off int, url string) bool {
	pos := 0
	for _, c := range b.Children {
		l := runeLen(TextContent(c))
		if cb, ok := c.(*Block); ok && cb.Type == TypeLink && pos <= off && off <= pos+l {
			cb.URL = url
			return true
		}
		pos += l
	}
	return false
}

// InsertVoid inserts void block node at the selection and returns its path. An empty
// paragraph under the caret is replaced; otherwise the node goes after the caret's
// block, outside any list or table. A trailing paragraph keeps the document editable
// past the node and the caret moves there.
func (e *Editor) InsertVoid(node *Block) (Path, error) {
	if node == nil || !node.Type.IsVoid() {
		return nil, ErrBadType
	}
	n := node.clone().(*Block)
	n.Children = []Node{&Text{}}

	return e.apply(func(t *tx) error {
		t.target = n
		var b *Block
		if t.sel != nil {
			start, _ := t.sel.Edges()
			if tb, _, err := textBlockOf(t.root, start.Path); err == nil {
				b = tb
			}
		}

		switch {
		case b == nil:
			t.root.Children = append(t.root.Children, n)
		case b.Type == TypeParagraph && TextContent(b) == "" && outerBlock(t.root, b) == b:
			if !replaceNode(t.root, b, n) {
				return ErrInvalidPath
			}
		default:
			if !insertAfter(t.root, outerBlock(t.root, b), n) {
				return ErrInvalidPath
			}
		}

		parent, idx, _, ok := locate(t.root, n)
		if !ok {
			return ErrInvalidPath
		}
		if idx == len(parent.Children)-1 {
			parent.Children = append(parent.Children, NewParagraph(""))
		}
		t.caretAfter(n)
		return nil
	})
}

// Reconcile rewrites the URL of the first kind block whose URL is localRef. Nothing
// else about the block, its position or the selection changes. It reports whether a
// block was found.
func (e *Editor) Reconcile(kind BlockType, localRef, url string) bool {
	found := false
	_, _ = e.apply(func(t *tx) error {
		b, _, ok := findBlock(t.root, func(b *Block) bool { return b.Type == kind && b.URL == localRef })
		if !ok {
			return errNoop
		}
		b.URL = url
		found = true
		return nil
	})
	return found
}

// RemoveVoid deletes the first kind block whose URL is ref. It reports whether a block
// was removed.
func (e *Editor) RemoveVoid(kind BlockType, ref string) bool {
	found := false
	_, _ = e.apply(func(t *tx) error {
		b, _, ok := findBlock(t.root, func(b *Block) bool { return b.Type == kind && b.URL == ref })
		if !ok || !removeNode(t.root, b) {
			return errNoop
		}
		found = true
		return nil
	})
	return found
}

// SetChecked sets the checked state of todo items intersecting sel.
func (e *Editor) SetChecked(sel Selection, checked bool) error {
	return e.setItemFlag(sel, TypeTodoItem, func(b *Block) { b.Checked = checked })
}

// SetCollapsed sets the collapsed state of toggle items intersecting sel.
func (e *Editor) SetCollapsed(sel Selection, collapsed bool) error {
	return e.setItemFlag(sel, TypeToggleItem, func(b *Block) { b.Collapsed = collapsed })
}

func (e *Editor) setItemFlag(sel Selection, typ BlockType, set func(*Block)) error {
	_, err := e.apply(func(t *tx) error {
		sp, err := t.rangeSpans(sel)
		if err != nil {
			return err
		}
		changed := false
		for _, s := range sp {
			if s.block.Type == typ {
				set(s.block)
				changed = true
			}
		}
		if !changed {
			return errNoop
		}
		return nil
	})
	return err
}
