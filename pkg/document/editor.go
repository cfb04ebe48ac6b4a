package document

import (
	"errors"
	"fmt"
	"sync"
)

// Change is delivered to listeners after every committed transaction.
type Change struct {
	Version   uint64
	Children  []Node
	Selection *Selection
}

// Editor owns one document and its selection. Every mutation runs as a transaction:
// the tree is snapshotted, the operation applied, the result normalized and the
// selection re-anchored before the lock is released. A failing operation leaves the
// document exactly as it was.
type Editor struct {
	mu        sync.Mutex
	root      *Block
	sel       *Selection
	pending   *Mark
	version   uint64
	listeners map[int]func(Change)
	nextID    int
}

// NewEditor builds an editor over a normalized copy of nodes with the caret at the start.
func NewEditor(nodes ...Node) *Editor {
	e := &Editor{listeners: make(map[int]func(Change))}
	e.root = &Block{Type: typeRoot, Children: CloneNodes(nodes)}
	normalizeRoot(e.root)
	e.sel = firstCaret(e.root)
	return e
}

// anchor pins a selection point to a block pointer, which survives structural edits
// that would invalidate a path.
type anchor struct {
	block  *Block
	offset int
	after  bool // resolve to the start of the next text block
}

type tx struct {
	root *Block
	sel  *Selection

	kept   [2]*anchor // current selection, captured before fn runs
	anchor *anchor
	focus  *anchor
	target Node
}

func (t *tx) caret(b *Block, off int) {
	t.anchor = &anchor{block: b, offset: off}
	t.focus = nil
}

func (t *tx) caretAfter(b *Block) {
	t.anchor = &anchor{block: b, after: true}
	t.focus = nil
}

// point returns the text block, its path and the block offset of p.
func (t *tx) point(p Point) (*Block, Path, int, error) {
	b, path, err := textBlockOf(t.root, p.Path)
	if err != nil {
		return nil, nil, 0, err
	}
	off, err := offsetInBlock(b, path, p)
	if err != nil {
		return nil, nil, 0, err
	}
	return b, path, off, nil
}

// cursor returns the text block and offset of the collapsed current selection.
func (t *tx) cursor() (*Block, int, error) {
	if t.sel == nil {
		return nil, 0, ErrNoSelection
	}
	b, _, off, err := t.point(t.sel.Focus)
	return b, off, err
}

func (t *tx) capture() {
	if t.sel == nil {
		return
	}
	for i, p := range []Point{t.sel.Anchor, t.sel.Focus} {
		if b, _, off, err := t.point(p); err == nil {
			t.kept[i] = &anchor{block: b, offset: off}
		}
	}
}

func (t *tx) resolve() *Selection {
	a, f := t.kept[0], t.kept[1]
	if t.anchor != nil {
		a, f = t.anchor, t.focus
		if f == nil {
			f = a
		}
	}
	if a == nil || f == nil {
		return nil
	}
	ap, ok := resolveAnchor(t.root, a)
	if !ok {
		return nil
	}
	fp, ok := resolveAnchor(t.root, f)
	if !ok {
		return nil
	}
	s := Range(ap, fp)
	return &s
}

func resolveAnchor(root *Block, a *anchor) (Point, bool) {
	_, _, path, ok := locate(root, a.block)
	if !ok {
		return Point{}, false
	}
	if a.after {
		tbs := textBlocks(root)
		for i, tb := range tbs {
			if tb.block == a.block && i+1 < len(tbs) {
				return pointInBlock(tbs[i+1].block, tbs[i+1].path, 0), true
			}
		}
		p := pointInBlock(a.block, path, blockLen(a.block))
		return p, validPoint(root, p)
	}
	off := a.offset
	if n := blockLen(a.block); off > n {
		off = n
	}
	p := pointInBlock(a.block, path, off)
	return p, validPoint(root, p)
}

func validPoint(root *Block, p Point) bool {
	t, err := textAt(root, p.Path)
	return err == nil && p.Offset >= 0 && p.Offset <= t.Len()
}

func firstCaret(root *Block) *Selection {
	tbs := textBlocks(root)
	if len(tbs) == 0 {
		return nil
	}
	s := Caret(pointInBlock(tbs[0].block, tbs[0].path, 0))
	return &s
}

// apply runs fn as one transaction. The returned path addresses tx.target after
// normalization, when fn set one.
func (e *Editor) apply(fn func(t *tx) error) (Path, error) {
	e.mu.Lock()

	snapshot := e.root.clone().(*Block)
	var prevSel *Selection
	if e.sel != nil {
		s := e.sel.copy()
		prevSel = &s
	}

	t := &tx{root: e.root, sel: prevSel}
	t.capture()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("document: operation panicked: %v", r)
			}
		}()
		return fn(t)
	}()
	if err != nil {
		e.root = snapshot
		e.sel = prevSel
		e.mu.Unlock()
		if errors.Is(err, errNoop) {
			return nil, nil
		}
		return nil, err
	}

	normalizeRoot(e.root)
	if sel := t.resolve(); sel != nil {
		e.sel = sel
	} else if prevSel == nil || !validPoint(e.root, prevSel.Anchor) || !validPoint(e.root, prevSel.Focus) {
		e.sel = firstCaret(e.root)
	}
	e.pending = nil
	e.version++

	var target Path
	if t.target != nil {
		if _, _, p, ok := locate(e.root, t.target); ok {
			target = p
		}
	}

	change := e.changeLocked()
	listeners := make([]func(Change), 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
	return target, nil
}

func (e *Editor) changeLocked() Change {
	c := Change{Version: e.version, Children: CloneNodes(e.root.Children)}
	if e.sel != nil {
		s := e.sel.copy()
		c.Selection = &s
	}
	return c
}

// OnChange registers fn to receive every committed change. Listeners run outside the
// editor lock and may call back into the editor. The returned func unregisters fn.
func (e *Editor) OnChange(fn func(Change)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// Children returns a deep copy of the document content.
func (e *Editor) Children() []Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CloneNodes(e.root.Children)
}

// Snapshot returns the content, selection and version read under one lock.
func (e *Editor) Snapshot() Change {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changeLocked()
}

func (e *Editor) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Selection returns the current selection, if any.
func (e *Editor) Selection() (Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sel == nil {
		return Selection{}, false
	}
	return e.sel.copy(), true
}

// Select replaces the selection. Both points must address text leaves.
func (e *Editor) Select(sel Selection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !validPoint(e.root, sel.Anchor) || !validPoint(e.root, sel.Focus) {
		return ErrInvalidPath
	}
	s := sel.copy()
	e.sel = &s
	e.pending = nil
	return nil
}

// Load replaces the whole document and puts the caret at the start.
func (e *Editor) Load(nodes []Node) {
	_, _ = e.apply(func(t *tx) error {
		t.root.Children = CloneNodes(nodes)
		normalizeRoot(t.root)
		tbs := textBlocks(t.root)
		if len(tbs) > 0 {
			t.caret(tbs[0].block, 0)
		}
		return nil
	})
}

// TextBeforeCursor returns the text between the start of the caret's block and the
// caret. It reports false when there is no collapsed selection.
func (e *Editor) TextBeforeCursor() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sel == nil || !e.sel.IsCollapsed() {
		return "", false
	}
	t := &tx{root: e.root, sel: e.sel}
	b, off, err := t.cursor()
	if err != nil {
		return "", false
	}
	return sliceRunes(TextContent(b), 0, off), true
}

// CurrentBlockType returns the type of the text block holding the selection focus.
func (e *Editor) CurrentBlockType() (BlockType, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sel == nil {
		return "", false
	}
	b, _, err := textBlockOf(e.root, e.sel.Focus.Path)
	if err != nil {
		return "", false
	}
	return b.Type, true
}

// Find returns the path of the first block of type kind whose URL equals url.
func (e *Editor) Find(kind BlockType, url string) (Path, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, p, ok := findBlock(e.root, func(b *Block) bool { return b.Type == kind && b.URL == url })
	return p, ok
}

// Block returns a copy of the block at p.
func (e *Editor) Block(p Path) (*Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := nodeAt(e.root, p)
	if err != nil {
		return nil, err
	}
	b, ok := n.(*Block)
	if !ok {
		return nil, ErrInvalidPath
	}
	return b.clone().(*Block), nil
}
