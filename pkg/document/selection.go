package document

// Path addresses a node by child indexes from the root. Paths are only valid until the next
// structural mutation.
type Path []int

// Equal reports whether p and q address the same node.
func (p Path) Equal(q Path) bool {
	return p.Compare(q) == 0 && len(p) == len(q)
}

// Compare orders paths in document order. An ancestor compares equal to its descendants.
func (p Path) Compare(q Path) int {
	n := len(p)
	if len(q) < n {
		n = len(q)
	}
	for i := 0; i < n; i++ {
		switch {
		case p[i] < q[i]:
			return -1
		case p[i] > q[i]:
			return 1
		}
	}
	return 0
}

// Parent returns the path of the parent node.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1].Copy()
}

// Copy returns an independent copy of p.
func (p Path) Copy() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Child returns the path of the i-th child of p.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Point is a caret position: a text leaf path and a rune offset inside it.
type Point struct {
	Path   Path `json:"path"`
	Offset int  `json:"offset"`
}

// Equal reports whether two points are identical.
func (p Point) Equal(q Point) bool {
	return p.Path.Equal(q.Path) && p.Offset == q.Offset
}

// Before reports whether p sits strictly before q in document order.
func (p Point) Before(q Point) bool {
	if c := p.Path.Compare(q.Path); c != 0 {
		return c < 0
	}
	return p.Offset < q.Offset
}

// Selection is the ordered anchor/focus pair of the editing session.
type Selection struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// Caret returns a collapsed selection at p.
func Caret(p Point) Selection {
	return Selection{Anchor: p, Focus: Point{Path: p.Path.Copy(), Offset: p.Offset}}
}

// Range returns a selection from anchor to focus.
func Range(anchor, focus Point) Selection {
	return Selection{Anchor: anchor, Focus: focus}
}

// IsCollapsed reports whether anchor equals focus.
func (s Selection) IsCollapsed() bool {
	return s.Anchor.Equal(s.Focus)
}

// Edges returns the selection endpoints in document order.
func (s Selection) Edges() (start, end Point) {
	if s.Focus.Before(s.Anchor) {
		return s.Focus, s.Anchor
	}
	return s.Anchor, s.Focus
}

func (s Selection) copy() Selection {
	return Selection{
		Anchor: Point{Path: s.Anchor.Path.Copy(), Offset: s.Anchor.Offset},
		Focus:  Point{Path: s.Focus.Path.Copy(), Offset: s.Focus.Offset},
	}
}
