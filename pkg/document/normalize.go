package document

// Normalize returns a normalized deep copy of nodes:
//   - void blocks hold exactly one empty text leaf
//   - adjacent leaves with identical marks are merged, empty leaves dropped
//   - list items only sit inside their matching list container
//   - empty list and table containers are removed
//   - every other block has at least one child
func Normalize(nodes []Node) []Node {
	root := &Block{Type: typeRoot, Children: CloneNodes(nodes)}
	normalizeBlock(root)
	return root.Children
}

// normalizeRoot normalizes the editor tree and guarantees a trailing editable block.
func normalizeRoot(root *Block) {
	normalizeBlock(root)
	if len(root.Children) == 0 {
		root.Children = []Node{NewParagraph("")}
	}
}

func normalizeBlock(b *Block) {
	for _, c := range b.Children {
		if cb, ok := c.(*Block); ok {
			normalizeBlock(cb)
		}
	}

	if b.Type.IsVoid() {
		b.Children = []Node{&Text{}}
		return
	}

	if holdsTextOnly(b.Type) {
		b.Children = flattenBlocks(b.Children)
	}
	b.Children = dropEmpty(b.Children)

	if item, ok := b.Type.ItemType(); ok {
		retypeItems(b, item)
	} else {
		b.Children = wrapStrayItems(b.Children)
	}

	if hasBlock(b.Children) && hasInline(b.Children) {
		b.Children = wrapInlineRuns(b.Children)
	}

	b.Children = mergeLeaves(b.Children)

	if len(b.Children) == 0 && !isContainer(b.Type) && b.Type != typeRoot {
		b.Children = []Node{&Text{}}
	}
}

// holdsTextOnly reports whether a block type may only contain text and inline blocks.
func holdsTextOnly(t BlockType) bool {
	switch t {
	case TypeParagraph, TypeHeadingOne, TypeHeadingTwo, TypeHeadingThree, TypeHeadingFour,
		TypeHeadingFive, TypeHeadingSix, TypeCodeBlock, TypeListItem, TypeTodoItem, TypeLink:
		return true
	}
	return false
}

// isContainer reports whether a block type only exists to group other blocks; empty
// containers are removed rather than filled.
func isContainer(t BlockType) bool {
	return t.IsList() || t == TypeTable || t == TypeTableRow
}

func hasBlock(nodes []Node) bool {
	for _, n := range nodes {
		if !isInlineNode(n) {
			return true
		}
	}
	return false
}

func hasInline(nodes []Node) bool {
	for _, n := range nodes {
		if isInlineNode(n) {
			return true
		}
	}
	return false
}

// flattenBlocks splices the content of non-inline children into the list, separating
// consecutive blocks with a line break.
func flattenBlocks(nodes []Node) []Node {
	if !hasBlock(nodes) {
		return nodes
	}
	var out []Node
	prevBlock := false
	for _, n := range nodes {
		b, ok := n.(*Block)
		if !ok || b.Type.IsInline() {
			out = append(out, n)
			prevBlock = false
			continue
		}
		if b.Type.IsVoid() {
			continue
		}
		if prevBlock {
			out = append(out, &Text{Text: "\n"})
		}
		out = append(out, flattenBlocks(b.Children)...)
		prevBlock = true
	}
	return out
}

func dropEmpty(nodes []Node) []Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		b, ok := n.(*Block)
		if !ok {
			out = append(out, n)
			continue
		}
		switch {
		case isContainer(b.Type) && len(b.Children) == 0:
			continue
		case b.Type == TypeLink && b.URL == "":
			out = append(out, b.Children...)
		case b.Type == TypeLink && TextContent(b) == "":
			continue
		default:
			out = append(out, b)
		}
	}
	return out
}

// retypeItems converts text blocks inside list container b into its item type.
func retypeItems(b *Block, item BlockType) {
	for _, c := range b.Children {
		cb, ok := c.(*Block)
		if !ok || cb.Type == item {
			continue
		}
		if cb.Type.IsListItem() || holdsTextOnly(cb.Type) && !cb.Type.IsInline() {
			cb.Type = item
		}
	}
	if hasInline(b.Children) {
		b.Children = wrapInlineRunsAs(b.Children, item)
	}
}

// wrapStrayItems wraps runs of list items that are not inside a list container.
func wrapStrayItems(nodes []Node) []Node {
	var out []Node
	var run *Block
	for _, n := range nodes {
		b, ok := n.(*Block)
		if !ok || !b.Type.IsListItem() {
			run = nil
			out = append(out, n)
			continue
		}
		list, _ := b.Type.ListType()
		if run == nil || run.Type != list {
			run = &Block{Type: list}
			out = append(out, run)
		}
		run.Children = append(run.Children, b)
	}
	return out
}

func wrapInlineRuns(nodes []Node) []Node {
	return wrapInlineRunsAs(nodes, TypeParagraph)
}

func wrapInlineRunsAs(nodes []Node, t BlockType) []Node {
	var out []Node
	var run *Block
	for _, n := range nodes {
		if !isInlineNode(n) {
			run = nil
			out = append(out, n)
			continue
		}
		if run == nil {
			run = &Block{Type: t}
			out = append(out, run)
		}
		run.Children = append(run.Children, n)
	}
	for _, n := range out {
		if b, ok := n.(*Block); ok && b.Type == t {
			b.Children = mergeLeaves(b.Children)
			if len(b.Children) == 0 {
				b.Children = []Node{&Text{}}
			}
		}
	}
	return out
}

// mergeLeaves drops empty text leaves that are not the only child, then merges adjacent
// leaves with identical marks.
func mergeLeaves(nodes []Node) []Node {
	kept := nodes[:0:0]
	for _, n := range nodes {
		if t, ok := n.(*Text); ok && t.Text == "" {
			continue
		}
		kept = append(kept, n)
	}
	if len(kept) == 0 && len(nodes) > 0 {
		return nodes[:1]
	}

	var out []Node
	for _, n := range kept {
		t, ok := n.(*Text)
		if !ok {
			out = append(out, n)
			continue
		}
		if len(out) > 0 {
			if prev, ok := out[len(out)-1].(*Text); ok && prev.Marks == t.Marks {
				prev.Text += t.Text
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
