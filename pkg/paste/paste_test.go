package paste

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notefiber-editor/pkg/document"
)

func TestFromHTMLBoldInference(t *testing.T) {
	nodes, err := FromHTML(`<p>a <strong>bold</strong> word</p>`)
	require.NoError(t, err)

	require.Len(t, nodes, 1)
	p := nodes[0].(*document.Block)
	assert.Equal(t, document.TypeParagraph, p.Type)
	assert.Equal(t, []document.Node{
		document.NewText("a "),
		document.NewText("bold", document.Bold),
		document.NewText(" word"),
	}, p.Children)
}

func TestFromHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []document.Node
	}{
		{
			name: "inline style weight",
			html: `<p><span style="font-weight: 700">x</span> y</p>`,
			want: []document.Node{document.NewBlock(document.TypeParagraph,
				document.NewText("x", document.Bold), document.NewText(" y"))},
		},
		{
			name: "adjacent runs with the same marks merge",
			html: `<p><b>a</b><strong>b</strong></p>`,
			want: []document.Node{document.NewBlock(document.TypeParagraph, document.NewText("ab", document.Bold))},
		},
		{
			name: "bulleted list",
			html: "<ul>\n  <li>one</li>\n  <li>two</li>\n</ul>",
			want: []document.Node{document.NewBlock(document.TypeBulletedList,
				document.NewBlock(document.TypeListItem, document.NewText("one")),
				document.NewBlock(document.TypeListItem, document.NewText("two")))},
		},
		{
			name: "list item outside a list degrades to paragraph",
			html: `<li>loose</li>`,
			want: []document.Node{document.NewParagraph("loose")},
		},
		{
			name: "code inside pre keeps whitespace and carries no code mark",
			html: "<pre><code>a  b\n c</code></pre>",
			want: []document.Node{document.NewBlock(document.TypeCodeBlock, document.NewText("a  b\n c"))},
		},
		{
			name: "code outside pre",
			html: `<p>run <code>go</code></p>`,
			want: []document.Node{document.NewBlock(document.TypeParagraph,
				document.NewText("run "), document.NewText("go", document.Code))},
		},
		{
			name: "task list",
			html: `<ul data-type="taskList"><li data-checked="true">done</li></ul>`,
			want: []document.Node{document.NewBlock(document.TypeTodoList,
				&document.Block{Type: document.TypeTodoItem, Checked: true, Children: []document.Node{document.NewText("done")}})},
		},
		{
			name: "horizontal rule",
			html: `<p>x</p><hr>`,
			want: []document.Node{document.NewParagraph("x"), document.NewVoid(document.TypeDivider)},
		},
		{
			name: "image without src is dropped",
			html: `<p>x</p><img alt="nothing">`,
			want: []document.Node{document.NewParagraph("x")},
		},
		{
			name: "inline-only div becomes a paragraph",
			html: `<div>plain <em>it</em></div>`,
			want: []document.Node{document.NewBlock(document.TypeParagraph,
				document.NewText("plain "), document.NewText("it", document.Italic))},
		},
		{
			name: "div with blocks passes children through",
			html: `<div><p>a</p><p>b</p></div>`,
			want: []document.Node{document.NewParagraph("a"), document.NewParagraph("b")},
		},
		{
			name: "bare text is wrapped",
			html: `just text`,
			want: []document.Node{document.NewParagraph("just text")},
		},
		{
			name: "scripts are removed",
			html: `<p>safe</p><script>alert(1)</script>`,
			want: []document.Node{document.NewParagraph("safe")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromHTML(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTMLRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		doc  []document.Node
	}{
		{
			name: "mixed blocks",
			doc: []document.Node{
				document.NewBlock(document.TypeHeadingOne, document.NewText("Title")),
				document.NewBlock(document.TypeParagraph,
					document.NewText("a "),
					document.NewText("bold", document.Bold),
					document.NewText(" word")),
				document.NewBlock(document.TypeTodoList,
					&document.Block{Type: document.TypeTodoItem, Checked: true, Children: []document.Node{document.NewText("done")}},
					&document.Block{Type: document.TypeTodoItem, Children: []document.Node{document.NewText("open")}}),
				document.NewBlock(document.TypeCodeBlock, document.NewText("x := 1")),
			},
		},
		{
			name: "plain space between marks",
			doc: []document.Node{document.NewBlock(document.TypeParagraph,
				document.NewText("a", document.Bold),
				document.NewText(" "),
				document.NewText("b", document.Italic))},
		},
		{
			name: "marked space between marks",
			doc: []document.Node{document.NewBlock(document.TypeParagraph,
				document.NewText("a", document.Italic),
				document.NewText(" ", document.Bold),
				document.NewText("b", document.Italic))},
		},
		{
			name: "space runs and edges",
			doc: []document.Node{
				document.NewParagraph("a  b   c"),
				document.NewParagraph(" lead"),
				document.NewParagraph("end "),
			},
		},
		{
			name: "code block with leading newline",
			doc:  []document.Node{document.NewBlock(document.TypeCodeBlock, document.NewText("\nindented\n  x"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.Normalize(tt.doc)
			want, err := document.Marshal(doc)
			require.NoError(t, err)

			nodes, err := FromHTML(document.ToHTML(doc))
			require.NoError(t, err)
			got, err := document.Marshal(nodes)
			require.NoError(t, err)

			assert.Equal(t, string(want), string(got))
		})
	}
}

func TestFromHTMLWhitespace(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []document.Node
	}{
		{
			name: "space between inline elements is kept",
			html: `<p><strong>a</strong> <em>b</em></p>`,
			want: []document.Node{document.NewBlock(document.TypeParagraph,
				document.NewText("a", document.Bold), document.NewText(" "), document.NewText("b", document.Italic))},
		},
		{
			name: "top-level inline fragment keeps its space",
			html: `<b>a</b> <i>b</i>`,
			want: []document.Node{document.NewBlock(document.TypeParagraph,
				document.NewText("a", document.Bold), document.NewText(" "), document.NewText("b", document.Italic))},
		},
		{
			name: "space at the edge of a paragraph is dropped",
			html: `<p><strong>a</strong> </p>`,
			want: []document.Node{document.NewBlock(document.TypeParagraph, document.NewText("a", document.Bold))},
		},
		{
			name: "layout whitespace between blocks is dropped",
			html: "<p>a</p>\n  <p>b</p>",
			want: []document.Node{document.NewParagraph("a"), document.NewParagraph("b")},
		},
		{
			name: "non-breaking spaces become spaces",
			html: `<p>a&nbsp;&nbsp;b</p>`,
			want: []document.Node{document.NewParagraph("a  b")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromHTML(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromPlainText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single paragraph", "hello", []string{"hello"}},
		{"blank line split", "one\n\ntwo\r\n\r\n\r\nthree", []string{"one", "two", "three"}},
		{"single newline stays inside paragraph", "a\nb", []string{"a\nb"}},
		{"whitespace only", "\n\n  \n\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, n := range FromPlainText(tt.text) {
				got = append(got, document.TextContent(n))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNodesFallsBackToText(t *testing.T) {
	nodes, fellBack, err := Nodes(Payload{HTML: `<script>x()</script>`, Text: "fallback"})
	require.NoError(t, err)
	assert.True(t, fellBack)
	assert.Equal(t, []document.Node{document.NewParagraph("fallback")}, nodes)

	_, _, err = Nodes(Payload{})
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestPaste(t *testing.T) {
	t.Run("plain text is inserted inline", func(t *testing.T) {
		e := document.NewEditor(document.NewParagraph("ab"))
		require.NoError(t, e.Select(document.Caret(document.Point{Path: document.Path{0, 0}, Offset: 1})))

		require.NoError(t, Paste(e, Payload{Text: "X"}))
		assert.Equal(t, []document.Node{document.NewParagraph("aXb")}, e.Children())
	})

	t.Run("html blocks replace an empty paragraph", func(t *testing.T) {
		e := document.NewEditor()
		require.NoError(t, Paste(e, Payload{HTML: `<p>one</p><h2>two</h2>`}))

		children := e.Children()
		require.Len(t, children, 2)
		assert.Equal(t, document.TypeParagraph, children[0].(*document.Block).Type)
		assert.Equal(t, document.TypeHeadingTwo, children[1].(*document.Block).Type)
	})
}

func TestStyleMapMarks(t *testing.T) {
	tests := []struct {
		style string
		want  document.Mark
	}{
		{"font-weight: bold", document.Bold},
		{"font-weight:600", document.Bold},
		{"font-weight: 400", 0},
		{"font-style: italic; text-decoration: underline line-through", document.Italic | document.Underline | document.Strikethrough},
		{"TEXT-DECORATION-LINE: Underline !important", document.Underline},
		{"color: red", 0},
	}
	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStyle(tt.style).Marks())
		})
	}
}
