package command

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notefiber-editor/pkg/document"
)

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.got {
		out = append(out, n.Name())
	}
	return out
}

func (r *recorder) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return nil
	}
	return r.got[len(r.got)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = nil
}

func ids(cmds []Command) []string {
	var out []string
	for _, c := range cmds {
		out = append(out, c.ID)
	}
	return out
}

func newPipeline(nodes ...document.Node) (*Pipeline, *document.Editor, *recorder) {
	e := document.NewEditor(nodes...)
	rec := &recorder{}
	p := New(e, rec, WithCaretLocator(func() Position { return Position{X: 10, Y: 20} }))
	return p, e, rec
}

func TestNumberedListShortcut(t *testing.T) {
	p, e, _ := newPipeline()

	require.NoError(t, p.InsertText("1. "))
	require.NoError(t, p.InsertText("first"))

	assert.Equal(t, []document.Node{
		document.NewBlock(document.TypeNumberedList,
			document.NewBlock(document.TypeListItem, document.NewText("first"))),
	}, e.Children())
}

func TestMarkdownShortcuts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []document.Node
	}{
		{
			name:  "heading one",
			input: "# Title",
			want:  []document.Node{document.NewBlock(document.TypeHeadingOne, document.NewText("Title"))},
		},
		{
			name:  "heading three",
			input: "### Small",
			want:  []document.Node{document.NewBlock(document.TypeHeadingThree, document.NewText("Small"))},
		},
		{
			name:  "dash bullet",
			input: "- item",
			want: []document.Node{document.NewBlock(document.TypeBulletedList,
				document.NewBlock(document.TypeListItem, document.NewText("item")))},
		},
		{
			name:  "quote",
			input: "> said",
			want:  []document.Node{document.NewBlock(document.TypeBlockQuote, document.NewText("said"))},
		},
		{
			name:  "code fence",
			input: "``` x",
			want:  []document.Node{document.NewBlock(document.TypeCodeBlock, document.NewText("x"))},
		},
		{
			name:  "prefix after text is literal",
			input: "a # b",
			want:  []document.Node{document.NewParagraph("a # b")},
		},
		{
			name:  "number without dot is literal",
			input: "12 apples",
			want:  []document.Node{document.NewParagraph("12 apples")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, e, _ := newPipeline()
			require.NoError(t, p.InsertText(tt.input))
			assert.Equal(t, tt.want, e.Children())
		})
	}
}

func TestShortcutsIgnoredInCodeBlock(t *testing.T) {
	p, e, _ := newPipeline(document.NewBlock(document.TypeCodeBlock, document.NewText("")))

	require.NoError(t, p.InsertText("# x"))
	assert.Equal(t, []document.Node{document.NewBlock(document.TypeCodeBlock, document.NewText("# x"))}, e.Children())
}

func TestShortcutsInTableCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []document.Node
	}{
		{
			name:  "heading is refused and the prefix kept",
			input: "# Title",
			want:  []document.Node{document.NewText("# Title")},
		},
		{
			name:  "quote is refused and the prefix kept",
			input: "> said",
			want:  []document.Node{document.NewText("> said")},
		},
		{
			name:  "bullet nests a list in the cell",
			input: "- item",
			want: []document.Node{document.NewBlock(document.TypeBulletedList,
				document.NewBlock(document.TypeListItem, document.NewText("item")))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, e, _ := newPipeline(document.NewBlock(document.TypeTable,
				document.NewBlock(document.TypeTableRow,
					document.NewBlock(document.TypeTableCell, document.NewText("")))))

			require.NoError(t, p.InsertText(tt.input))

			table := e.Children()[0].(*document.Block)
			require.Equal(t, document.TypeTable, table.Type)
			cell := table.Children[0].(*document.Block).Children[0].(*document.Block)
			assert.Equal(t, document.TypeTableCell, cell.Type)
			assert.Equal(t, tt.want, cell.Children)
		})
	}
}

func TestSlashContextGate(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []document.Node
		input    string
		wantOpen bool
	}{
		{name: "empty paragraph", input: "/", wantOpen: true},
		{name: "after whitespace", input: "  /", wantOpen: true},
		{name: "after text", input: "hello/", wantOpen: false},
		{
			name:     "inside code block",
			nodes:    []document.Node{document.NewBlock(document.TypeCodeBlock, document.NewText(""))},
			input:    "/",
			wantOpen: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, rec := newPipeline(tt.nodes...)
			require.NoError(t, p.InsertText(tt.input))

			assert.Equal(t, tt.wantOpen, p.MenuOpen())
			if tt.wantOpen {
				open, ok := rec.got[0].(SlashMenuOpen)
				require.True(t, ok)
				assert.Equal(t, Position{X: 10, Y: 20}, open.Position)
				assert.Equal(t, ids(Popular()), ids(open.Commands))
			} else {
				assert.NotContains(t, rec.names(), SlashMenuOpen{}.Name())
			}
		})
	}
}

func TestSlashMenuKeyboard(t *testing.T) {
	p, _, rec := newPipeline()
	require.NoError(t, p.InsertText("/"))
	n := len(Popular())

	steps := []struct {
		key       Key
		wantView  View
		wantIndex int
	}{
		{KeyDown, ViewPopular, 1},
		{KeyUp, ViewPopular, 0},
		{KeyUp, ViewPopular, n - 1},
		{KeyDown, ViewPopular, 0},
		{KeyDown, ViewPopular, 1},
		{KeyTab, ViewAll, 0},
		{KeyTab, ViewPopular, 0},
	}
	for _, s := range steps {
		consumed, err := p.HandleKey(s.key)
		require.NoError(t, err)
		require.True(t, consumed)

		update, ok := rec.last().(SlashMenuUpdate)
		require.True(t, ok)
		assert.Equal(t, s.wantView, update.View, "key %s", s.key)
		assert.Equal(t, s.wantIndex, update.Index, "key %s", s.key)
	}

	consumed, err := p.HandleKey(KeyEscape)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.False(t, p.MenuOpen())
	assert.Equal(t, SlashMenuClose{}, rec.last())

	consumed, err = p.HandleKey(KeyDown)
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestSlashMenuInvokesFilteredCommand(t *testing.T) {
	p, e, rec := newPipeline()

	require.NoError(t, p.InsertText("/head"))
	update, ok := rec.last().(SlashMenuUpdate)
	require.True(t, ok)
	assert.Equal(t, "head", update.Query)
	assert.Equal(t, []string{"heading-one", "heading-two", "heading-three"}, ids(update.Commands))

	_, err := p.HandleKey(KeyDown)
	require.NoError(t, err)
	rec.reset()

	consumed, err := p.HandleKey(KeyEnter)
	require.NoError(t, err)
	assert.True(t, consumed)

	assert.Equal(t, []string{"slash_menu_close", "focus_editor"}, rec.names())
	assert.Equal(t, []document.Node{document.NewBlock(document.TypeHeadingTwo, document.NewText(""))}, e.Children())

	require.NoError(t, p.InsertText("Subtitle"))
	assert.Equal(t, []document.Node{document.NewBlock(document.TypeHeadingTwo, document.NewText("Subtitle"))}, e.Children())
}

func TestSlashMenuQuerySearchesFullCatalog(t *testing.T) {
	p, _, rec := newPipeline()

	require.NoError(t, p.InsertText("/quo"))
	update, ok := rec.last().(SlashMenuUpdate)
	require.True(t, ok)
	assert.Equal(t, ViewPopular, update.View)
	assert.Equal(t, []string{"quote"}, ids(update.Commands))

	require.NoError(t, p.DeleteBackward())
	require.NoError(t, p.DeleteBackward())
	update, ok = rec.last().(SlashMenuUpdate)
	require.True(t, ok)
	assert.Equal(t, "q", update.Query)
	assert.Equal(t, []string{"quote"}, ids(update.Commands))
}

func TestBackspaceWithoutMenuStaysQuiet(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "plain text", input: "hello"},
		{name: "down to a typed slash", input: "a/b"},
		{name: "slash after text", input: "x /"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, rec := newPipeline()
			require.NoError(t, p.InsertText(tt.input))
			require.False(t, p.MenuOpen())
			rec.reset()

			require.NoError(t, p.DeleteBackward())
			assert.NotContains(t, rec.names(), SlashMenuClose{}.Name())
		})
	}
}

func TestSlashMenuSpaceInvokes(t *testing.T) {
	p, e, _ := newPipeline()

	require.NoError(t, p.InsertText("/todo "))
	assert.False(t, p.MenuOpen())
	assert.Equal(t, []document.Node{document.NewBlock(document.TypeTodoList,
		document.NewBlock(document.TypeTodoItem, document.NewText("")))}, e.Children())
}

func TestBackspaceToLoneSlashClosesMenu(t *testing.T) {
	p, _, rec := newPipeline()
	require.NoError(t, p.InsertText("/he"))
	require.True(t, p.MenuOpen())

	require.NoError(t, p.DeleteBackward())
	assert.True(t, p.MenuOpen())
	update, ok := rec.last().(SlashMenuUpdate)
	require.True(t, ok)
	assert.Equal(t, "h", update.Query)

	require.NoError(t, p.DeleteBackward())
	assert.False(t, p.MenuOpen())
	assert.Equal(t, SlashMenuClose{}, rec.last())
}

func TestEmojiTrigger(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []document.Node
		input    string
		wantOpen bool
	}{
		{name: "empty line", input: ":", wantOpen: true},
		{name: "after text", input: "time:", wantOpen: false},
		{
			name:     "code block still triggers",
			nodes:    []document.Node{document.NewBlock(document.TypeCodeBlock, document.NewText(""))},
			input:    ":",
			wantOpen: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, rec := newPipeline(tt.nodes...)
			require.NoError(t, p.InsertText(tt.input))
			if tt.wantOpen {
				assert.Equal(t, []Notification{EmojiPickerOpen{Position: Position{X: 10, Y: 20}}}, rec.got)
			} else {
				assert.Empty(t, rec.got)
			}
		})
	}
}

func TestInvoke(t *testing.T) {
	t.Run("divider replaces the empty paragraph", func(t *testing.T) {
		p, e, rec := newPipeline()
		require.NoError(t, p.Invoke("divider"))

		children := e.Children()
		require.Len(t, children, 2)
		assert.Equal(t, document.TypeDivider, children[0].(*document.Block).Type)
		assert.Equal(t, document.TypeParagraph, children[1].(*document.Block).Type)
		assert.Equal(t, FocusEditor{}, rec.last())
	})

	t.Run("media commands open the file picker", func(t *testing.T) {
		p, _, rec := newPipeline()
		require.NoError(t, p.Invoke("video"))
		assert.Equal(t, []Notification{FilePickerOpen{Kind: document.TypeVideo}, FocusEditor{}}, rec.got)
	})

	t.Run("table", func(t *testing.T) {
		p, e, _ := newPipeline()
		require.NoError(t, p.Invoke("table"))

		table := e.Children()[0].(*document.Block)
		assert.Equal(t, document.TypeTable, table.Type)
		assert.Len(t, table.Children, 2)
	})

	t.Run("unknown", func(t *testing.T) {
		p, _, _ := newPipeline()
		assert.ErrorIs(t, p.Invoke("marquee"), ErrUnknownCommand)
	})
}

func TestNotifierMayCallBack(t *testing.T) {
	e := document.NewEditor()
	var p *Pipeline
	p = New(e, NotifierFunc(func(n Notification) {
		if _, ok := n.(SlashMenuOpen); ok {
			_, _ = p.HandleKey(KeyEscape)
		}
	}))

	require.NoError(t, p.InsertText("/"))
	assert.False(t, p.MenuOpen())
}
