package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() []Node {
	return []Node{
		NewBlock(TypeHeadingOne, NewText("Title")),
		NewBlock(TypeParagraph,
			NewText("a "),
			NewText("bold", Bold),
			NewText(" and "),
			&Block{Type: TypeLink, URL: "https://example.com", Children: []Node{NewText("link", Italic, Underline)}}),
		NewBlock(TypeTodoList,
			&Block{Type: TypeTodoItem, Checked: true, Children: []Node{NewText("done")}},
			&Block{Type: TypeTodoItem, Children: []Node{NewText("open")}}),
		NewVoid(TypeImage, WithURL("https://x/y.png"), WithAlt("diagram")),
		NewVoid(TypeFile, WithURL("https://x/r.pdf"), WithFileName("r.pdf"), WithFileType("application/pdf")),
		NewBlock(TypeCodeBlock, NewText("fmt.Println()")),
	}
}

func TestMarshalShape(t *testing.T) {
	data, err := Marshal([]Node{
		NewBlock(TypeParagraph, NewText("a "), NewText("bold", Bold)),
		NewBlock(TypeTodoList, NewBlock(TypeTodoItem, NewText("x"))),
		NewVoid(TypeDivider),
	})
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"type":"paragraph","children":[{"text":"a "},{"text":"bold","bold":true}]},
		{"type":"todo-list","children":[{"type":"todo-item","checked":false,"children":[{"text":"x"}]}]},
		{"type":"divider","children":[{"text":""}]}
	]`, string(data))
}

func TestJSONRoundTripIsByteIdentical(t *testing.T) {
	first, err := Marshal(Normalize(sampleDocument()))
	require.NoError(t, err)

	decoded, err := Unmarshal(first)
	require.NoError(t, err)
	second, err := Marshal(Normalize(decoded))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`[{"type":"marquee","children":[]}]`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   []Node
		want string
	}{
		{
			name: "marks",
			in:   []Node{NewBlock(TypeParagraph, NewText("a "), NewText("bold", Bold), NewText(" word"))},
			want: "<p>a <strong>bold</strong> word</p>",
		},
		{
			name: "todo list",
			in:   []Node{NewBlock(TypeTodoList, &Block{Type: TypeTodoItem, Checked: true, Children: []Node{NewText("x")}})},
			want: `<ul data-type="taskList"><li data-checked="true">x</li></ul>`,
		},
		{
			name: "escaped code block",
			in:   []Node{NewBlock(TypeCodeBlock, NewText("a < b\nc"))},
			want: "<pre>\na &lt; b\nc</pre>",
		},
		{
			name: "collapsible spaces",
			in:   []Node{NewBlock(TypeParagraph, NewText("a  b"), NewText(" ", Bold))},
			want: "<p>a &nbsp;b<strong>&nbsp;</strong></p>",
		},
		{
			name: "image",
			in:   []Node{NewVoid(TypeImage, WithURL("https://x/y.png"), WithAlt("cat"))},
			want: `<img src="https://x/y.png" alt="cat">`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTML(tt.in))
		})
	}
}

func TestToMarkdown(t *testing.T) {
	out := ToMarkdown([]Node{
		NewBlock(TypeHeadingOne, NewText("Title")),
		NewBlock(TypeNumberedList,
			NewBlock(TypeListItem, NewText("one")),
			NewBlock(TypeListItem, NewText("two", Bold), NewBlock(TypeBulletedList,
				NewBlock(TypeListItem, NewText("inner"))))),
		NewBlock(TypeTodoList, &Block{Type: TypeTodoItem, Checked: true, Children: []Node{NewText("done")}}),
		NewBlock(TypeParagraph, NewText("see "), &Block{Type: TypeLink, URL: "https://x", Children: []Node{NewText("x", Italic)}}),
		NewBlock(TypeCodeBlock, NewText("a := 1")),
		NewVoid(TypeImage, WithURL("https://x/y.png"), WithAlt("cat")),
	})

	for _, want := range []string{
		"# Title\n\n",
		"1. one\n",
		"2. **two**\n" + nestIndent + "- inner",
		"- [x] done",
		"see [*x*](https://x)",
		"```\na := 1\n```",
		"![cat](https://x/y.png)",
	} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n\n"))
}

func TestPlainText(t *testing.T) {
	text := PlainText([]Node{
		NewParagraph("first"),
		NewBlock(TypeBulletedList, NewBlock(TypeListItem, NewText("item"))),
		NewVoid(TypeDivider),
	})
	assert.Equal(t, "first\nitem", text)
}
