package command

import (
	"strings"

	"notefiber-editor/pkg/document"
)

// Group is a section of the slash menu.
type Group string

const (
	GroupHeadings Group = "Headings"
	GroupBasic    Group = "Basic"
	GroupLists    Group = "Lists"
	GroupContent  Group = "Content"
	GroupTables   Group = "Tables"
	GroupMedia    Group = "Media"
)

// ActionContext is handed to a command when it runs.
type ActionContext struct {
	Editor   *document.Editor
	Notifier Notifier
	Position Position
}

// Command is one entry of the slash menu.
type Command struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Group       Group    `json:"group"`
	Keywords    []string `json:"keywords,omitempty"`
	Popular     bool     `json:"popular"`

	Action func(ActionContext) error `json:"-"`
}

func setType(typ document.BlockType) func(ActionContext) error {
	return func(ac ActionContext) error {
		sel, ok := ac.Editor.Selection()
		if !ok {
			return document.ErrNoSelection
		}
		return ac.Editor.SetNodeType(sel, typ)
	}
}

func wrapList(list document.BlockType) func(ActionContext) error {
	return func(ac ActionContext) error {
		sel, ok := ac.Editor.Selection()
		if !ok {
			return document.ErrNoSelection
		}
		return ac.Editor.WrapInList(sel, list)
	}
}

func insertVoid(typ document.BlockType) func(ActionContext) error {
	return func(ac ActionContext) error {
		_, err := ac.Editor.InsertVoid(document.NewVoid(typ))
		return err
	}
}

func pickFile(kind document.BlockType) func(ActionContext) error {
	return func(ac ActionContext) error {
		ac.Notifier.Notify(FilePickerOpen{Kind: kind})
		return nil
	}
}

func insertTable(rows, cols int) func(ActionContext) error {
	return func(ac ActionContext) error {
		table := document.NewBlock(document.TypeTable)
		for r := 0; r < rows; r++ {
			row := document.NewBlock(document.TypeTableRow)
			for c := 0; c < cols; c++ {
				row.Children = append(row.Children, document.NewBlock(document.TypeTableCell, document.NewText("")))
			}
			table.Children = append(table.Children, row)
		}
		return ac.Editor.InsertFragment([]document.Node{table})
	}
}

var catalog = []Command{
	{ID: "heading-one", Title: "Heading 1", Description: "Big section heading", Group: GroupHeadings,
		Keywords: []string{"h1", "title"}, Popular: true, Action: setType(document.TypeHeadingOne)},
	{ID: "heading-two", Title: "Heading 2", Description: "Medium section heading", Group: GroupHeadings,
		Keywords: []string{"h2", "subtitle"}, Popular: true, Action: setType(document.TypeHeadingTwo)},
	{ID: "heading-three", Title: "Heading 3", Description: "Small section heading", Group: GroupHeadings,
		Keywords: []string{"h3"}, Action: setType(document.TypeHeadingThree)},

	{ID: "text", Title: "Text", Description: "Plain paragraph", Group: GroupBasic,
		Keywords: []string{"paragraph", "p"}, Popular: true, Action: setType(document.TypeParagraph)},
	{ID: "quote", Title: "Quote", Description: "Capture a quotation", Group: GroupBasic,
		Keywords: []string{"blockquote", "citation"}, Action: setType(document.TypeBlockQuote)},
	{ID: "code", Title: "Code", Description: "Code block with monospace text", Group: GroupBasic,
		Keywords: []string{"snippet", "pre"}, Action: setType(document.TypeCodeBlock)},

	{ID: "bulleted-list", Title: "Bulleted list", Description: "Simple bulleted list", Group: GroupLists,
		Keywords: []string{"ul", "unordered", "bullet"}, Popular: true, Action: wrapList(document.TypeBulletedList)},
	{ID: "numbered-list", Title: "Numbered list", Description: "List with numbering", Group: GroupLists,
		Keywords: []string{"ol", "ordered"}, Popular: true, Action: wrapList(document.TypeNumberedList)},
	{ID: "todo-list", Title: "To-do list", Description: "Track tasks with checkboxes", Group: GroupLists,
		Keywords: []string{"task", "checkbox", "check"}, Popular: true, Action: wrapList(document.TypeTodoList)},
	{ID: "toggle-list", Title: "Toggle list", Description: "Collapsible items", Group: GroupLists,
		Keywords: []string{"collapse", "fold"}, Action: wrapList(document.TypeToggleList)},

	{ID: "callout", Title: "Callout", Description: "Highlighted note box", Group: GroupContent,
		Keywords: []string{"note", "info", "aside"}, Action: setType(document.TypeCallout)},
	{ID: "divider", Title: "Divider", Description: "Visual separator between sections", Group: GroupContent,
		Keywords: []string{"hr", "line", "separator"}, Action: insertVoid(document.TypeDivider)},
	{ID: "emoji", Title: "Emoji", Description: "Pick an emoji", Group: GroupContent,
		Keywords: []string{"smile", "icon"}, Action: func(ac ActionContext) error {
			ac.Notifier.Notify(EmojiPickerOpen{Position: ac.Position})
			return nil
		}},

	{ID: "table", Title: "Table", Description: "Grid of cells", Group: GroupTables,
		Keywords: []string{"grid", "cells"}, Action: insertTable(2, 2)},

	{ID: "image", Title: "Image", Description: "Upload an image", Group: GroupMedia,
		Keywords: []string{"picture", "photo", "img"}, Popular: true, Action: pickFile(document.TypeImage)},
	{ID: "video", Title: "Video", Description: "Upload a video", Group: GroupMedia,
		Keywords: []string{"movie", "clip"}, Action: pickFile(document.TypeVideo)},
	{ID: "file", Title: "File", Description: "Attach any file", Group: GroupMedia,
		Keywords: []string{"attachment", "upload", "pdf"}, Action: pickFile(document.TypeFile)},
}

// Catalog returns the slash menu commands in display order.
func Catalog() []Command {
	return append([]Command(nil), catalog...)
}

// Popular returns the commands shown in the menu's default view.
func Popular() []Command {
	var out []Command
	for _, c := range catalog {
		if c.Popular {
			out = append(out, c)
		}
	}
	return out
}

// Lookup finds a catalog command by id.
func Lookup(id string) (Command, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Command{}, false
}

// FilterCatalog keeps the commands of cmds matching query, in their original order.
// The title matches as a fuzzy subsequence, keywords by prefix and the description
// by substring. Matching ignores case.
func FilterCatalog(cmds []Command, query string) []Command {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]Command(nil), cmds...)
	}
	var out []Command
	for _, c := range cmds {
		if matches(c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c Command, q string) bool {
	if subsequence(strings.ToLower(c.Title), q) {
		return true
	}
	for _, k := range c.Keywords {
		if strings.HasPrefix(strings.ToLower(k), q) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(c.Description), q)
}

func subsequence(s, q string) bool {
	qr := []rune(q)
	i := 0
	for _, r := range s {
		if i < len(qr) && r == qr[i] {
			i++
		}
	}
	return i == len(qr)
}
