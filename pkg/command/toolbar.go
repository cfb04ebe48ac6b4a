package command

import (
	"errors"

	"notefiber-editor/pkg/document"
)

var ErrCollapsedSelection = errors.New("command: toolbar needs a text selection")

// ToolbarFormats are the marks the inline toolbar toggles, in button order.
var ToolbarFormats = []document.Mark{
	document.Bold,
	document.Italic,
	document.Underline,
	document.Strikethrough,
	document.Code,
	document.Highlight,
}

// Format toggles mark over the current selection.
func (p *Pipeline) Format(mark document.Mark) error {
	return p.toolbar(func(sel document.Selection) error {
		return p.editor.ToggleMark(sel, mark)
	})
}

// FormatByName toggles the mark called name, such as "bold".
func (p *Pipeline) FormatByName(name string) error {
	mark, ok := document.ParseMark(name)
	if !ok {
		return ErrUnknownCommand
	}
	return p.Format(mark)
}

// Link wraps the selection in a link to url. An empty url removes links instead.
func (p *Pipeline) Link(url string) error {
	return p.toolbar(func(sel document.Selection) error {
		return p.editor.SetLink(sel, url)
	})
}

func (p *Pipeline) Unlink() error {
	return p.toolbar(func(sel document.Selection) error {
		return p.editor.Unlink(sel)
	})
}

// toolbar runs fn on a non-collapsed selection and always returns focus to the document.
func (p *Pipeline) toolbar(fn func(document.Selection) error) error {
	return p.run(func(b *batch) error {
		defer b.add(FocusEditor{})

		sel, ok := p.editor.Selection()
		if !ok || sel.IsCollapsed() {
			return ErrCollapsedSelection
		}
		if err := fn(sel); err != nil {
			p.logger.Warn(moduleName, "Toolbar action failed", map[string]interface{}{"error": err.Error()})
			return err
		}
		return nil
	})
}
