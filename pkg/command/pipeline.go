package command

import (
	"errors"
	"strings"
	"sync"

	"notefiber-editor/pkg/document"
)

const moduleName = "COMMAND"

var ErrUnknownCommand = errors.New("command: unknown command")

// Key is a keyboard key the slash menu reacts to.
type Key string

const (
	KeyUp     Key = "ArrowUp"
	KeyDown   Key = "ArrowDown"
	KeyTab    Key = "Tab"
	KeyEnter  Key = "Enter"
	KeySpace  Key = " "
	KeyEscape Key = "Escape"
)

// View selects which commands the slash menu lists.
type View string

const (
	ViewPopular View = "popular"
	ViewAll     View = "all"
)

type slashMenu struct {
	view  View
	index int
	query string
}

// Pipeline sits between raw input and the editor. Typed text passes through it so
// markdown shortcuts, the slash menu and the emoji trigger can intercept it.
type Pipeline struct {
	mu       sync.Mutex
	editor   *document.Editor
	notifier Notifier
	caret    CaretLocator
	logger   Logger
	menu     *slashMenu
}

type Option func(*Pipeline)

// WithCaretLocator sets where menus and pickers are anchored on screen.
func WithCaretLocator(fn CaretLocator) Option {
	return func(p *Pipeline) { p.caret = fn }
}

func WithLogger(l Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(editor *document.Editor, notifier Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		editor:   editor,
		notifier: notifier,
		caret:    func() Position { return Position{} },
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = NotifierFunc(func(Notification) {})
	}
	return p
}

// batch collects notifications raised under the pipeline lock; they are delivered
// after it is released so a notifier may call back into the pipeline.
type batch []Notification

func (b *batch) add(n Notification) { *b = append(*b, n) }

func (p *Pipeline) run(fn func(b *batch) error) error {
	var b batch
	p.mu.Lock()
	err := fn(&b)
	p.mu.Unlock()

	for _, n := range b {
		p.notifier.Notify(n)
	}
	return err
}

// MenuOpen reports whether the slash menu is showing.
func (p *Pipeline) MenuOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.menu != nil
}

// InsertText types s at the selection. Space, '/' and ':' are checked for shortcuts
// and triggers one at a time; everything else is inserted in runs.
func (p *Pipeline) InsertText(s string) error {
	return p.run(func(b *batch) error {
		var plain strings.Builder
		flush := func() error {
			if plain.Len() == 0 {
				return nil
			}
			err := p.editor.InsertText(plain.String())
			plain.Reset()
			if err != nil {
				return err
			}
			p.refreshMenu(b)
			return nil
		}

		for _, r := range s {
			switch r {
			case ' ':
				if err := flush(); err != nil {
					return err
				}
				consumed, err := p.space(b)
				if err != nil {
					p.logger.Warn(moduleName, "Space handling failed", map[string]interface{}{"error": err.Error()})
					return err
				}
				if !consumed {
					plain.WriteRune(r)
				}
			case '/':
				if err := flush(); err != nil {
					return err
				}
				open := p.menu == nil && p.slashContext()
				if err := p.editor.InsertText("/"); err != nil {
					return err
				}
				if open {
					p.menu = &slashMenu{view: ViewPopular}
					b.add(SlashMenuOpen{Position: p.caret(), Commands: p.menuCommands()})
				} else {
					p.refreshMenu(b)
				}
			case ':':
				if err := flush(); err != nil {
					return err
				}
				open := p.emptyLine()
				if err := p.editor.InsertText(":"); err != nil {
					return err
				}
				if open {
					b.add(EmojiPickerOpen{Position: p.caret()})
				}
				p.refreshMenu(b)
			default:
				plain.WriteRune(r)
			}
		}
		return flush()
	})
}

// space handles a typed space. With the menu open it invokes the selected command;
// otherwise it tries the markdown shortcuts.
func (p *Pipeline) space(b *batch) (bool, error) {
	if p.menu != nil {
		if len(p.menuCommands()) > 0 {
			return true, p.invokeSelected(b)
		}
		p.closeMenu(b)
		return false, nil
	}
	if sel, ok := p.editor.Selection(); !ok || !sel.IsCollapsed() {
		return false, nil
	}
	return applyShortcut(p.editor)
}

// emptyLine reports a collapsed caret with only whitespace before it on its line.
func (p *Pipeline) emptyLine() bool {
	before, ok := lineBefore(p.editor)
	return ok && strings.TrimSpace(before) == ""
}

func (p *Pipeline) slashContext() bool {
	if !p.emptyLine() {
		return false
	}
	typ, ok := p.editor.CurrentBlockType()
	return ok && typ != document.TypeCodeBlock
}

// DeleteBackward deletes before the caret and keeps the slash menu in step with the
// remaining query. Backspacing down to a lone '/' closes the menu.
func (p *Pipeline) DeleteBackward() error {
	return p.run(func(b *batch) error {
		if err := p.editor.DeleteBackward(); err != nil {
			return err
		}
		if p.menu == nil {
			return nil
		}
		before, ok := lineBefore(p.editor)
		if ok && strings.TrimSpace(before) == "/" {
			p.menu = nil
			b.add(SlashMenuClose{})
			return nil
		}
		p.refreshMenu(b)
		return nil
	})
}

// HandleKey applies the slash menu keyboard contract. It reports whether the key was
// consumed; keys pressed while the menu is closed are left to the host.
func (p *Pipeline) HandleKey(k Key) (bool, error) {
	consumed := false
	err := p.run(func(b *batch) error {
		if p.menu == nil {
			return nil
		}
		consumed = true
		n := len(p.menuCommands())

		switch k {
		case KeyDown:
			if n > 0 {
				p.menu.index = (p.menu.index + 1) % n
			}
		case KeyUp:
			if n > 0 {
				p.menu.index = (p.menu.index - 1 + n) % n
			}
		case KeyTab:
			if p.menu.view == ViewPopular {
				p.menu.view = ViewAll
			} else {
				p.menu.view = ViewPopular
			}
			p.menu.index = 0
		case KeyEnter, KeySpace:
			if n == 0 {
				p.closeMenu(b)
				return nil
			}
			return p.invokeSelected(b)
		case KeyEscape:
			p.closeMenu(b)
			return nil
		default:
			consumed = false
			return nil
		}
		b.add(p.update())
		return nil
	})
	return consumed, err
}

// Invoke runs the catalog command id as if it had been picked from the menu.
func (p *Pipeline) Invoke(id string) error {
	cmd, ok := Lookup(id)
	if !ok {
		return ErrUnknownCommand
	}
	return p.run(func(b *batch) error {
		return p.invoke(b, cmd)
	})
}

func (p *Pipeline) invokeSelected(b *batch) error {
	cmds := p.menuCommands()
	return p.invoke(b, cmds[p.menu.index])
}

// invoke removes the "/query" text when the menu is open, runs cmd and hands focus
// back to the document.
func (p *Pipeline) invoke(b *batch, cmd Command) error {
	if p.menu != nil {
		n := len([]rune(p.menu.query)) + 1
		if err := p.editor.DeleteBeforeCursor(n); err != nil {
			return err
		}
		p.closeMenu(b)
	}

	err := cmd.Action(ActionContext{
		Editor:   p.editor,
		Notifier: NotifierFunc(b.add),
		Position: p.caret(),
	})
	if err != nil {
		p.logger.Warn(moduleName, "Command failed", map[string]interface{}{
			"command": cmd.ID,
			"error":   err.Error(),
		})
	}
	b.add(FocusEditor{})
	return err
}

func (p *Pipeline) closeMenu(b *batch) {
	if p.menu == nil {
		return
	}
	p.menu = nil
	b.add(SlashMenuClose{})
}

// refreshMenu re-reads the query after an edit and closes the menu once the caret
// has left the "/query" text.
func (p *Pipeline) refreshMenu(b *batch) {
	if p.menu == nil {
		return
	}
	before, ok := lineBefore(p.editor)
	trimmed := strings.TrimLeft(before, " \t")
	if !ok || !strings.HasPrefix(trimmed, "/") {
		p.closeMenu(b)
		return
	}
	query := strings.TrimPrefix(trimmed, "/")
	if query != p.menu.query {
		p.menu.query = query
		p.menu.index = 0
	}
	b.add(p.update())
}

// menuCommands lists the entries for the current view. A non-empty query always
// searches the full catalog.
func (p *Pipeline) menuCommands() []Command {
	cmds := catalog
	if p.menu.view == ViewPopular && p.menu.query == "" {
		cmds = Popular()
	}
	return FilterCatalog(cmds, p.menu.query)
}

func (p *Pipeline) update() SlashMenuUpdate {
	return SlashMenuUpdate{
		View:     p.menu.view,
		Index:    p.menu.index,
		Query:    p.menu.query,
		Commands: p.menuCommands(),
	}
}
