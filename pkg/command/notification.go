// Package command holds the interceptors that turn editor input into document
// mutations: markdown shortcuts, the slash menu, the emoji trigger and the inline
// toolbar. It talks to its host through typed notifications.
package command

import "notefiber-editor/pkg/document"

// Position is a caret location in host screen coordinates.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CaretLocator reports where the host currently draws the caret.
type CaretLocator func() Position

// Notification is a request from the pipeline to its host surface.
type Notification interface {
	Name() string
}

// SlashMenuOpen asks the host to show the slash menu at Position.
type SlashMenuOpen struct {
	Position Position  `json:"position"`
	Commands []Command `json:"commands"`
}

// SlashMenuUpdate carries the menu state after filtering or keyboard navigation.
type SlashMenuUpdate struct {
	View     View      `json:"view"`
	Index    int       `json:"index"`
	Query    string    `json:"query"`
	Commands []Command `json:"commands"`
}

type SlashMenuClose struct{}

// EmojiPickerOpen asks the host to show its emoji picker. Picking an emoji comes back
// as plain text input.
type EmojiPickerOpen struct {
	Position Position `json:"position"`
}

// FilePickerOpen asks the host to let the user choose a file for a media block.
type FilePickerOpen struct {
	Kind document.BlockType `json:"kind"`
}

// FocusEditor returns focus to the editable surface after a menu or toolbar action.
type FocusEditor struct{}

// MediaUploadFailed reports a placeholder whose upload failed and can be retried.
type MediaUploadFailed struct {
	Kind     document.BlockType `json:"kind"`
	LocalRef string             `json:"localRef"`
	Error    string             `json:"error"`
}

// MediaUploaded reports a placeholder that now points at its persisted URL.
type MediaUploaded struct {
	Kind     document.BlockType `json:"kind"`
	LocalRef string             `json:"localRef"`
	URL      string             `json:"url"`
}

func (SlashMenuOpen) Name() string     { return "slash_menu_open" }
func (SlashMenuUpdate) Name() string   { return "slash_menu_update" }
func (SlashMenuClose) Name() string    { return "slash_menu_close" }
func (EmojiPickerOpen) Name() string   { return "emoji_picker_open" }
func (FilePickerOpen) Name() string    { return "file_picker_open" }
func (FocusEditor) Name() string       { return "focus_editor" }
func (MediaUploadFailed) Name() string { return "media_upload_failed" }
func (MediaUploaded) Name() string     { return "media_uploaded" }

// Notifier delivers notifications to the host.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Logger is the subset of the application logger the pipeline writes to.
type Logger interface {
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
