package command

import (
	"regexp"
	"strings"

	"notefiber-editor/pkg/document"
)

var numberedPrefix = regexp.MustCompile(`^(\d+)\.$`)

// shortcuts maps a line prefix typed before a space to the block it turns into.
var shortcuts = map[string]document.BlockType{
	"*":   document.TypeBulletedList,
	"-":   document.TypeBulletedList,
	"+":   document.TypeBulletedList,
	">":   document.TypeBlockQuote,
	"#":   document.TypeHeadingOne,
	"##":  document.TypeHeadingTwo,
	"###": document.TypeHeadingThree,
	"```": document.TypeCodeBlock,
}

// matchShortcut resolves the text between line start and caret to a block type.
func matchShortcut(before string) (document.BlockType, bool) {
	if numberedPrefix.MatchString(before) {
		return document.TypeNumberedList, true
	}
	typ, ok := shortcuts[before]
	return typ, ok
}

// lineBefore returns the text between the start of the caret's line and the caret.
func lineBefore(e *document.Editor) (string, bool) {
	before, ok := e.TextBeforeCursor()
	if !ok {
		return "", false
	}
	if i := strings.LastIndex(before, "\n"); i >= 0 {
		before = before[i+1:]
	}
	return before, true
}

// applyShortcut runs the markdown shortcut for the current line, if any. It reports
// whether the triggering space was consumed.
func applyShortcut(e *document.Editor) (bool, error) {
	if typ, ok := e.CurrentBlockType(); !ok || typ == document.TypeCodeBlock {
		return false, nil
	}
	before, ok := lineBefore(e)
	if !ok {
		return false, nil
	}
	typ, ok := matchShortcut(before)
	if !ok {
		return false, nil
	}

	return e.ReplacePrefix(len([]rune(before)), typ)
}
