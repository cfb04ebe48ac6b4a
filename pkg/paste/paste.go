package paste

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"notefiber-editor/pkg/document"
)

var blankLines = regexp.MustCompile(`\n\n+`)

// Payload is what the clipboard or a drop event offered. HTML wins when present.
type Payload struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// FromPlainText splits text on blank lines into one paragraph per non-empty segment.
func FromPlainText(text string) []document.Node {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []document.Node
	for _, seg := range blankLines.Split(text, -1) {
		seg = strings.Trim(seg, "\n")
		if strings.TrimSpace(seg) == "" {
			continue
		}
		out = append(out, document.NewParagraph(seg))
	}
	return out
}

// StripTags returns the text content of raw HTML with entities decoded.
func StripTags(raw string) string {
	return html.UnescapeString(StripTagsPolicy.Sanitize(raw))
}

// Nodes converts a payload to document nodes. HTML that fails to deserialize, or
// yields nothing, falls back to its tag-stripped text. The second result reports
// whether the fallback was taken.
func Nodes(p Payload) ([]document.Node, bool, error) {
	if p.HTML == "" && p.Text == "" {
		return nil, false, ErrEmptyPayload
	}
	if p.HTML != "" {
		nodes, err := FromHTML(p.HTML)
		if err == nil && len(nodes) > 0 {
			return nodes, false, nil
		}
		text := p.Text
		if text == "" {
			text = StripTags(p.HTML)
		}
		return FromPlainText(text), true, nil
	}
	return FromPlainText(p.Text), false, nil
}

// Paste inserts a payload at the editor selection. If the structured insertion is
// rejected, the plain text of the payload is inserted instead so the paste is never lost.
func Paste(e *document.Editor, p Payload) error {
	nodes, fellBack, err := Nodes(p)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}
	if err := e.InsertFragment(nodes); err == nil || fellBack {
		return err
	}

	text := p.Text
	if text == "" {
		text = StripTags(p.HTML)
	}
	return e.InsertFragment(FromPlainText(text))
}
