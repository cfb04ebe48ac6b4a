package paste

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// StripTagsPolicy removes every tag and keeps text content.
var StripTagsPolicy *bluemonday.Policy = bluemonday.StrictPolicy()

// PastePolicy keeps the markup the deserializer understands and drops scripts, styles,
// event handlers and unknown attributes from clipboard HTML.
var PastePolicy *bluemonday.Policy = bluemonday.UGCPolicy()

func init() {
	PastePolicy.AllowElements("b", "i", "u", "s", "strike", "del", "mark", "sup", "sub", "aside", "article", "section")
	PastePolicy.AllowStyles("font-weight", "font-style", "text-decoration", "text-decoration-line").Globally()

	PastePolicy.AllowAttrs("data-type").Matching(regexp.MustCompile(`^(taskList|toggleList)$`)).OnElements("ul")
	PastePolicy.AllowAttrs("data-checked").Matching(regexp.MustCompile(`^(true|false)$`)).OnElements("li")
	PastePolicy.AllowAttrs("data-collapsed").Matching(regexp.MustCompile(`^(true|false)$`)).OnElements("li")

	PastePolicy.AllowAttrs("data-type").Matching(regexp.MustCompile(`^file$`)).OnElements("div")
	PastePolicy.AllowAttrs("data-url", "data-file-name", "data-file-type").OnElements("div")

	PastePolicy.AllowAttrs("src").OnElements("video")
}

// Sanitize cleans clipboard HTML before it is parsed.
func Sanitize(raw string) string {
	return PastePolicy.Sanitize(raw)
}
