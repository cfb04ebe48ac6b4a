package paste

import (
	"strconv"
	"strings"

	"notefiber-editor/pkg/document"
)

// StyleMap represents parsed inline CSS declarations, keyed by lower-cased property.
type StyleMap map[string]string

// ParseStyle parses a CSS style attribute into a map.
// Example: "font-weight: 700; text-decoration: underline"
func ParseStyle(styleStr string) StyleMap {
	styles := make(StyleMap)
	if styleStr == "" {
		return styles
	}

	for _, part := range strings.Split(styleStr, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(kv[0]))
		v := strings.ToLower(strings.TrimSpace(kv[1]))
		v = strings.TrimSpace(strings.TrimSuffix(v, "!important"))
		if k != "" && v != "" && v != "inherit" {
			styles[k] = v
		}
	}
	return styles
}

// Marks infers text marks from the declarations: a font weight of 600 or more is bold,
// italic or oblique font style is italic, and text decorations map to underline and
// strikethrough.
func (s StyleMap) Marks() document.Mark {
	var m document.Mark

	switch w := s["font-weight"]; w {
	case "bold", "bolder":
		m |= document.Bold
	default:
		if n, err := strconv.Atoi(w); err == nil && n >= 600 {
			m |= document.Bold
		}
	}

	if fs := s["font-style"]; fs == "italic" || strings.HasPrefix(fs, "oblique") {
		m |= document.Italic
	}

	for _, key := range []string{"text-decoration", "text-decoration-line"} {
		d := s[key]
		if strings.Contains(d, "underline") {
			m |= document.Underline
		}
		if strings.Contains(d, "line-through") {
			m |= document.Strikethrough
		}
	}
	return m
}
