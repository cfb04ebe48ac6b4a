package document

// Mark is a bitmask of boolean text formats. A single flag names one mark; a combination
// is the full mark set of a leaf.
type Mark uint16

const (
	Bold Mark = 1 << iota
	Italic
	Underline
	Strikethrough
	Code
	Highlight
	Superscript
	Subscript
)

// markOrder fixes the serialization order of marks.
var markOrder = []struct {
	mark Mark
	name string
}{
	{Bold, "bold"},
	{Italic, "italic"},
	{Underline, "underline"},
	{Strikethrough, "strikethrough"},
	{Code, "code"},
	{Highlight, "highlight"},
	{Superscript, "superscript"},
	{Subscript, "subscript"},
}

// ParseMark resolves a mark name such as "bold".
func ParseMark(name string) (Mark, bool) {
	for _, m := range markOrder {
		if m.name == name {
			return m.mark, true
		}
	}
	return 0, false
}

// Has reports whether every flag in m2 is set in m.
func (m Mark) Has(m2 Mark) bool {
	return m2 != 0 && m&m2 == m2
}

func (m Mark) With(m2 Mark) Mark    { return m | m2 }
func (m Mark) Without(m2 Mark) Mark { return m &^ m2 }

// Names lists the set marks in serialization order.
func (m Mark) Names() []string {
	var names []string
	for _, mk := range markOrder {
		if m&mk.mark != 0 {
			names = append(names, mk.name)
		}
	}
	return names
}

func (m Mark) String() string {
	names := m.Names()
	if len(names) == 0 {
		return "plain"
	}
	s := names[0]
	for _, n := range names[1:] {
		s += "+" + n
	}
	return s
}
