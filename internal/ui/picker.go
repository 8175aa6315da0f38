package ui

import (
	"strings"

	"github.com/agriinsight/harvest"
)

// picker is a vertical option list with a cursor and a chosen value.
type picker struct {
	title   string
	options []string
	cursor  int
	chosen  string
}

// sync replaces the options, keeping the cursor on the chosen value when it
// is still offered.
func (p *picker) sync(options []string, chosen string) {
	p.options = options
	p.chosen = chosen
	for i, o := range options {
		if o == chosen {
			p.cursor = i
			return
		}
	}
	if p.cursor >= len(options) {
		p.cursor = max(len(options)-1, 0)
	}
}

func (p *picker) move(delta int) {
	if len(p.options) == 0 {
		return
	}
	p.cursor = (p.cursor + delta + len(p.options)) % len(p.options)
}

func (p *picker) current() (string, bool) {
	if p.cursor < 0 || p.cursor >= len(p.options) {
		return "", false
	}
	return p.options[p.cursor], true
}

func (p *picker) render(st Styles, focused bool, status harvest.Status, msg, spin string) string {
	var b strings.Builder
	b.WriteString(st.Label.Render(p.title))
	b.WriteString("\n")

	switch {
	case status == harvest.StatusLoading:
		b.WriteString(spin + " loading")
	case status == harvest.StatusFailed:
		b.WriteString(st.Error.Render(msg))
	case len(p.options) == 0:
		b.WriteString(st.Muted.Render("(none)"))
	default:
		for i, o := range p.options {
			line := "  " + o
			if focused && i == p.cursor {
				line = st.Cursor.Render("> " + o)
			} else if o == p.chosen {
				line = st.Selected.Render("• " + o)
			}
			b.WriteString(line)
			if i < len(p.options)-1 {
				b.WriteString("\n")
			}
		}
	}

	if focused {
		return st.Focused.Render(b.String())
	}
	return st.Column.Render(b.String())
}
