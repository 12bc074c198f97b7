// internal/pageindex/label.go
package pageindex

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// LabelingTextBefore returns the text that may label n from the left: the
// text without form controls between the latest of offset, the start of the
// enclosing form and the end of the nearest preceding labelable control, up to
// the start of n. Offsets are positions in TextWithoutFormControls.
//
// A <button> directly in front of n (only whitespace between them) lends its
// full label instead. When n sits inside a button, the button text in front of
// n is appended.
func (p *PageIndex) LabelingTextBefore(n *html.Node, offset int) string {
	id, ok := p.lookup(n)
	if !ok {
		return ""
	}
	end := p.spansWithout[id].Start
	start := offset
	if start < 0 {
		start = 0
	}
	if form, ok := p.ancestorOfKind(id, KindForm); ok && p.spansWithout[form].Start > start {
		start = p.spansWithout[form].Start
	}

	var text string
	if c, ok := p.previousControl(id); ok {
		cs := p.spansWithout[c]
		if p.kinds[c] == KindButton && cs.Start >= start && blank(p.textWithout, cs.End, end) {
			text = strings.TrimSpace(p.AsText(p.nodes[c]))
		} else {
			if cs.End > start {
				start = cs.End
			}
			text = slice(p.textWithout, start, end)
		}
	} else {
		text = slice(p.textWithout, start, end)
	}

	if button, ok := p.ancestorOfKind(id, KindButton); ok {
		text = join(text, slice(p.text, p.spans[button].Start, p.spans[id].Start))
	}
	return text
}

// LabelingTextAfter returns the text that may label n from the right: the
// text without form controls from the end of n to the start of the next
// labelable control, never past the end of the enclosing form.
//
// A <button> directly after n lends its full label instead. When n sits inside
// a button, the button text after n is prepended.
func (p *PageIndex) LabelingTextAfter(n *html.Node) string {
	id, ok := p.lookup(n)
	if !ok {
		return ""
	}
	start := p.spansWithout[id].End
	end := len(p.textWithout)
	if form, ok := p.ancestorOfKind(id, KindForm); ok {
		end = p.spansWithout[form].End
	}

	var text string
	if c, ok := p.nextControl(id); ok {
		cs := p.spansWithout[c]
		if p.kinds[c] == KindButton && cs.Start <= end && blank(p.textWithout, start, cs.Start) {
			text = strings.TrimSpace(p.AsText(p.nodes[c]))
		} else {
			if cs.Start < end {
				end = cs.Start
			}
			text = slice(p.textWithout, start, end)
		}
	} else {
		text = slice(p.textWithout, start, end)
	}

	if button, ok := p.ancestorOfKind(id, KindButton); ok {
		text = join(slice(p.text, p.spans[id].End, p.spans[button].End), text)
	}
	return text
}

// previousControl finds the nearest labelable control before id that does not
// contain it.
func (p *PageIndex) previousControl(id int) (int, bool) {
	i := sort.SearchInts(p.controls, id)
	for i--; i >= 0; i-- {
		c := p.controls[i]
		if !p.contains(c, id) {
			return c, true
		}
	}
	return 0, false
}

// nextControl finds the nearest labelable control after id and its subtree.
func (p *PageIndex) nextControl(id int) (int, bool) {
	i := sort.SearchInts(p.controls, p.last[id]+1)
	if i < len(p.controls) {
		return p.controls[i], true
	}
	return 0, false
}

func slice(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return ""
	}
	return strings.TrimSpace(text[start:end])
}

func blank(text string, start, end int) bool {
	return slice(text, start, end) == ""
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
