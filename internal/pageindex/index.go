// internal/pageindex/index.go
package pageindex

import (
	"golang.org/x/net/html"
)

// PageIndex is the immutable rendered-text index of one DOM snapshot. It is
// safe for concurrent readers once Build returns. Queries on nodes that were
// not indexed (text nodes, descendants of hidden elements, foreign nodes)
// return zero values.
type PageIndex struct {
	root *html.Node

	text        string
	textWithout string

	nodes        []*html.Node
	order        map[*html.Node]int
	parents      []int
	last         []int
	paths        []string
	kinds        []Kind
	spans        []Span
	spansWithout []Span
	controls     []int

	byID map[string]*html.Node
}

// Root returns the node the index was built from.
func (p *PageIndex) Root() *html.Node { return p.root }

// Text returns the rendered text including form control contents.
func (p *PageIndex) Text() string { return p.text }

// TextWithoutFormControls returns the rendered text without any form control
// contents.
func (p *PageIndex) TextWithoutFormControls() string { return p.textWithout }

// Elements returns the indexed elements in document order.
func (p *PageIndex) Elements() []*html.Node {
	out := make([]*html.Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// lookup returns the internal id of n.
func (p *PageIndex) lookup(n *html.Node) (int, bool) {
	if n == nil {
		return 0, false
	}
	id, ok := p.order[n]
	return id, ok
}

// Index returns the 1-based document order of n, or 0 when n is not indexed.
func (p *PageIndex) Index(n *html.Node) int {
	id, ok := p.lookup(n)
	if !ok {
		return 0
	}
	return id + 1
}

// Hierarchy returns the ">"-joined orders from the root down to n, e.g. "1>3>4".
func (p *PageIndex) Hierarchy(n *html.Node) string {
	id, ok := p.lookup(n)
	if !ok {
		return ""
	}
	return p.paths[id]
}

// Position returns the span of n in Text.
func (p *PageIndex) Position(n *html.Node) (Span, bool) {
	id, ok := p.lookup(n)
	if !ok {
		return Span{}, false
	}
	return p.spans[id], true
}

// PositionWithoutFormControls returns the span of n in TextWithoutFormControls.
func (p *PageIndex) PositionWithoutFormControls(n *html.Node) (Span, bool) {
	id, ok := p.lookup(n)
	if !ok {
		return Span{}, false
	}
	return p.spansWithout[id], true
}

// AsText returns the rendered text of n including form control contents.
func (p *PageIndex) AsText(n *html.Node) string {
	span, ok := p.Position(n)
	if !ok {
		return ""
	}
	return p.text[span.Start:span.End]
}

// AsTextWithoutFormControls returns the rendered text of n without form
// control contents.
func (p *PageIndex) AsTextWithoutFormControls(n *html.Node) string {
	span, ok := p.PositionWithoutFormControls(n)
	if !ok {
		return ""
	}
	return p.textWithout[span.Start:span.End]
}

// TextBefore returns the rendered text, including form controls, from the
// start of the page to the start of n.
func (p *PageIndex) TextBefore(n *html.Node) string {
	span, ok := p.Position(n)
	if !ok {
		return ""
	}
	return p.text[:span.Start]
}

// ElementByID returns the first element in document order carrying the given
// id attribute. Elements hidden by display:none are found as well.
func (p *PageIndex) ElementByID(id string) (*html.Node, error) {
	if n, ok := p.byID[id]; ok {
		return n, nil
	}
	return nil, &ElementNotFoundError{ID: id}
}

// Kind returns the kind of an indexed element, or KindElement.
func (p *PageIndex) Kind(n *html.Node) Kind {
	id, ok := p.lookup(n)
	if !ok {
		return KindOf(n)
	}
	return p.kinds[id]
}

// ancestorOfKind returns the id of the nearest strict ancestor of id with kind k.
func (p *PageIndex) ancestorOfKind(id int, k Kind) (int, bool) {
	for a := p.parents[id]; a >= 0; a = p.parents[a] {
		if p.kinds[a] == k {
			return a, true
		}
	}
	return 0, false
}

// contains reports whether id is anc or a descendant of it.
func (p *PageIndex) contains(anc, id int) bool {
	return id >= anc && id <= p.last[anc]
}
