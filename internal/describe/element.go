// internal/describe/element.go
package describe

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/litmus/internal/pageindex"
)

// Element describes n for logs and error messages. Options and option groups
// name their select, checkboxes and radio buttons wrapped in a label name the
// label together with their checked state. idx may be nil.
func Element(idx *pageindex.PageIndex, n *html.Node) string {
	if n == nil {
		return "[]"
	}
	if n.Type != html.ElementNode {
		return "[" + pageindex.TypeName(n) + "]"
	}

	b := CreateDefault(n, idx)
	switch kind := pageindex.KindOf(n); kind {
	case pageindex.KindLabel:
		if v, ok := pageindex.LookupAttr(n, "for"); ok {
			b.AddFor(v)
		}
	case pageindex.KindOption, pageindex.KindOptGroup:
		if sel := ancestor(n, pageindex.KindSelect); sel != nil {
			b.partOf(CreateDefault(sel, idx))
		}
	case pageindex.KindCheckBoxInput, pageindex.KindRadioButtonInput:
		if label := ancestor(n, pageindex.KindLabel); label != nil {
			lb := CreateDefault(label, idx)
			if v, ok := pageindex.LookupAttr(label, "for"); ok {
				lb.AddFor(v)
			}
			lb.AddText(join(lb.text, checkedState(n)))
			b.by(lb)
		}
	}
	return b.Build()
}

// primaryText is the rendered text shown in quotes for n.
func primaryText(n *html.Node, idx *pageindex.PageIndex) string {
	switch pageindex.KindOf(n) {
	case pageindex.KindImage:
		if src := pageindex.Attr(n, "src"); src != "" {
			return "image: " + src
		}
	case pageindex.KindOptGroup:
		return pageindex.Attr(n, "label")
	}
	if idx == nil {
		return ""
	}
	return idx.AsText(n)
}

func checkedState(n *html.Node) string {
	if _, ok := pageindex.LookupAttr(n, "checked"); ok {
		return "checked"
	}
	return "unchecked"
}

func ancestor(n *html.Node, kind pageindex.Kind) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && pageindex.KindOf(p) == kind {
			return p
		}
	}
	return nil
}

func join(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
