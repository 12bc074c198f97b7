package pageindex

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// parseDoc parses an HTML fragment into a full document tree.
func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

// byID finds an element by id using an XPath query.
func byID(t *testing.T, doc *html.Node, id string) *html.Node {
	t.Helper()
	n := htmlquery.FindOne(doc, "//*[@id='"+id+"']")
	require.NotNil(t, n, "no element with id %q in fixture", id)
	return n
}

// inlineStyles resolves display, visibility and text-transform from inline
// style attributes only, inheriting visibility and text-transform.
type inlineStyles struct{}

func (inlineStyles) ComputedStyle(n *html.Node) ComputedStyle {
	cs := DefaultStyle(n)
	switch declarations(n)["display"] {
	case "none":
		cs.Display = DisplayNone
	case "block":
		cs.Display = DisplayBlock
	case "inline":
		cs.Display = DisplayInline
	case "inline-block":
		cs.Display = DisplayInlineBlock
	}
	if v, ok := declarations(n)["opacity"]; ok && (v == "0" || v == "0.0") {
		cs.Opaque = false
	}
	if v, ok := inherited(n, "visibility"); ok {
		cs.Visible = v != "hidden" && v != "collapse"
	}
	if v, ok := inherited(n, "text-transform"); ok {
		switch v {
		case "uppercase":
			cs.TextTransform = TransformUppercase
		case "lowercase":
			cs.TextTransform = TransformLowercase
		case "capitalize":
			cs.TextTransform = TransformCapitalize
		}
	}
	return cs
}

func inherited(n *html.Node, prop string) (string, bool) {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if v, ok := declarations(n)[prop]; ok {
			return v, true
		}
	}
	return "", false
}

func declarations(n *html.Node) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(Attr(n, "style"), ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(strings.ToLower(name))] = strings.TrimSpace(strings.ToLower(value))
	}
	return out
}
