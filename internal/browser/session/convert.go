// internal/browser/session/convert.go
package session

import (
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type element struct {
	node      *html.Node
	backendID cdp.BackendNodeID
}

// document is a CDP DOM tree converted to x/net/html, with its elements in
// document order.
type document struct {
	root     *html.Node
	elements []element
}

// convertDocument converts the tree returned by DOM.getDocument. Template
// contents, shadow roots and frame documents are not part of the light DOM
// children and are left out, matching document.querySelectorAll('*').
func convertDocument(root *cdp.Node) *document {
	d := &document{}
	if root == nil {
		d.root = &html.Node{Type: html.DocumentNode}
		return d
	}
	d.root = d.convert(root)
	if d.root == nil || d.root.Type != html.DocumentNode {
		doc := &html.Node{Type: html.DocumentNode}
		if d.root != nil {
			doc.AppendChild(d.root)
		}
		d.root = doc
	}
	return d
}

func (d *document) convert(n *cdp.Node) *html.Node {
	var out *html.Node
	switch n.NodeType {
	case cdp.NodeTypeDocument, cdp.NodeTypeDocumentFragment:
		out = &html.Node{Type: html.DocumentNode}
	case cdp.NodeTypeDocumentType:
		return &html.Node{Type: html.DoctypeNode, Data: strings.ToLower(n.NodeName)}
	case cdp.NodeTypeText, cdp.NodeTypeCDATA:
		return &html.Node{Type: html.TextNode, Data: n.NodeValue}
	case cdp.NodeTypeComment:
		return &html.Node{Type: html.CommentNode, Data: n.NodeValue}
	case cdp.NodeTypeElement:
		name := n.LocalName
		if name == "" {
			name = strings.ToLower(n.NodeName)
		}
		out = &html.Node{
			Type:     html.ElementNode,
			Data:     name,
			DataAtom: atom.Lookup([]byte(name)),
			Attr:     attributes(n.Attributes),
		}
		d.elements = append(d.elements, element{node: out, backendID: n.BackendNodeID})
	default:
		return nil
	}

	for _, child := range n.Children {
		if c := d.convert(child); c != nil {
			out.AppendChild(c)
		}
	}
	return out
}

// attributes decodes CDP's flat name, value, name, value list.
func attributes(flat []string) []html.Attribute {
	if len(flat) < 2 {
		return nil
	}
	out := make([]html.Attribute, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out = append(out, html.Attribute{Key: strings.ToLower(flat[i]), Val: flat[i+1]})
	}
	return out
}
