// internal/pageindex/style.go
package pageindex

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Display is the resolved CSS display type, reduced to what the renderer needs.
type Display int

const (
	DisplayInline Display = iota
	DisplayBlock
	DisplayInlineBlock
	DisplayListItem
	DisplayTable
	DisplayTableRow
	DisplayTableCell
	DisplayFlex
	DisplayGrid
	DisplayNone
)

// separates reports whether the display type is set apart from its
// neighbours by a single space in the rendered text.
func (d Display) separates() bool {
	return d != DisplayInline && d != DisplayNone
}

// TextTransform mirrors the CSS text-transform property.
type TextTransform int

const (
	TransformNone TextTransform = iota
	TransformUppercase
	TransformLowercase
	TransformCapitalize
)

// ComputedStyle holds the resolved flags of one element. Visible and
// TextTransform are already inherited by the resolver.
type ComputedStyle struct {
	Display       Display
	Visible       bool
	Opaque        bool
	TextTransform TextTransform
}

// StyleResolver supplies the computed style of an element.
type StyleResolver interface {
	ComputedStyle(n *html.Node) ComputedStyle
}

// StyleMap is a precomputed StyleResolver. Elements missing from the map fall
// back to DefaultStyle.
type StyleMap map[*html.Node]ComputedStyle

// ComputedStyle implements StyleResolver.
func (m StyleMap) ComputedStyle(n *html.Node) ComputedStyle {
	if cs, ok := m[n]; ok {
		return cs
	}
	return DefaultStyle(n)
}

// DefaultStyle is the style of an element when no stylesheet applies.
func DefaultStyle(n *html.Node) ComputedStyle {
	return ComputedStyle{
		Display: DefaultDisplay(n),
		Visible: true,
		Opaque:  true,
	}
}

// DefaultDisplay returns the user agent display type of an element.
func DefaultDisplay(n *html.Node) Display {
	if n == nil || n.Type != html.ElementNode {
		return DisplayInline
	}
	if _, hidden := LookupAttr(n, "hidden"); hidden {
		return DisplayNone
	}
	switch tagAtom(n) {
	case atom.Script, atom.Style, atom.Title, atom.Meta, atom.Link, atom.Base,
		atom.Noscript, atom.Template, atom.Datalist, atom.Param:
		return DisplayNone
	case atom.Input:
		if KindOf(n) == KindHiddenInput {
			return DisplayNone
		}
		return DisplayInlineBlock
	case atom.Button, atom.Select, atom.Textarea:
		return DisplayInlineBlock
	case atom.Li:
		return DisplayListItem
	case atom.Table:
		return DisplayTable
	case atom.Tr:
		return DisplayTableRow
	case atom.Td, atom.Th:
		return DisplayTableCell
	case atom.Html, atom.Head, atom.Body, atom.Address, atom.Article, atom.Aside,
		atom.Blockquote, atom.Center, atom.Dd, atom.Details, atom.Dialog, atom.Dir,
		atom.Div, atom.Dl, atom.Dt, atom.Fieldset, atom.Figcaption, atom.Figure,
		atom.Footer, atom.Form, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Header, atom.Hgroup, atom.Hr, atom.Legend, atom.Main, atom.Menu,
		atom.Nav, atom.Ol, atom.Ul, atom.P, atom.Pre, atom.Section, atom.Summary,
		atom.Caption, atom.Thead, atom.Tbody, atom.Tfoot, atom.Optgroup, atom.Option:
		return DisplayBlock
	}
	return DisplayInline
}

type defaultResolver struct{}

func (defaultResolver) ComputedStyle(n *html.Node) ComputedStyle { return DefaultStyle(n) }
