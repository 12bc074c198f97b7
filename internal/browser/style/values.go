// internal/browser/style/values.go
package style

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/litmus/internal/browser/parser"
	"github.com/xkilldash9x/litmus/internal/pageindex"
)

// parseDisplay maps a display value to the renderer's display types. Values
// the renderer does not distinguish fold into the nearest type; unknown or
// missing values fall back to the HTML default of the element.
func parseDisplay(v parser.Value, n *html.Node) pageindex.Display {
	value := strings.ToLower(strings.TrimSpace(string(v)))
	// Two-value syntax: "block flow", "inline flex".
	if outer, inner, ok := strings.Cut(value, " "); ok {
		switch {
		case outer == "inline" && strings.TrimSpace(inner) != "flow":
			return pageindex.DisplayInlineBlock
		case outer == "block" || outer == "inline":
			value = outer
		}
	}

	switch value {
	case "none":
		return pageindex.DisplayNone
	case "inline", "contents", "ruby", "ruby-text":
		return pageindex.DisplayInline
	case "block", "flow-root", "table-caption", "table-row-group",
		"table-header-group", "table-footer-group", "table-column", "table-column-group":
		return pageindex.DisplayBlock
	case "inline-block", "inline-flex", "inline-grid", "inline-table":
		return pageindex.DisplayInlineBlock
	case "list-item":
		return pageindex.DisplayListItem
	case "table":
		return pageindex.DisplayTable
	case "table-row":
		return pageindex.DisplayTableRow
	case "table-cell":
		return pageindex.DisplayTableCell
	case "flex":
		return pageindex.DisplayFlex
	case "grid":
		return pageindex.DisplayGrid
	}
	return pageindex.DefaultDisplay(n)
}

func visible(visibility string) bool {
	return visibility != "hidden" && visibility != "collapse"
}

// opaque reports whether an opacity value leaves the element painted.
// Percentages are accepted.
func opaque(v parser.Value) bool {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return true
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s, scale = strings.TrimSuffix(s, "%"), 100
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return true
	}
	return f/scale > 0
}

func parseTextTransform(v string) pageindex.TextTransform {
	switch v {
	case "uppercase":
		return pageindex.TransformUppercase
	case "lowercase":
		return pageindex.TransformLowercase
	case "capitalize":
		return pageindex.TransformCapitalize
	}
	return pageindex.TransformNone
}

// Computed converts the values a browser reports from getComputedStyle.
// Browsers report visibility and text-transform already inherited, while
// opacity is per element and is combined with parentOpaque here.
func Computed(n *html.Node, display, visibility, textTransform, opacity string, parentOpaque bool) pageindex.ComputedStyle {
	return pageindex.ComputedStyle{
		Display:       parseDisplay(parser.Value(display), n),
		Visible:       visible(strings.ToLower(visibility)),
		Opaque:        parentOpaque && opaque(parser.Value(opacity)),
		TextTransform: parseTextTransform(strings.ToLower(textTransform)),
	}
}
