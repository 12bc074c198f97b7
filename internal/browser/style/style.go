// internal/browser/style/style.go
package style

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/litmus/internal/browser/parser"
	"github.com/xkilldash9x/litmus/internal/pageindex"
)

// Engine runs the CSS cascade over a document and reduces the result to the
// flags the page index needs. User agent defaults for display come from
// pageindex.DefaultDisplay; an extra user agent sheet may refine them.
type Engine struct {
	userAgentSheets []parser.StyleSheet
	authorSheets    []parser.StyleSheet
	logger          *zap.Logger
}

// NewEngine creates an engine without any stylesheet. A nil logger is replaced
// by a no-op logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("style")}
}

// AddUserAgentSheet adds a sheet with user agent precedence.
func (se *Engine) AddUserAgentSheet(sheet parser.StyleSheet) {
	se.userAgentSheets = append(se.userAgentSheets, sheet)
}

// AddAuthorSheet adds a stylesheet provided by the page author.
func (se *Engine) AddAuthorSheet(sheet parser.StyleSheet) {
	se.authorSheets = append(se.authorSheets, sheet)
}

// CollectSheets adds every <style> element of the document as an author
// sheet, in document order. Sheets restricted to non-screen media and sheets
// inside <template> are ignored. External stylesheets are not fetched.
func (se *Engine) CollectSheets(root *html.Node) int {
	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Template:
				return
			case atom.Style:
				media := strings.ToLower(strings.TrimSpace(pageindex.Attr(n, "media")))
				if media == "" || media == "all" || media == "screen" {
					se.AddAuthorSheet(parser.NewParser(textContent(n)).Parse())
					count++
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	se.logger.Debug("Collected author stylesheets.", zap.Int("count", count))
	return count
}

type StyleOrigin int

const (
	OriginUserAgent StyleOrigin = iota
	OriginAuthor
	OriginInline
)

type DeclarationWithContext struct {
	Declaration parser.Declaration
	Specificity parser.Specificity
	Origin      StyleOrigin
	Order       int
}

// CalculateStyles returns the cascaded (not yet inherited) declarations of an
// element.
func (se *Engine) CalculateStyles(node *html.Node) map[parser.Property]parser.Value {
	styles := make(map[parser.Property]parser.Value)
	if node == nil || node.Type != html.ElementNode {
		return styles
	}

	var declarations []DeclarationWithContext
	order := 0
	processSheets := func(sheets []parser.StyleSheet, origin StyleOrigin) {
		for _, sheet := range sheets {
			for _, rule := range sheet.Rules {
				spec, ok := matchesAny(node, rule.Selectors)
				if !ok {
					continue
				}
				for _, decl := range rule.Declarations {
					declarations = append(declarations, DeclarationWithContext{
						Declaration: decl,
						Specificity: spec,
						Origin:      origin,
						Order:       order,
					})
					order++
				}
			}
		}
	}
	processSheets(se.userAgentSheets, OriginUserAgent)
	processSheets(se.authorSheets, OriginAuthor)

	if inline, ok := pageindex.LookupAttr(node, "style"); ok {
		for _, decl := range parser.ParseInline(inline) {
			declarations = append(declarations, DeclarationWithContext{
				Declaration: decl,
				Specificity: parser.Specificity{A: 1},
				Origin:      OriginInline,
				Order:       order,
			})
			order++
		}
	}

	sort.SliceStable(declarations, func(i, j int) bool {
		d1, d2 := declarations[i], declarations[j]
		if p1, p2 := cascadePriority(d1), cascadePriority(d2); p1 != p2 {
			return p1 < p2
		}
		if d1.Specificity != d2.Specificity {
			return d1.Specificity.Less(d2.Specificity)
		}
		return d1.Order < d2.Order
	})

	for _, d := range declarations {
		styles[d.Declaration.Property] = parser.Value(strings.TrimSpace(string(d.Declaration.Value)))
	}
	return styles
}

func cascadePriority(d DeclarationWithContext) int {
	important := d.Declaration.Important
	switch d.Origin {
	case OriginUserAgent:
		if important {
			return 5
		}
		return 1
	case OriginAuthor:
		if important {
			return 4
		}
		return 2
	case OriginInline:
		if important {
			return 4
		}
		return 3
	}
	return 0
}

// computed is the inherited state carried down the tree.
type computed struct {
	visibility string
	transform  string
	opaque     bool
}

// Resolve computes the style of every element under root. The result is a
// pageindex.StyleMap, so elements added later fall back to HTML defaults.
func (se *Engine) Resolve(root *html.Node) pageindex.StyleMap {
	out := make(pageindex.StyleMap)
	if root == nil {
		return out
	}
	var walk func(n *html.Node, parent computed)
	walk = func(n *html.Node, parent computed) {
		state := parent
		if n.Type == html.ElementNode {
			styles := se.CalculateStyles(n)
			state = computed{
				visibility: inherit(styles["visibility"], parent.visibility),
				transform:  inherit(styles["text-transform"], parent.transform),
				opaque:     parent.opaque && opaque(styles["opacity"]),
			}
			out[n] = pageindex.ComputedStyle{
				Display:       parseDisplay(styles["display"], n),
				Visible:       visible(state.visibility),
				Opaque:        state.opaque,
				TextTransform: parseTextTransform(state.transform),
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, state)
		}
	}
	walk(root, computed{visibility: "visible", transform: "none", opaque: true})
	se.logger.Debug("Resolved computed styles.", zap.Int("elements", len(out)))
	return out
}

// inherit resolves an inherited property: unset and "inherit" take the
// parent value, "initial" the initial value.
func inherit(v parser.Value, parent string) string {
	switch s := strings.ToLower(string(v)); s {
	case "", "inherit", "unset":
		return parent
	case "initial":
		return ""
	default:
		return s
	}
}

// Resolve runs a fresh engine over the <style> sheets of a document.
func Resolve(root *html.Node, logger *zap.Logger) pageindex.StyleMap {
	se := NewEngine(logger)
	se.CollectSheets(root)
	return se.Resolve(root)
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
