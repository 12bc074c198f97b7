// internal/browser/style/selectors.go
package style

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/litmus/internal/browser/parser"
)

// matchesAny returns the highest specificity among the selectors matching node.
func matchesAny(node *html.Node, selectors []parser.ComplexSelector) (parser.Specificity, bool) {
	var best parser.Specificity
	found := false
	for _, cs := range selectors {
		if len(cs.Selectors) == 0 || !recursiveMatch(node, cs, len(cs.Selectors)-1) {
			continue
		}
		if spec := cs.Specificity(); !found || best.Less(spec) {
			best = spec
		}
		found = true
	}
	return best, found
}

// recursiveMatch matches selector index against node, then walks the
// combinator chain right to left.
func recursiveMatch(node *html.Node, cs parser.ComplexSelector, index int) bool {
	if node == nil || index < 0 || node.Type != html.ElementNode {
		return false
	}
	current := cs.Selectors[index]
	if !matchesSimple(node, current.SimpleSelector) {
		return false
	}
	if index == 0 {
		return true
	}
	next := index - 1
	switch current.Combinator {
	case parser.CombinatorDescendant:
		for p := node.Parent; p != nil; p = p.Parent {
			if recursiveMatch(p, cs, next) {
				return true
			}
		}
		return false
	case parser.CombinatorChild:
		return recursiveMatch(node.Parent, cs, next)
	case parser.CombinatorAdjacentSibling:
		return recursiveMatch(previousElementSibling(node), cs, next)
	case parser.CombinatorGeneralSibling:
		for s := previousElementSibling(node); s != nil; s = previousElementSibling(s) {
			if recursiveMatch(s, cs, next) {
				return true
			}
		}
		return false
	}
	return false
}

func previousElementSibling(node *html.Node) *html.Node {
	for s := node.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func matchesSimple(node *html.Node, sel parser.SimpleSelector) bool {
	// Dynamic and structural pseudo-classes are not evaluated, and
	// pseudo-elements never style the element itself.
	if len(sel.PseudoClasses) > 0 || sel.PseudoElement != "" {
		return false
	}
	if sel.TagName != "" && sel.TagName != "*" && !strings.EqualFold(node.Data, sel.TagName) {
		return false
	}
	if sel.ID != "" {
		if id, ok := attr(node, "id"); !ok || id != sel.ID {
			return false
		}
	}
	if len(sel.Classes) > 0 {
		class, _ := attr(node, "class")
		have := strings.Fields(class)
		for _, want := range sel.Classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, a := range sel.Attributes {
		if !matchesAttribute(node, a) {
			return false
		}
	}
	return true
}

func matchesAttribute(node *html.Node, sel parser.AttributeSelector) bool {
	actual, found := attr(node, sel.Name)
	if !found {
		return false
	}
	switch sel.Operator {
	case "":
		return true
	case "=":
		return actual == sel.Value
	case "~=":
		return contains(strings.Fields(actual), sel.Value)
	case "|=":
		return actual == sel.Value || strings.HasPrefix(actual, sel.Value+"-")
	case "^=":
		return sel.Value != "" && strings.HasPrefix(actual, sel.Value)
	case "$=":
		return sel.Value != "" && strings.HasSuffix(actual, sel.Value)
	case "*=":
		return sel.Value != "" && strings.Contains(actual, sel.Value)
	}
	return false
}

func attr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
