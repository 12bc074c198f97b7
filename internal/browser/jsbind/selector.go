// internal/browser/jsbind/selector.go
package jsbind

import (
	"fmt"
	"strings"
)

// translateCSSToXPath translates the selector subset scripts commonly use to
// an XPath 1.0 expression for htmlquery: type, #id, .class, attribute
// selectors, the four combinators, :first-child, :last-child and comma
// groups. Input that already looks like XPath is passed through. A scoped
// translation searches below the context node.
func translateCSSToXPath(css string, scoped bool) (string, error) {
	css = strings.TrimSpace(css)
	if css == "" {
		return "", &InvalidSelectorError{Selector: css}
	}
	if strings.HasPrefix(css, "/") || strings.HasPrefix(css, "./") || strings.HasPrefix(css, "(") {
		return css, nil
	}

	var groups []string
	for _, group := range splitTopLevel(css, ',') {
		xp, err := translateComplex(strings.TrimSpace(group), scoped)
		if err != nil {
			return "", err
		}
		groups = append(groups, xp)
	}
	return strings.Join(groups, " | "), nil
}

func translateComplex(sel string, scoped bool) (string, error) {
	if sel == "" {
		return "", &InvalidSelectorError{Selector: sel}
	}
	var xpath strings.Builder
	if scoped {
		xpath.WriteString(".")
	}
	axis := "//"
	for i := 0; i < len(sel); {
		switch c := sel[i]; {
		case c == ' ' || c == '\t' || c == '\n':
			i++
			continue
		case c == '>':
			axis = "/"
			i++
			continue
		case c == '+':
			axis = "/following-sibling::*[1]/self::"
			i++
			continue
		case c == '~':
			axis = "/following-sibling::"
			i++
			continue
		}

		end := compoundEnd(sel, i)
		step, err := translateCompound(sel[i:end])
		if err != nil {
			return "", err
		}
		xpath.WriteString(axis)
		xpath.WriteString(step)
		axis = "//"
		i = end
	}
	if xpath.Len() <= 1 {
		return "", &InvalidSelectorError{Selector: sel}
	}
	return xpath.String(), nil
}

// compoundEnd finds the end of the compound selector starting at i.
func compoundEnd(sel string, i int) int {
	depth := 0
	var quote byte
	for ; i < len(sel); i++ {
		c := sel[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case depth == 0 && strings.IndexByte(" \t\n>+~", c) >= 0:
			return i
		}
	}
	return i
}

func translateCompound(compound string) (string, error) {
	tag := "*"
	var predicates []string
	rest := compound

	if n := identLen(rest); n > 0 {
		tag = strings.ToLower(rest[:n])
		rest = rest[n:]
	} else if strings.HasPrefix(rest, "*") {
		rest = rest[1:]
	}

	for rest != "" {
		switch rest[0] {
		case '#':
			n := identLen(rest[1:])
			if n == 0 {
				return "", &InvalidSelectorError{Selector: compound}
			}
			predicates = append(predicates, fmt.Sprintf("@id=%s", literal(rest[1:1+n])))
			rest = rest[1+n:]
		case '.':
			n := identLen(rest[1:])
			if n == 0 {
				return "", &InvalidSelectorError{Selector: compound}
			}
			predicates = append(predicates, fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), %s)", literal(" "+rest[1:1+n]+" ")))
			rest = rest[1+n:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", &InvalidSelectorError{Selector: compound}
			}
			pred, err := attributePredicate(rest[1:end])
			if err != nil {
				return "", err
			}
			predicates = append(predicates, pred)
			rest = rest[end+1:]
		case ':':
			n := identLen(rest[1:])
			switch strings.ToLower(rest[1 : 1+n]) {
			case "first-child":
				predicates = append(predicates, "not(preceding-sibling::*)")
			case "last-child":
				predicates = append(predicates, "not(following-sibling::*)")
			default:
				return "", &InvalidSelectorError{Selector: compound}
			}
			rest = rest[1+n:]
		default:
			return "", &InvalidSelectorError{Selector: compound}
		}
	}

	if len(predicates) == 0 {
		return tag, nil
	}
	return tag + "[" + strings.Join(predicates, " and ") + "]", nil
}

func attributePredicate(body string) (string, error) {
	opStart := strings.IndexAny(body, "=~|^$*")
	if opStart < 0 {
		name := strings.TrimSpace(body)
		if name == "" {
			return "", &InvalidSelectorError{Selector: "[" + body + "]"}
		}
		return "@" + strings.ToLower(name), nil
	}

	name := "@" + strings.ToLower(strings.TrimSpace(body[:opStart]))
	op := body[opStart : opStart+1]
	valueStart := opStart + 1
	if op != "=" {
		if valueStart >= len(body) || body[valueStart] != '=' {
			return "", &InvalidSelectorError{Selector: "[" + body + "]"}
		}
		valueStart++
	}
	value := strings.TrimSpace(body[valueStart:])
	value = strings.Trim(value, `"'`)
	lit := literal(value)

	switch op {
	case "=":
		return fmt.Sprintf("%s=%s", name, lit), nil
	case "~":
		return fmt.Sprintf("contains(concat(' ', normalize-space(%s), ' '), %s)", name, literal(" "+value+" ")), nil
	case "|":
		return fmt.Sprintf("(%s=%s or starts-with(%s, %s))", name, lit, name, literal(value+"-")), nil
	case "^":
		return fmt.Sprintf("starts-with(%s, %s)", name, lit), nil
	case "$":
		return fmt.Sprintf("substring(%s, string-length(%s) - %d) = %s", name, name, len(value)-1, lit), nil
	case "*":
		return fmt.Sprintf("contains(%s, %s)", name, lit), nil
	}
	return "", &InvalidSelectorError{Selector: "[" + body + "]"}
}

// literal quotes a string for XPath 1.0, which has no escape sequences.
func literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

func identLen(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c >= 0x80 {
			n++
			continue
		}
		break
	}
	return n
}

// splitTopLevel splits s on sep outside brackets and quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
