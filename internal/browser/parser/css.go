// internal/browser/parser/css.go
package parser

import (
	"fmt"
	"strings"
)

// Property is a lower-cased CSS property name such as "display".
type Property string

// Value is a raw CSS value such as "none".
type Value string

// Declaration is one property: value pair.
type Declaration struct {
	Property  Property
	Value     Value
	Important bool
}

// RuleSet is a list of declarations applied by any of its selectors.
type RuleSet struct {
	Selectors    []ComplexSelector
	Declarations []Declaration
}

// StyleSheet is a parsed sheet. Rules keep their source order.
type StyleSheet struct {
	Rules []RuleSet
}

// ComplexSelector is a chain of compound selectors joined by combinators,
// e.g. "div > p.note".
type ComplexSelector struct {
	Selectors []SimpleSelectorWithCombinator
}

// SimpleSelectorWithCombinator pairs a compound selector with the combinator
// that links it to the previous one.
type SimpleSelectorWithCombinator struct {
	Combinator     Combinator
	SimpleSelector SimpleSelector
}

// SimpleSelector is a compound selector like input#name.required[type].
type SimpleSelector struct {
	TagName    string
	ID         string
	Classes    []string
	Attributes []AttributeSelector
	// PseudoClasses holds names like "hover" or "nth-child(2)". Elements are
	// matched in their static state, so a selector with pseudo-classes never
	// matches.
	PseudoClasses []string
	// PseudoElement is set for ::before, ::after and the like.
	PseudoElement string
}

// AttributeSelector is [name], [name=value] or one of the ~= |= ^= $= *= forms.
type AttributeSelector struct {
	Name     string
	Operator string
	Value    string
}

// Combinator links two compound selectors.
type Combinator int

const (
	CombinatorNone Combinator = iota
	CombinatorDescendant
	CombinatorChild
	CombinatorAdjacentSibling
	CombinatorGeneralSibling
)

// Specificity is the (a, b, c) triple of a selector.
type Specificity struct {
	A, B, C int
}

// Less orders specificities from weakest to strongest.
func (s Specificity) Less(o Specificity) bool {
	if s.A != o.A {
		return s.A < o.A
	}
	if s.B != o.B {
		return s.B < o.B
	}
	return s.C < o.C
}

// Specificity sums the specificity of every compound selector in the chain.
func (cs ComplexSelector) Specificity() Specificity {
	var total Specificity
	for _, s := range cs.Selectors {
		sp := s.SimpleSelector.Specificity()
		total.A += sp.A
		total.B += sp.B
		total.C += sp.C
	}
	return total
}

// Specificity of a compound selector. Attributes and pseudo-classes weigh like
// classes, pseudo-elements like tags.
func (s SimpleSelector) Specificity() Specificity {
	var sp Specificity
	if s.ID != "" {
		sp.A = 1
	}
	sp.B = len(s.Classes) + len(s.Attributes) + len(s.PseudoClasses)
	if s.TagName != "" && s.TagName != "*" {
		sp.C = 1
	}
	if s.PseudoElement != "" {
		sp.C++
	}
	return sp
}

func (s SimpleSelector) valid() bool {
	return s.TagName != "" || s.ID != "" || len(s.Classes) > 0 || len(s.Attributes) > 0 ||
		len(s.PseudoClasses) > 0 || s.PseudoElement != ""
}

// Parser is a forgiving recursive descent CSS parser. Malformed input is
// skipped up to the next rule or declaration, it never fails.
type Parser struct {
	input string
	pos   int
}

func NewParser(input string) *Parser {
	return &Parser{input: input}
}

// Parse reads the whole input as a stylesheet. Rules inside @media blocks
// that apply to screens are flattened into the sheet; other at-rules are
// skipped.
func (p *Parser) Parse() StyleSheet {
	return StyleSheet{Rules: p.parseRules(false)}
}

// ParseInline reads the contents of a style attribute.
func ParseInline(style string) []Declaration {
	p := NewParser(style)
	var decls []Declaration
	for {
		p.consumeWhitespace()
		if p.eof() {
			return decls
		}
		if p.currentChar() == '}' {
			p.consumeChar()
			continue
		}
		if d, ok := p.parseDeclaration(); ok {
			decls = append(decls, d)
		}
	}
}

func (p *Parser) parseRules(nested bool) []RuleSet {
	var rules []RuleSet
	for {
		p.consumeWhitespace()
		if p.eof() {
			break
		}
		if nested && p.currentChar() == '}' {
			p.consumeChar()
			break
		}
		if p.startsWith("/*") {
			p.skipComment()
			continue
		}
		// HTML comment delimiters are legal at the top level of a <style>.
		if p.startsWith("<!--") {
			p.consumeN(4)
			continue
		}
		if p.startsWith("-->") {
			p.consumeN(3)
			continue
		}
		if p.currentChar() == '@' {
			rules = append(rules, p.parseAtRule()...)
			continue
		}

		selectors := p.parseSelectorList()
		if len(selectors) == 0 {
			p.skipTo('{', '}')
			if !p.eof() && p.currentChar() == '{' {
				p.consumeChar()
				p.skipBlock('{', '}')
			} else if !nested && !p.eof() {
				p.consumeChar()
			}
			continue
		}
		decls, err := p.parseDeclarations()
		if err != nil {
			continue
		}
		if len(decls) > 0 {
			rules = append(rules, RuleSet{Selectors: selectors, Declarations: decls})
		}
	}
	return rules
}

// parseSelectorList reads "a, b > c" up to the opening brace.
func (p *Parser) parseSelectorList() []ComplexSelector {
	var list []ComplexSelector
	for {
		p.consumeWhitespace()
		if p.eof() || p.currentChar() == '{' || p.currentChar() == '}' {
			break
		}
		complex := p.parseComplexSelector()
		if len(complex.Selectors) > 0 {
			list = append(list, complex)
		}
		p.consumeWhitespace()
		if !p.eof() && p.currentChar() == ',' {
			p.consumeChar()
			continue
		}
		break
	}
	return list
}

func (p *Parser) parseComplexSelector() ComplexSelector {
	var complex ComplexSelector
	combinator := CombinatorNone
	for {
		p.consumeWhitespace()
		if p.eof() || strings.IndexByte("{},", p.currentChar()) >= 0 {
			break
		}
		simple, err := p.parseSimpleSelector()
		if err != nil {
			// Unparseable compound: drop the whole selector.
			p.skipTo(',', '{', '}')
			return ComplexSelector{}
		}
		complex.Selectors = append(complex.Selectors, SimpleSelectorWithCombinator{
			Combinator:     combinator,
			SimpleSelector: simple,
		})

		p.consumeWhitespace()
		if p.eof() || strings.IndexByte("{},", p.currentChar()) >= 0 {
			break
		}
		switch p.currentChar() {
		case '>':
			combinator = CombinatorChild
			p.consumeChar()
		case '+':
			combinator = CombinatorAdjacentSibling
			p.consumeChar()
		case '~':
			combinator = CombinatorGeneralSibling
			p.consumeChar()
		default:
			combinator = CombinatorDescendant
		}
	}
	return complex
}

func (p *Parser) parseSimpleSelector() (SimpleSelector, error) {
	var sel SimpleSelector
	if ch := p.currentChar(); ch == '*' {
		p.consumeChar()
		sel.TagName = "*"
	} else if isValidIdentifierStart(ch) {
		sel.TagName = strings.ToLower(p.parseIdentifier())
	}

	for !p.eof() {
		switch p.currentChar() {
		case '#':
			p.consumeChar()
			sel.ID = p.parseIdentifier()
		case '.':
			p.consumeChar()
			sel.Classes = append(sel.Classes, p.parseIdentifier())
		case '[':
			p.consumeChar()
			attr, err := p.parseAttributeSelector()
			if err != nil {
				return sel, err
			}
			sel.Attributes = append(sel.Attributes, attr)
		case ':':
			p.consumeChar()
			if p.currentChar() == ':' {
				p.consumeChar()
				sel.PseudoElement = strings.ToLower(p.parseIdentifier())
				continue
			}
			name := strings.ToLower(p.parseIdentifier())
			if p.currentChar() == '(' {
				start := p.pos
				p.consumeChar()
				p.skipBlock('(', ')')
				name += p.input[start:p.pos]
			}
			switch name {
			case "before", "after", "first-line", "first-letter":
				sel.PseudoElement = name
			default:
				sel.PseudoClasses = append(sel.PseudoClasses, name)
			}
		default:
			if !sel.valid() {
				return sel, fmt.Errorf("invalid selector at offset %d", p.pos)
			}
			return sel, nil
		}
	}
	if !sel.valid() {
		return sel, fmt.Errorf("empty selector")
	}
	return sel, nil
}

// parseAttributeSelector reads the inside of [...], the '[' already consumed.
func (p *Parser) parseAttributeSelector() (AttributeSelector, error) {
	p.consumeWhitespace()
	name := strings.ToLower(p.parseIdentifier())
	p.consumeWhitespace()
	if p.eof() {
		return AttributeSelector{}, fmt.Errorf("unterminated attribute selector")
	}
	if p.currentChar() == ']' {
		p.consumeChar()
		return AttributeSelector{Name: name}, nil
	}

	var op strings.Builder
	op.WriteByte(p.consumeChar())
	if op.String() != "=" && p.currentChar() == '=' {
		op.WriteByte(p.consumeChar())
	}
	p.consumeWhitespace()

	var value string
	if q := p.currentChar(); q == '"' || q == '\'' {
		p.consumeChar()
		start := p.pos
		for !p.eof() && p.currentChar() != q {
			p.pos++
		}
		value = p.input[start:p.pos]
		p.consumeChar()
	} else {
		value = p.parseIdentifier()
	}
	p.consumeWhitespace()
	// Case flags like [type=a i] are accepted and ignored.
	if ch := p.currentChar(); ch == 'i' || ch == 's' {
		p.consumeChar()
		p.consumeWhitespace()
	}
	if p.currentChar() != ']' {
		p.skipTo(']')
		p.consumeChar()
		return AttributeSelector{}, fmt.Errorf("expected ']' in attribute selector")
	}
	p.consumeChar()
	return AttributeSelector{Name: name, Operator: op.String(), Value: value}, nil
}

// parseDeclarations reads a { ... } block.
func (p *Parser) parseDeclarations() ([]Declaration, error) {
	p.consumeWhitespace()
	if p.currentChar() != '{' {
		return nil, fmt.Errorf("expected '{' at offset %d", p.pos)
	}
	p.consumeChar()

	var decls []Declaration
	for {
		p.consumeWhitespace()
		if p.eof() {
			break
		}
		if p.currentChar() == '}' {
			p.consumeChar()
			break
		}
		if p.startsWith("/*") {
			p.skipComment()
			continue
		}
		if d, ok := p.parseDeclaration(); ok {
			decls = append(decls, d)
		}
	}
	return decls, nil
}

// parseDeclaration reads "property: value [!important];". It leaves a closing
// '}' in place for the caller.
func (p *Parser) parseDeclaration() (Declaration, bool) {
	skip := func() (Declaration, bool) {
		p.skipTo(';', '}')
		if p.currentChar() == ';' {
			p.consumeChar()
		}
		return Declaration{}, false
	}

	if !isValidIdentifierStart(p.currentChar()) {
		return skip()
	}
	prop := strings.ToLower(p.parseIdentifier())
	p.consumeWhitespace()
	if p.currentChar() != ':' {
		return skip()
	}
	p.consumeChar()
	p.consumeWhitespace()

	val := p.parseValue()
	important := false
	if lower := strings.ToLower(val); strings.HasSuffix(lower, "important") {
		if i := strings.LastIndexByte(val, '!'); i >= 0 && strings.TrimSpace(lower[i+1:]) == "important" {
			important = true
			val = strings.TrimSpace(val[:i])
		}
	}
	if p.currentChar() == ';' {
		p.consumeChar()
	}
	if val == "" {
		return Declaration{}, false
	}
	return Declaration{Property: Property(prop), Value: Value(val), Important: important}, true
}

func (p *Parser) parseValue() string {
	start := p.pos
	for !p.eof() {
		ch := p.currentChar()
		if ch == ';' || ch == '}' {
			break
		}
		switch ch {
		case '"', '\'':
			p.skipQuotedString(ch)
		case '(':
			p.consumeChar()
			p.skipBlock('(', ')')
		default:
			p.pos++
		}
	}
	return strings.TrimSpace(p.input[start:p.pos])
}

// parseAtRule handles one at-rule. Screen media blocks yield their rules.
func (p *Parser) parseAtRule() []RuleSet {
	p.consumeChar()
	name := strings.ToLower(p.parseIdentifier())
	start := p.pos
	for !p.eof() {
		switch p.currentChar() {
		case ';':
			p.consumeChar()
			return nil
		case '{':
			prelude := strings.ToLower(strings.TrimSpace(p.input[start:p.pos]))
			p.consumeChar()
			if (name == "media" && mediaApplies(prelude)) || name == "supports" {
				return p.parseRules(true)
			}
			p.skipBlock('{', '}')
			return nil
		}
		p.pos++
	}
	return nil
}

// mediaApplies decides whether a media query list targets any screen. Queries
// with feature expressions depend on the viewport and are never applied.
func mediaApplies(query string) bool {
	if query == "" {
		return true
	}
	for _, q := range strings.Split(query, ",") {
		q = strings.TrimPrefix(strings.TrimSpace(q), "only ")
		if q == "all" || q == "screen" {
			return true
		}
	}
	return false
}

// --- Lexer helpers ---

func (p *Parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *Parser) currentChar() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) consumeChar() byte {
	ch := p.currentChar()
	if !p.eof() {
		p.pos++
	}
	return ch
}

func (p *Parser) consumeN(n int) {
	p.pos += n
	if p.pos > len(p.input) {
		p.pos = len(p.input)
	}
}

func (p *Parser) consumeWhitespace() {
	for !p.eof() && isWhitespace(p.currentChar()) {
		p.pos++
	}
}

func (p *Parser) startsWith(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}

func (p *Parser) skipComment() {
	p.pos += 2
	if end := strings.Index(p.input[p.pos:], "*/"); end >= 0 {
		p.pos += end + 2
	} else {
		p.pos = len(p.input)
	}
}

func (p *Parser) skipTo(targets ...byte) {
	for !p.eof() {
		for _, t := range targets {
			if p.currentChar() == t {
				return
			}
		}
		p.pos++
	}
}

// skipBlock consumes up to and including the close matching an already
// consumed open.
func (p *Parser) skipBlock(open, close byte) {
	depth := 1
	for !p.eof() {
		switch c := p.consumeChar(); c {
		case open:
			depth++
		case close:
			if depth--; depth == 0 {
				return
			}
		case '"', '\'':
			p.pos--
			p.skipQuotedString(c)
		}
	}
}

func (p *Parser) skipQuotedString(quote byte) {
	p.consumeChar()
	for !p.eof() {
		switch p.consumeChar() {
		case '\\':
			p.consumeChar()
		case quote:
			return
		}
	}
}

func (p *Parser) parseIdentifier() string {
	start := p.pos
	for !p.eof() {
		ch := p.currentChar()
		if ch == '\\' && p.pos+1 < len(p.input) {
			p.pos += 2
			continue
		}
		if !isValidIdentifierChar(ch) {
			break
		}
		p.pos++
	}
	return strings.ReplaceAll(p.input[start:p.pos], `\`, "")
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isValidIdentifierStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '-' || ch >= 0x80 || ch == '\\'
}

func isValidIdentifierChar(ch byte) bool {
	return isValidIdentifierStart(ch) || (ch >= '0' && ch <= '9')
}
