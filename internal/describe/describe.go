// internal/describe/describe.go
package describe

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/litmus/internal/pageindex"
)

// slot fixes the position of a clause in the rendered description. Clauses
// are rendered in slot order, never in the order they were added.
type slot int

const (
	slotID slot = iota
	slotTestID
	slotName
	slotFor
	slotCount
)

var slotKeys = [slotCount]string{"id", "data-testid", "name", "for"}

type attribute struct {
	key, value string
}

// Builder assembles a description such as
// "[HtmlAnchor 'Home' (id='nav-home') (name='home')]".
type Builder struct {
	kind   string
	text   string
	slots  [slotCount]*string
	extras []attribute
	plain  []string
	suffix string
}

// CreateCustom starts an empty description for the given type name. Nothing
// but the type name is rendered unless added explicitly.
func CreateCustom(kind string) *Builder {
	return &Builder{kind: kind}
}

// CreateDefault starts a description of n with its rendered text taken from
// src and the id, data-testid and name attributes when present. src may be
// nil, in which case no text is added.
func CreateDefault(n *html.Node, src *pageindex.PageIndex) *Builder {
	b := CreateCustom(pageindex.TypeName(n))
	b.AddText(primaryText(n, src))
	if v, ok := pageindex.LookupAttr(n, "id"); ok {
		b.AddID(v)
	}
	if v, ok := pageindex.LookupAttr(n, "data-testid"); ok {
		b.AddAttribute("data-testid", v)
	}
	if v, ok := pageindex.LookupAttr(n, "name"); ok {
		b.AddName(v)
	}
	return b
}

// AddID adds the id clause. A blank id is still rendered.
func (b *Builder) AddID(id string) *Builder {
	return b.set(slotID, id)
}

// AddName adds the name clause.
func (b *Builder) AddName(name string) *Builder {
	return b.set(slotName, name)
}

// AddFor adds the for clause of a label.
func (b *Builder) AddFor(target string) *Builder {
	return b.set(slotFor, target)
}

// AddAttribute adds an attribute clause. The well-known keys id,
// data-testid, name and for keep their fixed position; any other key is
// rendered after them.
func (b *Builder) AddAttribute(key, value string) *Builder {
	for i, k := range slotKeys {
		if strings.EqualFold(k, key) {
			return b.set(slot(i), value)
		}
	}
	b.extras = append(b.extras, attribute{key: key, value: value})
	return b
}

// AddText sets the quoted primary text. Blank text is not rendered.
func (b *Builder) AddText(text string) *Builder {
	b.text = strings.TrimSpace(text)
	return b
}

// AddPlain appends an unquoted word inside the brackets.
func (b *Builder) AddPlain(word string) *Builder {
	if word = strings.TrimSpace(word); word != "" {
		b.plain = append(b.plain, word)
	}
	return b
}

func (b *Builder) set(s slot, value string) *Builder {
	v := value
	b.slots[s] = &v
	return b
}

// by attaches the description of a wrapping label.
func (b *Builder) by(label *Builder) *Builder {
	b.suffix = " by " + label.Build()
	return b
}

// partOf attaches the description of an owning element.
func (b *Builder) partOf(owner *Builder) *Builder {
	b.suffix = " part of " + owner.Build()
	return b
}

// Build renders the description.
func (b *Builder) Build() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(b.kind)
	if b.text != "" {
		sb.WriteString(" '")
		sb.WriteString(b.text)
		sb.WriteByte('\'')
	}
	for i, v := range b.slots {
		if v != nil {
			writeClause(&sb, slotKeys[i], *v)
		}
	}
	for _, a := range b.extras {
		writeClause(&sb, a.key, a.value)
	}
	for _, w := range b.plain {
		sb.WriteByte(' ')
		sb.WriteString(w)
	}
	sb.WriteByte(']')
	sb.WriteString(b.suffix)
	return sb.String()
}

func (b *Builder) String() string { return b.Build() }

func writeClause(sb *strings.Builder, key, value string) {
	sb.WriteString(" (")
	sb.WriteString(key)
	sb.WriteString("='")
	sb.WriteString(value)
	sb.WriteString("')")
}
