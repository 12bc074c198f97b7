// internal/pageindex/render.go
package pageindex

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

// render emits the contribution of one displayed element. Every per-type rule
// lives in this switch.
func (b *builder) render(n *html.Node, f *frame) {
	switch f.kind {
	case KindScript, KindStyle, KindTitle, KindNoscript, KindTemplate:
		f.silent = true
		b.walkChildren(n, f)

	case KindBreak:
		b.separate()

	case KindImage:
		b.emit(f, imageText(n))

	case KindQuote:
		b.emit(f, `"`)
		b.walkChildren(n, f)
		b.emit(f, `"`)

	case KindOrderedList:
		f.nextItem = 1
		if start, err := strconv.Atoi(strings.TrimSpace(Attr(n, "start"))); err == nil {
			f.nextItem = start
		}
		b.walkChildren(n, f)

	case KindListItem:
		if list := enclosingList(f); list != nil && list.kind == KindOrderedList {
			number := list.nextItem
			if v, err := strconv.Atoi(strings.TrimSpace(Attr(n, "value"))); err == nil {
				number = v
			}
			list.nextItem = number + 1
			b.emit(f, strconv.Itoa(number)+". ")
		}
		b.walkChildren(n, f)

	case KindTextInput, KindPasswordInput, KindEmailInput, KindTelInput,
		KindURLInput, KindSearchInput, KindNumberInput:
		b.emitControl(f, fieldText(Attr(n, "value"), n))

	case KindTextArea:
		b.emitControl(f, fieldText(childText(n), n))

	case KindHiddenInput, KindFileInput, KindCheckBoxInput, KindRadioButtonInput:
		// Never rendered in either variant.

	case KindSubmitInput, KindResetInput, KindButtonInput:
		b.emitControl(f, Attr(n, "value"))

	case KindImageInput:
		b.emitControl(f, ButtonLabel(n))

	case KindButton:
		f.formOnly = true
		b.walkChildren(n, f)
		if b.with.empty(f.id) {
			b.emitControl(f, ButtonLabel(n))
		}

	case KindSelect:
		f.formOnly = true
		b.walkChildren(n, f)

	case KindOptGroup:
		b.emit(f, Attr(n, "label"))
		b.walkChildren(n, f)

	case KindOption:
		b.walkChildren(n, f)
		if b.with.empty(f.id) {
			b.emit(f, Attr(n, "label"))
		}

	default:
		b.walkChildren(n, f)
	}
}

func enclosingList(f *frame) *frame {
	for p := f.parent; p != nil; p = p.parent {
		if p.kind == KindOrderedList || p.kind == KindUnorderedList {
			return p
		}
	}
	return nil
}

// fieldText is the rendered text of a text-like control: its value, or the
// placeholder when the value is blank.
func fieldText(value string, n *html.Node) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return Attr(n, "placeholder")
}

func imageText(n *html.Node) string {
	if alt := Attr(n, "alt"); strings.TrimSpace(alt) != "" {
		return alt
	}
	return Attr(n, "title")
}

// ButtonLabel resolves the label of a button-like control when its inner text
// is empty: the value attribute, or "image: <src>" for image inputs and for
// buttons wrapping an image.
func ButtonLabel(n *html.Node) string {
	if v := Attr(n, "value"); strings.TrimSpace(v) != "" {
		return v
	}
	if KindOf(n) == KindImageInput {
		if src := Attr(n, "src"); src != "" {
			return "image: " + src
		}
		return ""
	}
	if img := findImage(n); img != nil {
		return "image: " + Attr(img, "src")
	}
	return ""
}

func findImage(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if tagAtom(c) == atom.Img && Attr(c, "src") != "" {
			return c
		}
		if img := findImage(c); img != nil {
			return img
		}
	}
	return nil
}

func childText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// applyTransform applies the inherited text-transform of f to a text node.
func applyTransform(data string, f *frame) string {
	switch f.style.TextTransform {
	case TransformUppercase:
		return upperCaser.String(data)
	case TransformLowercase:
		return lowerCaser.String(data)
	case TransformCapitalize:
		if f.capitalized {
			return data
		}
		for i, r := range data {
			if unicode.IsSpace(r) {
				continue
			}
			f.capitalized = true
			_, size := utf8.DecodeRuneInString(data[i:])
			return data[:i] + upperCaser.String(data[i:i+size]) + data[i+size:]
		}
	}
	return data
}
