// internal/pageindex/kind.go
package pageindex

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind is the closed set of element variants the renderer, the label extractor
// and the describer dispatch on. Every rule that varies per element type keys
// off a Kind in a single switch.
type Kind int

const (
	KindElement Kind = iota // any element without special treatment
	KindHTML
	KindHead
	KindBody
	KindScript
	KindStyle
	KindTitle
	KindNoscript
	KindTemplate
	KindForm
	KindAnchor
	KindLabel
	KindButton
	KindSelect
	KindOptGroup
	KindOption
	KindTextArea
	KindTextInput
	KindPasswordInput
	KindEmailInput
	KindTelInput
	KindURLInput
	KindSearchInput
	KindNumberInput
	KindHiddenInput
	KindFileInput
	KindCheckBoxInput
	KindRadioButtonInput
	KindSubmitInput
	KindResetInput
	KindButtonInput
	KindImageInput
	KindImage
	KindBreak
	KindQuote
	KindOrderedList
	KindUnorderedList
	KindListItem
)

var kindNames = map[Kind]string{
	KindHTML:             "HtmlHtml",
	KindHead:             "HtmlHead",
	KindBody:             "HtmlBody",
	KindScript:           "HtmlScript",
	KindStyle:            "HtmlStyle",
	KindTitle:            "HtmlTitle",
	KindNoscript:         "HtmlNoScript",
	KindTemplate:         "HtmlTemplate",
	KindForm:             "HtmlForm",
	KindAnchor:           "HtmlAnchor",
	KindLabel:            "HtmlLabel",
	KindButton:           "HtmlButton",
	KindSelect:           "HtmlSelect",
	KindOptGroup:         "HtmlOptionGroup",
	KindOption:           "HtmlOption",
	KindTextArea:         "HtmlTextArea",
	KindTextInput:        "HtmlTextInput",
	KindPasswordInput:    "HtmlPasswordInput",
	KindEmailInput:       "HtmlEmailInput",
	KindTelInput:         "HtmlTelInput",
	KindURLInput:         "HtmlUrlInput",
	KindSearchInput:      "HtmlSearchInput",
	KindNumberInput:      "HtmlNumberInput",
	KindHiddenInput:      "HtmlHiddenInput",
	KindFileInput:        "HtmlFileInput",
	KindCheckBoxInput:    "HtmlCheckBoxInput",
	KindRadioButtonInput: "HtmlRadioButtonInput",
	KindSubmitInput:      "HtmlSubmitInput",
	KindResetInput:       "HtmlResetInput",
	KindButtonInput:      "HtmlButtonInput",
	KindImageInput:       "HtmlImageInput",
	KindImage:            "HtmlImage",
	KindBreak:            "HtmlBreak",
	KindQuote:            "HtmlInlineQuotation",
	KindOrderedList:      "HtmlOrderedList",
	KindUnorderedList:    "HtmlUnorderedList",
	KindListItem:         "HtmlListItem",
}

// genericNames names the structural elements that share KindElement.
var genericNames = map[atom.Atom]string{
	atom.Div:        "HtmlDivision",
	atom.Span:       "HtmlSpan",
	atom.P:          "HtmlParagraph",
	atom.H1:         "HtmlHeading1",
	atom.H2:         "HtmlHeading2",
	atom.H3:         "HtmlHeading3",
	atom.H4:         "HtmlHeading4",
	atom.H5:         "HtmlHeading5",
	atom.H6:         "HtmlHeading6",
	atom.Table:      "HtmlTable",
	atom.Caption:    "HtmlCaption",
	atom.Thead:      "HtmlTableHeader",
	atom.Tbody:      "HtmlTableBody",
	atom.Tfoot:      "HtmlTableFooter",
	atom.Tr:         "HtmlTableRow",
	atom.Td:         "HtmlTableDataCell",
	atom.Th:         "HtmlTableHeaderCell",
	atom.Fieldset:   "HtmlFieldSet",
	atom.Legend:     "HtmlLegend",
	atom.Dl:         "HtmlDefinitionList",
	atom.Dt:         "HtmlDefinitionTerm",
	atom.Dd:         "HtmlDefinitionDescription",
	atom.B:          "HtmlBold",
	atom.I:          "HtmlItalic",
	atom.Em:         "HtmlEmphasis",
	atom.Strong:     "HtmlStrong",
	atom.Font:       "HtmlFont",
	atom.Sub:        "HtmlSubscript",
	atom.Sup:        "HtmlSuperscript",
	atom.Small:      "HtmlSmall",
	atom.Big:        "HtmlBig",
	atom.Pre:        "HtmlPreformattedText",
	atom.Blockquote: "HtmlBlockQuote",
}

// String returns the kind identifier used in element descriptions.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "HtmlElement"
}

// KindOf classifies an element node. Non-element nodes yield KindElement.
func KindOf(n *html.Node) Kind {
	if n == nil || n.Type != html.ElementNode {
		return KindElement
	}
	switch tagAtom(n) {
	case atom.Html:
		return KindHTML
	case atom.Head:
		return KindHead
	case atom.Body:
		return KindBody
	case atom.Script:
		return KindScript
	case atom.Style:
		return KindStyle
	case atom.Title:
		return KindTitle
	case atom.Noscript:
		return KindNoscript
	case atom.Template:
		return KindTemplate
	case atom.Form:
		return KindForm
	case atom.A:
		return KindAnchor
	case atom.Label:
		return KindLabel
	case atom.Button:
		return KindButton
	case atom.Select:
		return KindSelect
	case atom.Optgroup:
		return KindOptGroup
	case atom.Option:
		return KindOption
	case atom.Textarea:
		return KindTextArea
	case atom.Input:
		return inputKind(Attr(n, "type"))
	case atom.Img:
		return KindImage
	case atom.Br:
		return KindBreak
	case atom.Q:
		return KindQuote
	case atom.Ol:
		return KindOrderedList
	case atom.Ul:
		return KindUnorderedList
	case atom.Li:
		return KindListItem
	}
	return KindElement
}

func inputKind(inputType string) Kind {
	switch strings.ToLower(strings.TrimSpace(inputType)) {
	case "password":
		return KindPasswordInput
	case "email":
		return KindEmailInput
	case "tel":
		return KindTelInput
	case "url":
		return KindURLInput
	case "search":
		return KindSearchInput
	case "number":
		return KindNumberInput
	case "hidden":
		return KindHiddenInput
	case "file":
		return KindFileInput
	case "checkbox":
		return KindCheckBoxInput
	case "radio":
		return KindRadioButtonInput
	case "submit":
		return KindSubmitInput
	case "reset":
		return KindResetInput
	case "button":
		return KindButtonInput
	case "image":
		return KindImageInput
	default:
		// Browsers fall back to a text field for a missing or unknown type.
		return KindTextInput
	}
}

// TypeName returns the identifier an element is described by, e.g.
// "HtmlAnchor" or "HtmlDivision".
func TypeName(n *html.Node) string {
	k := KindOf(n)
	if k != KindElement {
		return k.String()
	}
	if n == nil || n.Type != html.ElementNode {
		return k.String()
	}
	if name, ok := genericNames[tagAtom(n)]; ok {
		return name
	}
	tag := strings.ToLower(n.Data)
	if tag == "" {
		return k.String()
	}
	return "Html" + strings.ToUpper(tag[:1]) + tag[1:]
}

// IsTextField reports kinds whose rendered text is their value or placeholder.
func (k Kind) IsTextField() bool {
	switch k {
	case KindTextInput, KindPasswordInput, KindEmailInput, KindTelInput,
		KindURLInput, KindSearchInput, KindNumberInput, KindTextArea:
		return true
	}
	return false
}

// IsButtonLike reports kinds rendered from a resolved button label.
func (k Kind) IsButtonLike() bool {
	switch k {
	case KindButton, KindSubmitInput, KindResetInput, KindButtonInput, KindImageInput:
		return true
	}
	return false
}

// IsLabelable reports controls that may receive inferred text labels and that
// bound the labeling text of their neighbours. Hidden and file inputs are not
// labelable.
func (k Kind) IsLabelable() bool {
	switch k {
	case KindHiddenInput, KindFileInput:
		return false
	case KindSelect, KindCheckBoxInput, KindRadioButtonInput:
		return true
	}
	return k.IsTextField() || k.IsButtonLike()
}

// tagAtom resolves the atom of an element, tolerating trees built by hand
// where DataAtom was left unset.
func tagAtom(n *html.Node) atom.Atom {
	if n.DataAtom != 0 {
		return n.DataAtom
	}
	return atom.Lookup([]byte(strings.ToLower(n.Data)))
}

// Attr returns the value of the named attribute, or "" when it is missing.
func Attr(n *html.Node, key string) string {
	v, _ := LookupAttr(n, key)
	return v
}

// LookupAttr returns the value of the named attribute and whether it exists.
func LookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}
