package pageindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/html"
)

func TestTypeName(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`<a id='x' href='#'>a</a>`, "HtmlAnchor"},
		{`<input id='x' type='checkbox'>`, "HtmlCheckBoxInput"},
		{`<input id='x' type='RADIO'>`, "HtmlRadioButtonInput"},
		{`<input id='x'>`, "HtmlTextInput"},
		{`<input id='x' type='weird'>`, "HtmlTextInput"},
		{`<select><option id='x'>o</option></select>`, "HtmlOption"},
		{`<div id='x'></div>`, "HtmlDivision"},
		{`<span id='x'></span>`, "HtmlSpan"},
		{`<table><tr><td id='x'></td></tr></table>`, "HtmlTableDataCell"},
		{`<article id='x'></article>`, "HtmlArticle"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			doc := parseDoc(t, tt.src)
			assert.Equal(t, tt.want, TypeName(byID(t, doc, "x")))
		})
	}

	assert.Equal(t, "HtmlElement", TypeName(nil))
	assert.Equal(t, "HtmlElement", TypeName(&html.Node{Type: html.TextNode, Data: "x"}))
}

func TestKind_Classes(t *testing.T) {
	assert.True(t, KindSelect.IsLabelable())
	assert.True(t, KindCheckBoxInput.IsLabelable())
	assert.True(t, KindButton.IsLabelable())
	assert.True(t, KindTextArea.IsLabelable())
	assert.False(t, KindHiddenInput.IsLabelable())
	assert.False(t, KindFileInput.IsLabelable())
	assert.False(t, KindAnchor.IsLabelable())

	assert.True(t, KindImageInput.IsButtonLike())
	assert.False(t, KindTextInput.IsButtonLike())
	assert.True(t, KindNumberInput.IsTextField())
}

func TestKindOf_HandBuiltNode(t *testing.T) {
	// DataAtom is left unset on purpose.
	n := &html.Node{Type: html.ElementNode, Data: "BUTTON"}
	assert.Equal(t, KindButton, KindOf(n))
	assert.Equal(t, DisplayInlineBlock, DefaultDisplay(n))

	hidden := &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{{Key: "hidden"}}}
	assert.Equal(t, DisplayNone, DefaultDisplay(hidden))
}
