package pageindex

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"
)

const richPage = `<html><head><title>Shop</title><style>p{}</style></head><body>
<h1 id="h">Welcome   to <i>the</i> shop</h1>
<div id="hidden" style="display:none"><span id="ghost">ghost</span></div>
<form id="f">
  <label for="q">Search</label> <input id="q" type="text" placeholder="term">
  <select id="s" name="size"><optgroup label="Sizes"><option>S</option><option>M</option></optgroup></select>
  <button id="go">Go <b>now</b></button>
</form>
<ol start="2"><li>first</li><li>second<ul><li>nested</li></ul></li></ol>
<table><tr><td colspan="2">a</td><td>b</td></tr><tr><td rowspan="2">c</td></tr></table>
<p>line<br>break <q>quoted</q> <img alt="logo" src="logo.png"> <span></span><em></em>end</p>
</body></html>`

func TestBuild_Scenarios(t *testing.T) {
	t.Run("Empty page", func(t *testing.T) {
		doc := parseDoc(t, `<html><body></body></html>`)
		idx := Build(doc, nil)

		els := idx.Elements()
		require.Len(t, els, 3)
		assert.Equal(t, "html", els[0].Data)
		assert.Equal(t, "head", els[1].Data)
		assert.Equal(t, "body", els[2].Data)
		assert.Equal(t, 1, idx.Index(els[0]))
		assert.Equal(t, 2, idx.Index(els[1]))
		assert.Equal(t, 3, idx.Index(els[2]))
		assert.Equal(t, "", idx.Text())
		assert.Equal(t, "", idx.TextWithoutFormControls())
		assert.Equal(t, "1>3", idx.Hierarchy(els[2]))
	})

	t.Run("Hidden element keeps its number", func(t *testing.T) {
		doc := parseDoc(t, `<div id='a' style='display:none;'></div><div id='b'></div>`)
		idx := Build(doc, inlineStyles{})

		a, b := byID(t, doc, "a"), byID(t, doc, "b")
		assert.Equal(t, 4, idx.Index(a))
		assert.Equal(t, 5, idx.Index(b))
		assert.Equal(t, "1>3>4", idx.Hierarchy(a))
		assert.Equal(t, "1>3>5", idx.Hierarchy(b))
		span, ok := idx.Position(a)
		require.True(t, ok)
		assert.Zero(t, span.Len())
	})

	t.Run("Ordered list", func(t *testing.T) {
		doc := parseDoc(t, `before<ol><li>Line1<li>Line2</ol>after`)
		idx := Build(doc, nil)
		assert.Equal(t, "before 1. Line1 2. Line2 after", idx.Text())
		assert.Equal(t, "before 1. Line1 2. Line2 after", idx.TextWithoutFormControls())
	})

	t.Run("Placeholder only with form controls", func(t *testing.T) {
		doc := parseDoc(t, `<input type='text' value='' placeholder='p'>`)
		idx := Build(doc, nil)
		assert.Equal(t, "p", idx.Text())
		assert.Equal(t, "", idx.TextWithoutFormControls())
	})
}

func TestBuild_ElementRoot(t *testing.T) {
	doc := parseDoc(t, `<p id="p">x</p>`)
	htmlEl := doc.LastChild
	require.Equal(t, "html", htmlEl.Data)

	idx := Build(htmlEl, nil)
	head, body := htmlEl.FirstChild, htmlEl.LastChild
	assert.Equal(t, 1, idx.Index(htmlEl))
	assert.Equal(t, 2, idx.Index(head))
	assert.Equal(t, 3, idx.Index(body))
	assert.Equal(t, "1>3>4", idx.Hierarchy(byID(t, doc, "p")))
	assert.Equal(t, "x", idx.Text())
	assert.Same(t, htmlEl, idx.Root())
}

func TestBuild_Rendering(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		with    string
		without string
	}{
		{"collapses whitespace", "<p>Hello   <b>big</b>\n\t world</p>", "Hello big world", "Hello big world"},
		{"inline elements concatenate", "<span>a</span><span>b</span><font>c</font>", "abc", "abc"},
		{"blocks are separated once", "<div>a</div>  <div>  b </div><p>c</p>", "a b c", "a b c"},
		{"break forces a space", "a<br>b<br><br>c", "a b c", "a b c"},
		{"quote wraps content", "say <q>hi</q>!", `say "hi"!`, `say "hi"!`},
		{"image alt then title, never src", "<p><img alt='logo'></p><p><img title='tip' src='x.png'></p><p><img src='x.png'></p>", "logo tip", "logo tip"},
		{"table is row-major", "<table><tr><td colspan='2'>a</td><td>b</td></tr><tr><td rowspan='2'>c</td></tr></table>", "a b c", "a b c"},
		{"unordered list has no prefix", "<ul><li>x</li><li>y</li></ul>", "x y", "x y"},
		{"ordered list honours start", "<ol start='3'><li>x<li>y</ol><ol><li>z</ol>", "3. x 4. y 1. z", "3. x 4. y 1. z"},
		{"select renders options and group labels", "<select><optgroup label='G'><option>a</option><option>b</option></optgroup><option label='L'></option></select>", "G a b L", ""},
		{"button text only with form controls", "before<button>Go</button>after", "before Go after", "before after"},
		{"button wrapping an image", "<button><img src='i.png'></button>", "image: i.png", ""},
		{"submit value", "<input type='submit' value='Send'>", "Send", ""},
		{"submit without value", "<input type='submit'>x", "x", "x"},
		{"image input", "<input type='image' src='go.png'>", "image: go.png", ""},
		{"text field value wins over placeholder", "<input value='v' placeholder='p'>", "v", ""},
		{"unknown input type is a text field", "<input type='color-ish' value='v'>", "v", ""},
		{"textarea content", "<textarea placeholder='p'>hello</textarea>", "hello", ""},
		{"empty textarea uses placeholder", "<textarea placeholder='p'></textarea>", "p", ""},
		{"checkbox never renders", "a<input type='checkbox' value='v'>b", "a b", "a b"},
		{"hidden input adds nothing", "a<input type='hidden' value='v'>b", "ab", "ab"},
		{"file input adds nothing", "<p>a<input type='file' value='v'></p>", "a", "a"},
		{"script and style are silent", "a<script>var x = 1;</script><style>p{}</style>b", "ab", "ab"},
		{"display none hides subtree", "a<div style='display:none'>x<b>y</b></div>b", "ab", "ab"},
		{"visibility hidden inherits", "<div style='visibility:hidden'>a<span>b</span><span style='visibility:visible'>c</span></div>", "c", "c"},
		{"uppercase inherits", "<p style='text-transform:uppercase'>abc <span>def</span></p>", "ABC DEF", "ABC DEF"},
		{"lowercase", "<p style='text-transform:lowercase'>ABC</p>", "abc", "abc"},
		{"capitalize first letter of direct text", "<p style='text-transform:capitalize'>  hello world</p>", "Hello world", "Hello world"},
		{"definition list terms and details are blocks", "<dl><dt>a</dt><dd>b</dd></dl>", "a b", "a b"},
		{"fieldset and legend are separated", "x<fieldset><legend>L</legend>y</fieldset>z", "x L y z", "x L y z"},
		{"inline-block is separated from its neighbours", "<span>a</span><span style='display:inline-block'>b</span><span>c</span>", "a b c", "a b c"},
		{"inline stays joined", "<span>a</span><span style='display:inline'>b</span>", "ab", "ab"},
		{"transparent text is still rendered", "a<span style='opacity:0'>b</span>c", "abc", "abc"},
		{"empty page", "", "", ""},
		{"only whitespace", "<div> </div> <p>\n</p>", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := Build(parseDoc(t, tt.src), inlineStyles{})
			assert.Equal(t, tt.with, idx.Text(), "with form controls")
			assert.Equal(t, tt.without, idx.TextWithoutFormControls(), "without form controls")
		})
	}
}

func TestBuild_Invariants(t *testing.T) {
	doc := parseDoc(t, richPage)
	idx := Build(doc, inlineStyles{})
	els := idx.Elements()
	require.NotEmpty(t, els)

	for i, n := range els {
		assert.Equal(t, i+1, idx.Index(n), "order follows document order")

		for _, variant := range []struct {
			name string
			text string
			pos  func(*html.Node) (Span, bool)
			as   func(*html.Node) string
		}{
			{"with", idx.Text(), idx.Position, idx.AsText},
			{"without", idx.TextWithoutFormControls(), idx.PositionWithoutFormControls, idx.AsTextWithoutFormControls},
		} {
			span, ok := variant.pos(n)
			require.True(t, ok)
			assert.True(t, 0 <= span.Start && span.Start <= span.End && span.End <= len(variant.text),
				"%s span %v of <%s> out of range", variant.name, span, n.Data)
			assert.Equal(t, variant.text[span.Start:span.End], variant.as(n))

			for p := n.Parent; p != nil; p = p.Parent {
				outer, ok := variant.pos(p)
				if !ok {
					continue
				}
				assert.True(t, outer.Start <= span.Start && span.End <= outer.End,
					"%s span %v of <%s> escapes ancestor <%s> %v", variant.name, span, n.Data, p.Data, outer)
			}
		}
	}
}

func TestBuild_Idempotent(t *testing.T) {
	type snapshot struct {
		Text, Without string
		Paths         []string
		Spans         []Span
	}
	take := func(idx *PageIndex) snapshot {
		s := snapshot{Text: idx.Text(), Without: idx.TextWithoutFormControls()}
		for _, n := range idx.Elements() {
			s.Paths = append(s.Paths, idx.Hierarchy(n))
			span, _ := idx.Position(n)
			s.Spans = append(s.Spans, span)
		}
		return s
	}

	doc := parseDoc(t, richPage)
	first := take(Build(doc, inlineStyles{}))
	second := take(Build(doc, inlineStyles{}))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rebuilding the same snapshot changed the index (-first +second):\n%s", diff)
	}
}

func TestBuild_RichPage(t *testing.T) {
	doc := parseDoc(t, richPage)
	idx := Build(doc, inlineStyles{})

	assert.Equal(t, "Welcome to the shop Search term Sizes S M Go now 2. first 3. second nested a b c line break \"quoted\" logo end", idx.Text())
	assert.Equal(t, "Welcome to the shop Search 2. first 3. second nested a b c line break \"quoted\" logo end", idx.TextWithoutFormControls())

	assert.Equal(t, "Go now", idx.AsText(byID(t, doc, "go")))
	assert.Equal(t, "", idx.AsTextWithoutFormControls(byID(t, doc, "go")))
	assert.Equal(t, "Welcome to the shop ", idx.TextBefore(byID(t, doc, "f")))

	t.Run("Descendants of hidden elements are not indexed", func(t *testing.T) {
		ghost := byID(t, doc, "ghost")
		assert.Zero(t, idx.Index(ghost))
		assert.Empty(t, idx.Hierarchy(ghost))
		_, ok := idx.Position(ghost)
		assert.False(t, ok)
		assert.Empty(t, idx.AsText(ghost))
		assert.Empty(t, idx.TextBefore(ghost))
		assert.NotZero(t, idx.Index(byID(t, doc, "hidden")))
	})

	t.Run("Text nodes are not indexed", func(t *testing.T) {
		text := byID(t, doc, "h").FirstChild
		require.Equal(t, html.TextNode, text.Type)
		assert.Zero(t, idx.Index(text))
		assert.Zero(t, idx.Index(nil))
	})
}

func TestPageIndex_ElementByID(t *testing.T) {
	doc := parseDoc(t, `<p id='dup'>one</p><p id='dup'>two</p><div style='display:none'><i id='deep'></i></div>`)
	idx := Build(doc, inlineStyles{})

	n, err := idx.ElementByID("dup")
	require.NoError(t, err)
	assert.Equal(t, "one", idx.AsText(n), "first element in document order wins")

	n, err = idx.ElementByID("deep")
	require.NoError(t, err)
	assert.Equal(t, "i", n.Data)

	_, err = idx.ElementByID("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrElementNotFound))
	var notFound *ElementNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.ID)
	assert.Contains(t, err.Error(), "missing")
}

func TestBuild_NilRootAndLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	idx := Build(nil, nil, WithLogger(zap.New(core)))
	assert.Empty(t, idx.Text())
	assert.Empty(t, idx.Elements())

	entries := logs.FilterMessage("Page index built.").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(0), entries[0].ContextMap()["elements"])
}
