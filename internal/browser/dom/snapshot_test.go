package dom_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/charmap"

	"github.com/xkilldash9x/litmus/internal/browser/dom"
	"github.com/xkilldash9x/litmus/internal/describe"
	"github.com/xkilldash9x/litmus/internal/listener"
)

const page = `<!DOCTYPE html>
<html><head>
	<title>Shop</title>
	<style>.promo { display: none } h1 { text-transform: uppercase }</style>
</head><body>
	<h1>welcome</h1>
	<p class="promo">Hidden offer</p>
	<div id="card"><span id="price">10 EUR</span></div>
	<label id="terms"><input id="agree" type="checkbox" checked> Accept</label>
	<script>
		document.getElementById('card').addEventListener('click', function () {});
	</script>
	<script>oops(</script>
</body></html>`

func TestLoad(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s, err := dom.Load(context.Background(), strings.NewReader(page), "text/html; charset=utf-8",
		dom.WithLogger(zap.New(core)), dom.WithSource("memory"))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, "memory", s.Source)
	assert.Equal(t, "WELCOME 10 EUR Accept", s.Index.Text())

	price := htmlquery.FindOne(s.Root, "//*[@id='price']")
	require.NotNil(t, price)
	assert.True(t, s.Probe().HasMouseActionListener(listener.Click, price))

	agree := htmlquery.FindOne(s.Root, "//*[@id='agree']")
	assert.Equal(t, "[HtmlCheckBoxInput (id='agree')] by [HtmlLabel 'Accept checked' (id='terms')]", describe.Element(s.Index, agree))

	require.Equal(t, 1, logs.FilterMessage("Inline script did not complete.").Len(), "the broken script is logged")
}

func TestLoad_WithoutScripts(t *testing.T) {
	s, err := dom.Load(context.Background(), strings.NewReader(page), "", dom.WithScripts(false))
	require.NoError(t, err)

	price := htmlquery.FindOne(s.Root, "//*[@id='price']")
	assert.False(t, s.Probe().HasMouseActionListener(listener.Click, price))
}

func TestLoad_Encoding(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String("<p>Café crème</p>")
	require.NoError(t, err)

	t.Run("declared by content type", func(t *testing.T) {
		s, err := dom.Load(context.Background(), strings.NewReader(encoded), "text/html; charset=iso-8859-1")
		require.NoError(t, err)
		assert.Equal(t, "Café crème", s.Index.Text())
	})

	t.Run("declared by meta", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString(`<meta charset="iso-8859-1">`)
		buf.WriteString(encoded)
		s, err := dom.Load(context.Background(), &buf, "")
		require.NoError(t, err)
		assert.Equal(t, "Café crème", s.Index.Text())
	})
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dom.Load(ctx, strings.NewReader(page), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))

	s, err := dom.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Source)
	assert.Contains(t, s.Index.Text(), "WELCOME")

	_, err = dom.LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewSnapshot_DefaultsToAttributeListeners(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(`<div onclick="x()"><b id="b">t</b></div>`))
	require.NoError(t, err)

	s := dom.NewSnapshot("inline", doc, nil, nil, nil)
	b := htmlquery.FindOne(doc, "//b")
	assert.True(t, s.Probe().HasMouseActionListener(listener.Click, b))
	assert.Equal(t, "t", s.Index.Text())
}
