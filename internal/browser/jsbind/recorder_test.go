package jsbind

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/litmus/internal/listener"
)

func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func byID(t *testing.T, doc *html.Node, id string) *html.Node {
	t.Helper()
	n := htmlquery.FindOne(doc, "//*[@id='"+id+"']")
	require.NotNil(t, n, "missing #%s", id)
	return n
}

func run(t *testing.T, src string, opts ...Option) (*html.Node, listener.Registry, error) {
	t.Helper()
	doc := parseDoc(t, src)
	registry, err := NewRecorder(doc, zaptest.NewLogger(t), opts...).Run(context.Background())
	return doc, registry, err
}

func TestRecorder_RecordsHandlers(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name     string
		body     string
		script   string
		event    string
		expected bool
	}{
		{
			name:     "addEventListener",
			body:     `<div id="t"></div>`,
			script:   `document.getElementById('t').addEventListener('click', function () {});`,
			event:    "click",
			expected: true,
		},
		{
			name:     "event names are case insensitive",
			body:     `<div id="t"></div>`,
			script:   `document.getElementById('t').addEventListener('MouseOver', function () {});`,
			event:    "mouseover",
			expected: true,
		},
		{
			name:     "handleEvent object",
			body:     `<div id="t"></div>`,
			script:   `document.querySelector('#t').addEventListener('click', { handleEvent: function () {} });`,
			event:    "click",
			expected: true,
		},
		{
			name:     "non-callable listener is ignored",
			body:     `<div id="t"></div>`,
			script:   `document.getElementById('t').addEventListener('click', 42);`,
			event:    "click",
			expected: false,
		},
		{
			name:     "removeEventListener with the same function",
			body:     `<div id="t"></div>`,
			script:   `var el = document.getElementById('t'); var f = function () {}; el.addEventListener('click', f); el.removeEventListener('click', f);`,
			event:    "click",
			expected: false,
		},
		{
			name:     "removeEventListener with another function",
			body:     `<div id="t"></div>`,
			script:   `var el = document.getElementById('t'); el.addEventListener('click', function () {}); el.removeEventListener('click', function () {});`,
			event:    "click",
			expected: true,
		},
		{
			name:     "duplicate registration counts once",
			body:     `<div id="t"></div>`,
			script:   `var el = document.getElementById('t'); var f = function () {}; el.addEventListener('click', f); el.addEventListener('click', f); el.removeEventListener('click', f);`,
			event:    "click",
			expected: false,
		},
		{
			name:     "onX property",
			body:     `<div id="t"></div>`,
			script:   `document.getElementById('t').onclick = function () {};`,
			event:    "click",
			expected: true,
		},
		{
			name:     "onX property cleared",
			body:     `<div id="t"></div>`,
			script:   `var el = document.getElementById('t'); el.onclick = function () {}; el.onclick = function () {}; el.onclick = null;`,
			event:    "click",
			expected: false,
		},
		{
			name:     "setAttribute on handler",
			body:     `<div id="t"></div>`,
			script:   `document.getElementById('t').setAttribute('onmousedown', 'go()');`,
			event:    "mousedown",
			expected: true,
		},
		{
			name:     "static attribute still counts",
			body:     `<div id="t" ondblclick="x()"></div>`,
			script:   ``,
			event:    "dblclick",
			expected: true,
		},
		{
			name:     "handler added from DOMContentLoaded",
			body:     `<div id="t"></div>`,
			script:   `document.addEventListener('DOMContentLoaded', function () { document.getElementById('t').onclick = function () {}; });`,
			event:    "click",
			expected: true,
		},
		{
			name:     "handler added from window.onload",
			body:     `<div id="t"></div>`,
			script:   `window.onload = function () { document.getElementById('t').addEventListener('contextmenu', function () {}); };`,
			event:    "contextmenu",
			expected: true,
		},
		{
			name:     "handler added from a timer",
			body:     `<div id="t"></div>`,
			script:   `setTimeout(function (id) { document.getElementById(id).onmouseover = function () {}; }, 100, 't');`,
			event:    "mouseover",
			expected: true,
		},
		{
			name:     "cancelled timer never runs",
			body:     `<div id="t"></div>`,
			script:   `var h = setTimeout(function () { document.getElementById('t').onclick = function () {}; }, 0); clearTimeout(h);`,
			event:    "click",
			expected: false,
		},
		{
			name:     "wrappers keep identity",
			body:     `<ul><li id="t" class="item"></li></ul>`,
			script:   `if (document.getElementById('t') === document.querySelectorAll('ul > li.item')[0]) { document.getElementById('t').onclick = function () {}; }`,
			event:    "click",
			expected: true,
		},
		{
			name:     "delegation through closest and children",
			body:     `<section id="s"><p><a id="t">x</a></p></section>`,
			script:   `var a = document.querySelector('#s').getElementsByTagName('a')[0]; if (a.closest('section').id === 's' && a.parentElement.parentElement.children.length === 1) { a.addEventListener('click', function () {}); }`,
			event:    "click",
			expected: true,
		},
		{
			name:     "sibling combinator matches once",
			body:     `<p>a</p><p>b</p><span id="t"></span>`,
			script:   `var found = document.querySelectorAll('p ~ span'); if (found.length === 1 && found[0].id === 't') { found[0].onclick = function () {}; }`,
			event:    "click",
			expected: true,
		},
		{
			name:     "descendant combinator matches once",
			body:     `<div><div><span id="t"></span></div></div>`,
			script:   `if (document.querySelectorAll('div span').length === 1) { document.getElementById('t').onclick = function () {}; }`,
			event:    "click",
			expected: true,
		},
		{
			name:     "invalid selector throws",
			body:     `<div id="t"></div>`,
			script:   `try { document.querySelector('div:hover'); } catch (e) { document.getElementById('t').onclick = function () {}; }`,
			event:    "click",
			expected: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, registry, err := run(t, tt.body+"<script>"+tt.script+"</script>")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, registry.HasListener(byID(t, doc, "t"), tt.event))
		})
	}
}

func TestRecorder_SkipsNonClassicScripts(t *testing.T) {
	defer goleak.VerifyNone(t)

	const register = `document.getElementById('t').onclick = function () {};`
	tests := []struct {
		name   string
		script string
	}{
		{"module", `<script type="module">` + register + `</script>`},
		{"external", `<script src="app.js">` + register + `</script>`},
		{"data block", `<script type="application/json">` + register + `</script>`},
		{"template", `<template><script>` + register + `</script></template>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, registry, err := run(t, `<div id="t"></div>`+tt.script)
			require.NoError(t, err)
			assert.False(t, registry.HasListener(byID(t, doc, "t"), "click"))
		})
	}

	t.Run("oversized", func(t *testing.T) {
		doc, registry, err := run(t, `<div id="t"></div><script>`+register+`</script>`, WithMaxScriptBytes(10))
		require.NoError(t, err)
		assert.False(t, registry.HasListener(byID(t, doc, "t"), "click"))
	})
}

func TestRecorder_ScriptErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc, registry, err := run(t, `<div id="t"></div>
		<script>throw new Error('boom');</script>
		<script>this is not javascript</script>
		<script>document.getElementById('t').onclick = function () {};</script>
		<script>document.addEventListener('load', function () { undefinedFunction(); });</script>`)

	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 3)

	var scriptErr *ScriptError
	require.True(t, errors.As(errs[0], &scriptErr))
	assert.Equal(t, "inline script #0", scriptErr.Source)
	assert.Contains(t, errs[0].Error(), "boom")
	require.True(t, errors.As(errs[1], &scriptErr))
	assert.Equal(t, "inline script #1", scriptErr.Source)
	require.True(t, errors.As(errs[2], &scriptErr))
	assert.Equal(t, "load handler", scriptErr.Source)

	assert.True(t, registry.HasListener(byID(t, doc, "t"), "click"), "later scripts still run")
}

func TestRecorder_Budget(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("runaway script is interrupted", func(t *testing.T) {
		start := time.Now()
		_, registry, err := run(t, `<script>while (true) {}</script>`, WithTimeout(50*time.Millisecond))
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.NotNil(t, registry)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("self rescheduling timer is capped", func(t *testing.T) {
		doc, registry, err := run(t, `<div id="t"></div><script>
			var n = 0;
			function tick() { n++; if (n === 5) { document.getElementById('t').onclick = function () {}; } setTimeout(tick, 0); }
			tick();
		</script>`, WithMaxCallbacks(10))
		require.NoError(t, err)
		assert.True(t, registry.HasListener(byID(t, doc, "t"), "click"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		doc := parseDoc(t, `<script>var x = 1;</script>`)
		_, err := NewRecorder(doc, nil).Run(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestRecorder_DoesNotMutateDocument(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := `<div id="t" class="a"><p>text</p></div><script>
		var el = document.getElementById('t');
		el.appendChild(document.createElement('span'));
		el.setAttribute('class', 'b');
		el.textContent = 'replaced';
		el.innerHTML = '<b>new</b>';
		el.classList.add('c');
		el.style.display = 'none';
		el.remove();
	</script>`
	doc := parseDoc(t, src)
	var before bytes.Buffer
	require.NoError(t, html.Render(&before, doc))

	_, err := NewRecorder(doc, zaptest.NewLogger(t)).Run(context.Background())
	require.NoError(t, err)

	var after bytes.Buffer
	require.NoError(t, html.Render(&after, doc))
	assert.Equal(t, before.String(), after.String())
}

func TestRecorder_Console(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zapcore.DebugLevel)
	doc := parseDoc(t, `<script>console.log('a', 1); console.warn('careful'); console.error('broken');</script>`)
	_, err := NewRecorder(doc, zap.New(core)).Run(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("[JS Console]").AllUntimed()
	require.Len(t, entries, 3)
	expected := []struct {
		level   zapcore.Level
		message string
	}{
		{zapcore.DebugLevel, "a 1"},
		{zapcore.InfoLevel, "careful"},
		{zapcore.WarnLevel, "broken"},
	}
	for i, want := range expected {
		assert.Equal(t, want.level, entries[i].Level)
		assert.Equal(t, want.message, entries[i].ContextMap()["message"])
	}
}

func TestRecorder_NilRoot(t *testing.T) {
	registry, err := NewRecorder(nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, registry.HasListener(nil, "click"))
}

func TestRecorder_FeedsProbe(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc, registry, err := run(t, `<div id="card"><span id="inner">x</span></div><a id="link" href="/">go</a>
		<script>document.getElementById('card').addEventListener('mouseup', function () {});</script>`)
	require.NoError(t, err)

	probe := listener.NewProbe(registry)
	assert.True(t, probe.HasMouseActionListener(listener.Click, byID(t, doc, "inner")))
	assert.False(t, probe.HasMouseActionListener(listener.MouseOver, byID(t, doc, "inner")))
	assert.False(t, probe.HasMouseActionListener(listener.Click, byID(t, doc, "link")))
}
