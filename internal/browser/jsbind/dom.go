// internal/browser/jsbind/dom.go
package jsbind

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/litmus/internal/listener"
)

// handlerProperties are the onX properties exposed on element wrappers.
var handlerProperties = []string{
	"click", "dblclick", "contextmenu", "auxclick",
	"mousedown", "mouseup", "mouseover", "mousemove", "mouseout", "mouseenter", "mouseleave",
	"pointerdown", "pointerup", "touchstart", "touchend",
	"keydown", "keyup", "keypress", "input", "change", "submit", "focus", "blur",
}

type target struct {
	node  *html.Node
	event string
}

type timer struct {
	id   int64
	fn   goja.Value
	args []goja.Value
}

// environment is the window, document and element surface one Run exposes.
// Every wrapper is created lazily and cached, so wrapping the same node twice
// yields the same JS object.
type environment struct {
	vm     *goja.Runtime
	root   *html.Node
	set    *listener.Set
	logger *zap.Logger

	document *goja.Object
	wrappers map[*html.Node]*goja.Object

	listeners  map[target][]goja.Value
	properties map[target]goja.Value

	// Handlers for the load phase, keyed by event name.
	lifecycle map[string][]goja.Value

	queue     []timer
	cancelled map[int64]bool
	nextTimer int64
}

func newEnvironment(vm *goja.Runtime, root *html.Node, set *listener.Set, logger *zap.Logger) *environment {
	e := &environment{
		vm:         vm,
		root:       root,
		set:        set,
		logger:     logger,
		wrappers:   make(map[*html.Node]*goja.Object),
		listeners:  make(map[target][]goja.Value),
		properties: make(map[target]goja.Value),
		lifecycle:  make(map[string][]goja.Value),
		cancelled:  make(map[int64]bool),
	}
	e.initWindow()
	e.initDocument()
	e.initConsole()
	e.initTimers()
	return e
}

// --- Window ---

func (e *environment) initWindow() {
	global := e.vm.GlobalObject()
	e.must(global.Set("window", global))
	e.must(global.Set("self", global))
	e.must(global.Set("globalThis", global))

	e.must(global.Set("addEventListener", e.lifecycleListener(true)))
	e.must(global.Set("removeEventListener", e.lifecycleListener(false)))
	e.must(global.Set("dispatchEvent", func(goja.FunctionCall) goja.Value { return e.vm.ToValue(true) }))
	e.must(global.Set("alert", func(goja.FunctionCall) goja.Value { return goja.Undefined() }))
	e.must(global.Set("confirm", func(goja.FunctionCall) goja.Value { return e.vm.ToValue(false) }))
	e.must(global.Set("prompt", func(goja.FunctionCall) goja.Value { return goja.Null() }))
	e.must(global.Set("getComputedStyle", func(goja.FunctionCall) goja.Value {
		style := e.vm.NewObject()
		e.must(style.Set("getPropertyValue", func(goja.FunctionCall) goja.Value { return e.vm.ToValue("") }))
		return style
	}))
	e.must(global.Set("matchMedia", func(call goja.FunctionCall) goja.Value {
		mql := e.vm.NewObject()
		e.must(mql.Set("matches", false))
		e.must(mql.Set("media", call.Argument(0).String()))
		e.must(mql.Set("addListener", noop))
		e.must(mql.Set("addEventListener", noop))
		return mql
	}))

	location := e.vm.NewObject()
	for k, v := range map[string]string{"href": "about:blank", "protocol": "about:", "host": "", "hostname": "", "pathname": "blank", "search": "", "hash": ""} {
		e.must(location.Set(k, v))
	}
	e.must(global.Set("location", location))

	navigator := e.vm.NewObject()
	e.must(navigator.Set("userAgent", "litmus"))
	e.must(navigator.Set("language", "en-US"))
	e.must(global.Set("navigator", navigator))

	e.must(global.Set("localStorage", e.storage()))
	e.must(global.Set("sessionStorage", e.storage()))
}

func (e *environment) storage() *goja.Object {
	items := make(map[string]string)
	s := e.vm.NewObject()
	e.must(s.Set("getItem", func(call goja.FunctionCall) goja.Value {
		if v, ok := items[call.Argument(0).String()]; ok {
			return e.vm.ToValue(v)
		}
		return goja.Null()
	}))
	e.must(s.Set("setItem", func(call goja.FunctionCall) goja.Value {
		items[call.Argument(0).String()] = call.Argument(1).String()
		return goja.Undefined()
	}))
	e.must(s.Set("removeItem", func(call goja.FunctionCall) goja.Value {
		delete(items, call.Argument(0).String())
		return goja.Undefined()
	}))
	return s
}

// lifecycleListener implements add/removeEventListener for window and
// document. Only DOMContentLoaded and load handlers are kept since those are
// the only events the run fires.
func (e *environment) lifecycleListener(add bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		event := strings.ToLower(call.Argument(0).String())
		if event != "domcontentloaded" && event != "load" {
			return goja.Undefined()
		}
		fn := call.Argument(1)
		if !isHandler(fn) {
			return goja.Undefined()
		}
		handlers := e.lifecycle[event]
		i := indexOf(handlers, fn)
		switch {
		case add && i < 0:
			e.lifecycle[event] = append(handlers, fn)
		case !add && i >= 0:
			e.lifecycle[event] = append(handlers[:i], handlers[i+1:]...)
		}
		return goja.Undefined()
	}
}

// --- Document ---

func (e *environment) initDocument() {
	doc := e.vm.NewObject()
	e.document = doc
	e.wrappers[e.root] = doc

	e.must(doc.Set("nodeType", 9))
	e.must(doc.Set("nodeName", "#document"))
	e.must(doc.Set("readyState", "loading"))
	e.must(doc.Set("cookie", ""))
	e.accessor(doc, "documentElement", func() goja.Value { return e.wrap(e.findTag("html")) }, nil)
	e.accessor(doc, "head", func() goja.Value { return e.wrap(e.findTag("head")) }, nil)
	e.accessor(doc, "body", func() goja.Value { return e.wrap(e.findTag("body")) }, nil)
	e.accessor(doc, "title", func() goja.Value { return e.vm.ToValue(strings.TrimSpace(textContent(e.findTag("title")))) }, nil)

	e.must(doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		var found *html.Node
		walkElements(e.root, func(n *html.Node) bool {
			if v, ok := attr(n, "id"); ok && v == id {
				found = n
				return false
			}
			return true
		})
		return e.wrap(found)
	}))
	e.must(doc.Set("getElementsByName", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		return e.wrapAll(e.query(e.root, fmt.Sprintf("//*[@name=%s]", literal(name))))
	}))
	e.must(doc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return e.wrap(&html.Node{Type: html.ElementNode, Data: strings.ToLower(call.Argument(0).String())})
	}))
	e.must(doc.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return e.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	}))
	e.must(doc.Set("createDocumentFragment", func(goja.FunctionCall) goja.Value {
		return e.wrap(&html.Node{Type: html.DocumentNode})
	}))
	e.must(doc.Set("addEventListener", e.lifecycleListener(true)))
	e.must(doc.Set("removeEventListener", e.lifecycleListener(false)))
	e.must(doc.Set("write", noop))
	e.must(doc.Set("writeln", noop))
	e.installQueries(doc, e.root)

	e.must(e.vm.GlobalObject().Set("document", doc))
}

func (e *environment) findTag(tag string) *html.Node {
	var found *html.Node
	walkElements(e.root, func(n *html.Node) bool {
		if n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

// --- Elements ---

// wrap returns the JS object for n, creating it on first use.
func (e *environment) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if obj, ok := e.wrappers[n]; ok {
		return obj
	}
	obj := e.vm.NewObject()
	e.wrappers[n] = obj

	switch n.Type {
	case html.ElementNode:
		e.initElement(obj, n)
	case html.TextNode, html.CommentNode:
		nodeType, nodeName := 3, "#text"
		if n.Type == html.CommentNode {
			nodeType, nodeName = 8, "#comment"
		}
		e.must(obj.Set("nodeType", nodeType))
		e.must(obj.Set("nodeName", nodeName))
		for _, name := range []string{"textContent", "nodeValue", "data"} {
			e.accessor(obj, name, func() goja.Value { return e.vm.ToValue(n.Data) }, func(goja.Value) {})
		}
		e.initNode(obj, n)
	default:
		e.must(obj.Set("nodeType", 11))
		e.must(obj.Set("nodeName", "#document-fragment"))
		e.initNode(obj, n)
		e.installQueries(obj, n)
	}
	return obj
}

func (e *environment) wrapAll(nodes []*html.Node) goja.Value {
	values := make([]interface{}, len(nodes))
	for i, n := range nodes {
		values[i] = e.wrap(n)
	}
	return e.vm.NewArray(values...)
}

// initNode installs the tree navigation and the mutators shared by all node
// types. Mutations are accepted and ignored.
func (e *environment) initNode(obj *goja.Object, n *html.Node) {
	e.accessor(obj, "parentNode", func() goja.Value { return e.wrap(n.Parent) }, nil)
	e.accessor(obj, "parentElement", func() goja.Value {
		if n.Parent != nil && n.Parent.Type == html.ElementNode {
			return e.wrap(n.Parent)
		}
		return goja.Null()
	}, nil)
	e.accessor(obj, "childNodes", func() goja.Value {
		var nodes []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
		return e.wrapAll(nodes)
	}, nil)
	e.accessor(obj, "children", func() goja.Value { return e.wrapAll(elementChildren(n)) }, nil)
	e.accessor(obj, "firstChild", func() goja.Value { return e.wrap(n.FirstChild) }, nil)
	e.accessor(obj, "lastChild", func() goja.Value { return e.wrap(n.LastChild) }, nil)
	e.accessor(obj, "nextSibling", func() goja.Value { return e.wrap(n.NextSibling) }, nil)
	e.accessor(obj, "previousSibling", func() goja.Value { return e.wrap(n.PrevSibling) }, nil)
	e.accessor(obj, "firstElementChild", func() goja.Value {
		if children := elementChildren(n); len(children) > 0 {
			return e.wrap(children[0])
		}
		return goja.Null()
	}, nil)
	e.accessor(obj, "nextElementSibling", func() goja.Value {
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				return e.wrap(s)
			}
		}
		return goja.Null()
	}, nil)
	e.accessor(obj, "previousElementSibling", func() goja.Value {
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				return e.wrap(s)
			}
		}
		return goja.Null()
	}, nil)

	returnFirst := func(call goja.FunctionCall) goja.Value { return call.Argument(0) }
	for _, name := range []string{"appendChild", "removeChild", "insertBefore", "replaceChild"} {
		e.must(obj.Set(name, returnFirst))
	}
	for _, name := range []string{"append", "prepend", "remove", "before", "after", "replaceWith", "normalize"} {
		e.must(obj.Set(name, noop))
	}
	e.must(obj.Set("cloneNode", func(goja.FunctionCall) goja.Value {
		clone := &html.Node{Type: n.Type, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace}
		clone.Attr = append(clone.Attr, n.Attr...)
		return e.wrap(clone)
	}))
	e.must(obj.Set("contains", func(call goja.FunctionCall) goja.Value {
		other := e.unwrap(call.Argument(0))
		for p := other; p != nil; p = p.Parent {
			if p == n {
				return e.vm.ToValue(true)
			}
		}
		return e.vm.ToValue(false)
	}))
}

func (e *environment) initElement(obj *goja.Object, n *html.Node) {
	e.must(obj.Set("nodeType", 1))
	e.must(obj.Set("nodeName", strings.ToUpper(n.Data)))
	e.must(obj.Set("tagName", strings.ToUpper(n.Data)))
	e.initNode(obj, n)
	e.installQueries(obj, n)

	attrProperty := func(name string) {
		e.accessor(obj, name, func() goja.Value {
			v, _ := attr(n, name)
			return e.vm.ToValue(v)
		}, func(goja.Value) {})
	}
	for _, name := range []string{"id", "name", "type", "value", "href", "src", "title", "placeholder"} {
		attrProperty(name)
	}
	e.accessor(obj, "className", func() goja.Value {
		v, _ := attr(n, "class")
		return e.vm.ToValue(v)
	}, func(goja.Value) {})
	e.accessor(obj, "checked", func() goja.Value {
		_, ok := attr(n, "checked")
		return e.vm.ToValue(ok)
	}, func(goja.Value) {})
	e.accessor(obj, "textContent", func() goja.Value { return e.vm.ToValue(textContent(n)) }, func(goja.Value) {})
	e.accessor(obj, "innerText", func() goja.Value { return e.vm.ToValue(textContent(n)) }, func(goja.Value) {})
	e.accessor(obj, "innerHTML", func() goja.Value { return e.vm.ToValue(renderChildren(n)) }, func(goja.Value) {})

	e.must(obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := attr(n, strings.ToLower(call.Argument(0).String())); ok {
			return e.vm.ToValue(v)
		}
		return goja.Null()
	}))
	e.must(obj.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := attr(n, strings.ToLower(call.Argument(0).String()))
		return e.vm.ToValue(ok)
	}))
	e.must(obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		name := strings.ToLower(call.Argument(0).String())
		if event, ok := strings.CutPrefix(name, "on"); ok && event != "" {
			e.setProperty(n, event, call.Argument(1), true)
		}
		return goja.Undefined()
	}))
	e.must(obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		name := strings.ToLower(call.Argument(0).String())
		if event, ok := strings.CutPrefix(name, "on"); ok && event != "" {
			e.setProperty(n, event, goja.Null(), false)
		}
		return goja.Undefined()
	}))

	e.must(obj.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		e.addListener(n, call.Argument(0).String(), call.Argument(1))
		return goja.Undefined()
	}))
	e.must(obj.Set("removeEventListener", func(call goja.FunctionCall) goja.Value {
		e.removeListener(n, call.Argument(0).String(), call.Argument(1))
		return goja.Undefined()
	}))
	e.must(obj.Set("dispatchEvent", func(goja.FunctionCall) goja.Value { return e.vm.ToValue(true) }))
	for _, event := range handlerProperties {
		e.accessor(obj, "on"+event, func() goja.Value {
			if v, ok := e.properties[target{n, event}]; ok {
				return v
			}
			return goja.Null()
		}, func(v goja.Value) {
			e.setProperty(n, event, v, isHandler(v))
		})
	}

	e.must(obj.Set("matches", func(call goja.FunctionCall) goja.Value {
		return e.vm.ToValue(e.matches(n, call.Argument(0).String()))
	}))
	e.must(obj.Set("closest", func(call goja.FunctionCall) goja.Value {
		sel := call.Argument(0).String()
		for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
			if e.matches(p, sel) {
				return e.wrap(p)
			}
		}
		return goja.Null()
	}))
	for _, name := range []string{"focus", "blur", "click", "scrollIntoView", "submit", "reset"} {
		e.must(obj.Set(name, noop))
	}
	e.must(obj.Set("getBoundingClientRect", func(goja.FunctionCall) goja.Value {
		rect := e.vm.NewObject()
		for _, k := range []string{"x", "y", "top", "left", "right", "bottom", "width", "height"} {
			e.must(rect.Set(k, 0))
		}
		return rect
	}))

	e.must(obj.Set("style", e.vm.NewObject()))
	e.must(obj.Set("classList", e.classList(n)))
	dataset := e.vm.NewObject()
	for _, a := range n.Attr {
		if key, ok := strings.CutPrefix(a.Key, "data-"); ok {
			e.must(dataset.Set(camelCase(key), a.Val))
		}
	}
	e.must(obj.Set("dataset", dataset))
}

func (e *environment) classList(n *html.Node) *goja.Object {
	list := e.vm.NewObject()
	e.must(list.Set("contains", func(call goja.FunctionCall) goja.Value {
		v, _ := attr(n, "class")
		for _, c := range strings.Fields(v) {
			if c == call.Argument(0).String() {
				return e.vm.ToValue(true)
			}
		}
		return e.vm.ToValue(false)
	}))
	for _, name := range []string{"add", "remove", "replace"} {
		e.must(list.Set(name, noop))
	}
	e.must(list.Set("toggle", func(goja.FunctionCall) goja.Value { return e.vm.ToValue(false) }))
	return list
}

// unwrap finds the node behind a wrapper created by this environment.
func (e *environment) unwrap(v goja.Value) *html.Node {
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	for n, w := range e.wrappers {
		if w == obj {
			return n
		}
	}
	return nil
}

// --- Listener bookkeeping ---

func (e *environment) addListener(n *html.Node, event string, fn goja.Value) {
	if !isHandler(fn) {
		return
	}
	key := target{n, strings.ToLower(event)}
	if indexOf(e.listeners[key], fn) >= 0 {
		return
	}
	e.listeners[key] = append(e.listeners[key], fn)
	e.set.Add(n, key.event)
}

func (e *environment) removeListener(n *html.Node, event string, fn goja.Value) {
	key := target{n, strings.ToLower(event)}
	handlers := e.listeners[key]
	i := indexOf(handlers, fn)
	if i < 0 {
		return
	}
	e.listeners[key] = append(handlers[:i], handlers[i+1:]...)
	e.set.Remove(n, key.event)
}

// setProperty tracks an onX property or attribute. A node has at most one
// property handler per event.
func (e *environment) setProperty(n *html.Node, event string, v goja.Value, active bool) {
	key := target{n, strings.ToLower(event)}
	_, had := e.properties[key]
	switch {
	case active && !had:
		e.properties[key] = v
		e.set.Add(n, key.event)
	case active:
		e.properties[key] = v
	case had:
		delete(e.properties, key)
		e.set.Remove(n, key.event)
	}
}

// --- Queries ---

func (e *environment) installQueries(obj *goja.Object, n *html.Node) {
	scoped := n != e.root
	e.must(obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		nodes := e.selectAll(n, call.Argument(0).String(), scoped)
		if len(nodes) == 0 {
			return goja.Null()
		}
		return e.wrap(nodes[0])
	}))
	e.must(obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return e.wrapAll(e.selectAll(n, call.Argument(0).String(), scoped))
	}))
	e.must(obj.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		var out []*html.Node
		walkElements(n, func(c *html.Node) bool {
			if c != n && (tag == "*" || c.Data == tag) {
				out = append(out, c)
			}
			return true
		})
		return e.wrapAll(out)
	}))
	e.must(obj.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		want := strings.Fields(call.Argument(0).String())
		var out []*html.Node
		walkElements(n, func(c *html.Node) bool {
			if c != n && len(want) > 0 && hasClasses(c, want) {
				out = append(out, c)
			}
			return true
		})
		return e.wrapAll(out)
	}))
}

// selectAll evaluates a CSS selector below n. Invalid selectors throw into
// the calling script.
func (e *environment) selectAll(n *html.Node, selector string, scoped bool) []*html.Node {
	xpath, err := translateCSSToXPath(selector, scoped)
	if err != nil {
		panic(e.vm.NewGoError(err))
	}
	return e.query(n, xpath)
}

func (e *environment) query(n *html.Node, xpath string) []*html.Node {
	nodes, err := queryAll(n, xpath)
	if err != nil {
		e.logger.Debug("XPath query failed.", zap.String("xpath", xpath), zap.Error(err))
		panic(e.vm.NewGoError(&InvalidSelectorError{Selector: xpath}))
	}
	return nodes
}

// queryAll evaluates xpath below n. Sibling and descendant steps can reach
// the same node from several context nodes; each node is returned once, at
// its first position.
func queryAll(n *html.Node, xpath string) ([]*html.Node, error) {
	nodes, err := htmlquery.QueryAll(n, xpath)
	if err != nil {
		return nil, err
	}
	seen := make(map[*html.Node]struct{}, len(nodes))
	out := nodes[:0]
	for _, node := range nodes {
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}
		out = append(out, node)
	}
	return out, nil
}

func (e *environment) matches(n *html.Node, selector string) bool {
	for _, m := range e.selectAll(e.root, selector, false) {
		if m == n {
			return true
		}
	}
	return false
}

// --- Console and timers ---

func (e *environment) initConsole() {
	console := e.vm.NewObject()
	logFunc := func(level zapcore.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.String()
			}
			e.logger.Log(level, "[JS Console]", zap.String("message", strings.Join(args, " ")))
			return goja.Undefined()
		}
	}
	e.must(console.Set("log", logFunc(zap.DebugLevel)))
	e.must(console.Set("info", logFunc(zap.DebugLevel)))
	e.must(console.Set("debug", logFunc(zap.DebugLevel)))
	e.must(console.Set("warn", logFunc(zap.InfoLevel)))
	e.must(console.Set("error", logFunc(zap.WarnLevel)))
	e.must(e.vm.GlobalObject().Set("console", console))
}

// initTimers queues timer callbacks instead of waiting for them. Intervals
// fire once. The queue is drained after the scripts have run.
func (e *environment) initTimers() {
	schedule := func(call goja.FunctionCall) goja.Value {
		fn := call.Argument(0)
		if _, ok := goja.AssertFunction(fn); !ok {
			return e.vm.ToValue(0)
		}
		e.nextTimer++
		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}
		e.queue = append(e.queue, timer{id: e.nextTimer, fn: fn, args: args})
		return e.vm.ToValue(e.nextTimer)
	}
	cancel := func(call goja.FunctionCall) goja.Value {
		e.cancelled[call.Argument(0).ToInteger()] = true
		return goja.Undefined()
	}

	global := e.vm.GlobalObject()
	for _, name := range []string{"setTimeout", "setInterval", "requestAnimationFrame", "requestIdleCallback", "queueMicrotask"} {
		e.must(global.Set(name, schedule))
	}
	for _, name := range []string{"clearTimeout", "clearInterval", "cancelAnimationFrame", "cancelIdleCallback"} {
		e.must(global.Set(name, cancel))
	}
}

// drain runs the timer queue, then the DOMContentLoaded handlers, the timer
// queue again, the load handlers including window.onload, and a final timer
// pass. At most limit callbacks run in total.
func (e *environment) drain(limit int) error {
	var errs error
	budget := limit
	call := func(source string, fn goja.Value, this goja.Value, args ...goja.Value) error {
		if budget <= 0 {
			return nil
		}
		budget--
		err := e.invoke(fn, this, args...)
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return err
		}
		if err != nil {
			e.logger.Debug("Callback failed.", zap.String("source", source), zap.Error(err))
			errs = multierr.Append(errs, &ScriptError{Source: source, Err: err})
		}
		return nil
	}
	flush := func() error {
		for len(e.queue) > 0 && budget > 0 {
			t := e.queue[0]
			e.queue = e.queue[1:]
			if e.cancelled[t.id] {
				continue
			}
			if err := call("timer callback", t.fn, goja.Undefined(), t.args...); err != nil {
				return err
			}
		}
		if len(e.queue) > 0 {
			e.logger.Debug("Callback budget exhausted.", zap.Int("pending", len(e.queue)))
			e.queue = nil
		}
		return nil
	}
	fire := func(event string, handlers []goja.Value) error {
		evt := e.event(event)
		for _, fn := range handlers {
			if err := call(event+" handler", fn, e.document, evt); err != nil {
				return err
			}
		}
		return nil
	}

	if err := flush(); err != nil {
		return err
	}
	e.must(e.document.Set("readyState", "interactive"))
	if err := fire("DOMContentLoaded", e.lifecycle["domcontentloaded"]); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	e.must(e.document.Set("readyState", "complete"))
	load := e.lifecycle["load"]
	if onload := e.vm.GlobalObject().Get("onload"); isHandler(onload) {
		load = append(load, onload)
	}
	if err := fire("load", load); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	return errs
}

func (e *environment) invoke(fn goja.Value, this goja.Value, args ...goja.Value) error {
	if f, ok := goja.AssertFunction(fn); ok {
		_, err := f(this, args...)
		return err
	}
	if obj, ok := fn.(*goja.Object); ok {
		if f, ok := goja.AssertFunction(obj.Get("handleEvent")); ok {
			_, err := f(obj, args...)
			return err
		}
	}
	return nil
}

func (e *environment) event(name string) *goja.Object {
	evt := e.vm.NewObject()
	e.must(evt.Set("type", name))
	e.must(evt.Set("target", e.document))
	e.must(evt.Set("preventDefault", noop))
	e.must(evt.Set("stopPropagation", noop))
	return evt
}

// --- Helpers ---

func (e *environment) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := e.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	setter := goja.Undefined()
	if set != nil {
		setter = e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	e.must(obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE))
}

func (e *environment) must(err error) {
	if err != nil {
		e.logger.Error("Failed to define script binding", zap.Error(err))
	}
}

func noop(goja.FunctionCall) goja.Value {
	return goja.Undefined()
}

// isHandler reports whether v can be called as an event listener.
func isHandler(v goja.Value) bool {
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return false
	}
	if _, ok := goja.AssertFunction(v); ok {
		return true
	}
	if obj, ok := v.(*goja.Object); ok {
		_, ok := goja.AssertFunction(obj.Get("handleEvent"))
		return ok
	}
	return false
}

func indexOf(values []goja.Value, v goja.Value) int {
	for i, w := range values {
		if w.SameAs(v) {
			return i
		}
	}
	return -1
}

func walkElements(n *html.Node, visit func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walkElements(c, visit) {
			return false
		}
	}
	return true
}

func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClasses(n *html.Node, want []string) bool {
	v, _ := attr(n, "class")
	have := strings.Fields(v)
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.CommentNode {
			b.WriteString(textContent(c))
		}
	}
	return b.String()
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return b.String()
		}
	}
	return b.String()
}

func camelCase(s string) string {
	parts := strings.Split(s, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
