// internal/browser/jsbind/recorder.go
package jsbind

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/litmus/internal/listener"
)

const (
	defaultTimeout        = 2 * time.Second
	defaultMaxScriptBytes = 256 << 10
	defaultMaxCallbacks   = 1000
)

// Recorder runs the inline scripts of a static document in a goja runtime and
// records every event handler they register. The document is never mutated;
// DOM writes from scripts are accepted and dropped.
type Recorder struct {
	root   *html.Node
	logger *zap.Logger

	timeout        time.Duration
	maxScriptBytes int
	maxCallbacks   int

	set *listener.Set
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithTimeout bounds the total script execution time of one Run.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxScriptBytes skips inline scripts larger than n bytes.
func WithMaxScriptBytes(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxScriptBytes = n
		}
	}
}

// WithMaxCallbacks caps how many timer and load callbacks are run, so that a
// self-rescheduling timer cannot spin forever.
func WithMaxCallbacks(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxCallbacks = n
		}
	}
}

// NewRecorder creates a recorder for the document rooted at root.
func NewRecorder(root *html.Node, logger *zap.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		root:           root,
		logger:         logger.Named("jsbind"),
		timeout:        defaultTimeout,
		maxScriptBytes: defaultMaxScriptBytes,
		maxCallbacks:   defaultMaxCallbacks,
		set:            listener.NewSet(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Set returns the handlers recorded so far.
func (r *Recorder) Set() *listener.Set {
	return r.set
}

// Run executes the inline scripts in document order, then the queued timer
// callbacks, then DOMContentLoaded and load handlers. It returns a registry
// that also honours static on* attributes. Script failures are returned
// combined but never stop the run; only an exhausted budget or a cancelled
// context does.
func (r *Recorder) Run(ctx context.Context) (listener.Registry, error) {
	registry := listener.Combine(listener.Attributes{}, r.set)
	if r.root == nil {
		return registry, nil
	}

	if err := ctx.Err(); err != nil {
		return registry, fmt.Errorf("script run not started: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vm := goja.New()
	env := newEnvironment(vm, r.root, r.set, r.logger)

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	start := time.Now()
	var errs error
	scripts := inlineScripts(r.root)
	for i, src := range scripts {
		if len(src) > r.maxScriptBytes {
			r.logger.Debug("Skipping oversized inline script.", zap.Int("index", i), zap.Int("bytes", len(src)))
			continue
		}
		if _, err := vm.RunScript(fmt.Sprintf("inline-%d.js", i), src); err != nil {
			if ctx.Err() != nil {
				return registry, fmt.Errorf("script budget exhausted at inline script #%d: %w", i, ctx.Err())
			}
			r.logger.Debug("Inline script failed.", zap.Int("index", i), zap.Error(err))
			errs = multierr.Append(errs, &ScriptError{Source: fmt.Sprintf("inline script #%d", i), Err: err})
		}
	}

	if err := env.drain(r.maxCallbacks); err != nil {
		if ctx.Err() != nil {
			return registry, fmt.Errorf("script budget exhausted running callbacks: %w", ctx.Err())
		}
		errs = multierr.Append(errs, err)
	}

	r.logger.Debug("Inline scripts evaluated.",
		zap.Int("scripts", len(scripts)),
		zap.Int("elements_with_listeners", r.set.Len()),
		zap.Int("errors", len(multierr.Errors(errs))),
		zap.Duration("duration", time.Since(start)),
	)
	return registry, errs
}

// inlineScripts returns the source of every classic inline script.
func inlineScripts(root *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "template":
				return
			case "script":
				if isClassicInline(n) {
					var b strings.Builder
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						if c.Type == html.TextNode {
							b.WriteString(c.Data)
						}
					}
					out = append(out, b.String())
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func isClassicInline(n *html.Node) bool {
	var typ string
	for _, a := range n.Attr {
		switch a.Key {
		case "src":
			return false
		case "type":
			typ = strings.ToLower(strings.TrimSpace(a.Val))
		}
	}
	switch typ {
	case "", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
		return true
	}
	return false
}
