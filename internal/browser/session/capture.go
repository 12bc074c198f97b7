// internal/browser/session/capture.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/domdebugger"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	snapshot "github.com/xkilldash9x/litmus/internal/browser/dom"
	"github.com/xkilldash9x/litmus/internal/browser/style"
	"github.com/xkilldash9x/litmus/internal/config"
	"github.com/xkilldash9x/litmus/internal/listener"
	"github.com/xkilldash9x/litmus/internal/pageindex"
)

const objectGroup = "litmus"

// computedStylesJS returns [display, visibility, textTransform, opacity] for
// every element in document order, the same order convertNode visits them.
const computedStylesJS = `Array.from(document.querySelectorAll('*'), function (el) {
	var s = window.getComputedStyle(el);
	return [s.display, s.visibility, s.textTransform, s.opacity];
})`

// Capturer drives one browser process and captures live pages into
// snapshots. Each capture runs in its own tab. It is safe for concurrent use.
type Capturer struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closeOnce     sync.Once
}

// NewCapturer launches the browser. The browser lives until Close is called
// or ctx is cancelled.
func NewCapturer(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Capturer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	c := &Capturer{
		cfg:           cfg,
		logger:        logger.Named("session"),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
	c.logger.Debug("Browser started.", zap.Bool("headless", cfg.Headless))
	return c, nil
}

// execOptions builds the allocator options from the configuration. Args of
// the form key=value become valued flags, anything else a boolean flag.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("mute-audio", true),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// Capture navigates a new tab to url and snapshots the rendered document: the
// DOM as the browser holds it, the browser's computed styles and, when
// configured, the listeners the browser reports for every element.
func (c *Capturer) Capture(ctx context.Context, url string) (*snapshot.Snapshot, error) {
	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	defer tabCancel()

	runCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	navCtx, navCancel := withBudget(runCtx, c.cfg.NavigationTimeout)
	defer navCancel()

	log := c.logger.With(zap.String("url", url))
	start := time.Now()

	var (
		root     *cdp.Node
		computed [][]string
	)
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.cfg.SettleWait),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			root, err = dom.GetDocument().WithDepth(-1).Do(ctx)
			return err
		}),
		chromedp.Evaluate(computedStylesJS, &computed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", url, err)
	}

	tree := convertDocument(root)
	styles := c.styles(tree, computed, log)

	var listeners listener.Registry = listener.Attributes{}
	if c.cfg.CaptureListeners {
		listenCtx, listenCancel := withBudget(runCtx, c.cfg.ListenerTimeout)
		set, err := c.listeners(listenCtx, tree)
		listenCancel()
		if err != nil {
			if runCtx.Err() != nil {
				return nil, fmt.Errorf("listener capture for %s interrupted: %w", url, context.Cause(runCtx))
			}
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("Listener capture ran out of time; listeners found so far are kept.",
					zap.Duration("listener_timeout", c.cfg.ListenerTimeout), zap.Int("elements_with_listeners", set.Len()))
			} else {
				log.Warn("Some event listeners could not be read.", zap.Error(err))
			}
		}
		listeners = listener.Combine(listener.Attributes{}, set)
	}

	s := snapshot.NewSnapshot(url, tree.root, styles, listeners, log)
	log.Info("Page captured.",
		zap.String("snapshot_id", s.ID.String()),
		zap.Int("elements", len(tree.elements)),
		zap.Duration("duration", time.Since(start)),
	)
	return s, nil
}

// withBudget bounds one capture phase. Each phase gets its own deadline
// derived from the tab context; a non-positive d only inherits cancellation.
func withBudget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// styles maps the browser's computed styles onto the converted tree. When the
// element counts disagree, which happens if the page mutated between the two
// reads, the static cascade over the converted tree is used instead.
func (c *Capturer) styles(tree *document, computed [][]string, log *zap.Logger) pageindex.StyleResolver {
	if len(computed) != len(tree.elements) {
		log.Warn("Computed styles do not match the captured DOM; falling back to the static cascade.",
			zap.Int("styles", len(computed)), zap.Int("elements", len(tree.elements)))
		return style.Resolve(tree.root, log)
	}

	out := make(pageindex.StyleMap, len(computed))
	index := make(map[*html.Node]int, len(tree.elements))
	for i, el := range tree.elements {
		index[el.node] = i
	}
	var walk func(n *html.Node, parentOpaque bool)
	walk = func(n *html.Node, parentOpaque bool) {
		opaque := parentOpaque
		if i, ok := index[n]; ok && len(computed[i]) == 4 {
			v := computed[i]
			cs := style.Computed(n, v[0], v[1], v[2], v[3], parentOpaque)
			out[n] = cs
			opaque = cs.Opaque
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, opaque)
		}
	}
	walk(tree.root, true)
	return out
}

// listeners asks the browser for the listeners of every element. Elements
// whose listeners cannot be read are skipped and reported in the error.
func (c *Capturer) listeners(ctx context.Context, tree *document) (*listener.Set, error) {
	set := listener.NewSet()
	var errs error
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		defer func() {
			if err := runtime.ReleaseObjectGroup(objectGroup).Do(ctx); err != nil {
				c.logger.Debug("Failed to release remote objects.", zap.Error(err))
			}
		}()
		for _, el := range tree.elements {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			obj, err := dom.ResolveNode().WithBackendNodeID(el.backendID).WithObjectGroup(objectGroup).Do(ctx)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("resolve <%s>: %w", el.node.Data, err))
				continue
			}
			found, err := domdebugger.GetEventListeners(obj.ObjectID).Do(ctx)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("listeners of <%s>: %w", el.node.Data, err))
				continue
			}
			for _, l := range found {
				set.Add(el.node, l.Type)
			}
		}
		return nil
	}))
	return set, multierr.Append(err, errs)
}

// Close shuts the browser down.
func (c *Capturer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = chromedp.Cancel(c.browserCtx)
		c.browserCancel()
		c.allocCancel()
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("failed to stop browser: %w", err)
	}
	return nil
}
