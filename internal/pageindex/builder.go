// internal/pageindex/builder.go
package pageindex

import (
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Option configures Build.
type Option func(*builder)

// WithLogger attaches a logger that receives one debug entry per build.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// frame is the traversal state of one open element.
type frame struct {
	id     int
	depth  int
	kind   Kind
	style  ComputedStyle
	parent *frame
	// formOnly routes text to the WithFormControls variant only.
	formOnly bool
	// silent suppresses all text below script-like elements.
	silent bool
	// capitalized records that the first letter of the element's direct text
	// has been seen.
	capitalized bool
	// nextItem is the next list item number of an ordered list.
	nextItem int
}

type builder struct {
	styles  StyleResolver
	logger  *zap.Logger
	with    *sink
	without *sink
	idx     *PageIndex
}

// Build indexes the document rooted at root in a single pre-order traversal.
// root is normally the document node; an element root is indexed itself and
// gets order 1.
// A nil resolver treats every element as displayed and visible with its HTML
// default display type. Build never fails on a structurally valid tree.
func Build(root *html.Node, styles StyleResolver, opts ...Option) *PageIndex {
	if styles == nil {
		styles = defaultResolver{}
	}
	b := &builder{
		styles:  styles,
		logger:  zap.NewNop(),
		with:    newSink(),
		without: newSink(),
		idx: &PageIndex{
			root:  root,
			order: make(map[*html.Node]int),
			byID:  make(map[string]*html.Node),
		},
	}
	for _, opt := range opts {
		opt(b)
	}

	start := time.Now()
	if root != nil {
		if root.Type == html.ElementNode {
			b.element(root, nil)
		} else {
			b.walkChildren(root, nil)
		}
		collectIDs(root, b.idx.byID)
	}

	idx := b.idx
	idx.text = b.with.String()
	idx.textWithout = b.without.String()
	idx.spans = b.with.spans
	idx.spansWithout = b.without.spans
	for i, k := range idx.kinds {
		if k.IsLabelable() {
			idx.controls = append(idx.controls, i)
		}
	}

	b.logger.Debug("Page index built.",
		zap.Int("elements", len(idx.nodes)),
		zap.Int("text_length", len(idx.text)),
		zap.Int("text_without_form_controls_length", len(idx.textWithout)),
		zap.Duration("duration", time.Since(start)),
	)
	return idx
}

func (b *builder) walkChildren(n *html.Node, f *frame) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			b.element(c, f)
		case html.TextNode:
			if f != nil {
				b.text(c.Data, f)
			}
		case html.DocumentNode:
			b.walkChildren(c, f)
		}
	}
}

func (b *builder) element(n *html.Node, parent *frame) {
	idx := b.idx
	id := len(idx.nodes)
	idx.nodes = append(idx.nodes, n)
	idx.order[n] = id
	idx.last = append(idx.last, id)

	f := &frame{
		id:     id,
		kind:   KindOf(n),
		style:  b.styles.ComputedStyle(n),
		parent: parent,
	}
	path := strconv.Itoa(id + 1)
	if parent != nil {
		f.depth = parent.depth + 1
		f.formOnly = parent.formOnly
		f.silent = parent.silent
		f.style.Visible = f.style.Visible && f.style.Display != DisplayNone
		path = idx.paths[parent.id] + ">" + path
		idx.parents = append(idx.parents, parent.id)
	} else {
		idx.parents = append(idx.parents, -1)
	}
	idx.paths = append(idx.paths, path)
	idx.kinds = append(idx.kinds, f.kind)

	b.with.open(id)
	b.without.open(id)

	// Hidden subtrees keep their own index but never index their descendants.
	if f.style.Display != DisplayNone {
		separated := f.style.Display.separates()
		if separated {
			b.separate()
		}
		b.render(n, f)
		if separated {
			b.separate()
		}
	}

	b.with.close(id, f.depth)
	b.without.close(id, f.depth)
	idx.last[id] = len(idx.nodes) - 1
}

func (b *builder) separate() {
	b.with.separate()
	b.without.separate()
}

// emit writes generated text of the element owning f, honouring visibility.
func (b *builder) emit(f *frame, text string) {
	if f.silent || !f.style.Visible || text == "" {
		return
	}
	b.with.write(text)
	if !f.formOnly {
		b.without.write(text)
	}
}

// emitControl writes text that only exists in the WithFormControls variant.
func (b *builder) emitControl(f *frame, text string) {
	if f.silent || !f.style.Visible || text == "" {
		return
	}
	b.with.write(text)
}

// text writes a text node owned by f after applying text-transform.
func (b *builder) text(data string, f *frame) {
	if f.silent || !f.style.Visible {
		return
	}
	data = applyTransform(data, f)
	b.emit(f, data)
}

func collectIDs(n *html.Node, byID map[string]*html.Node) {
	if n.Type == html.ElementNode {
		if id, ok := LookupAttr(n, "id"); ok {
			if _, seen := byID[id]; !seen {
				byID[id] = n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectIDs(c, byID)
	}
}
