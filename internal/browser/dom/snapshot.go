// internal/browser/dom/snapshot.go
package dom

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/xkilldash9x/litmus/internal/browser/jsbind"
	"github.com/xkilldash9x/litmus/internal/browser/style"
	"github.com/xkilldash9x/litmus/internal/listener"
	"github.com/xkilldash9x/litmus/internal/pageindex"
)

// Snapshot is one captured document together with everything needed to
// index it: its computed styles and its event listeners.
type Snapshot struct {
	ID        uuid.UUID
	Source    string
	Root      *html.Node
	Styles    pageindex.StyleResolver
	Listeners listener.Registry
	Index     *pageindex.PageIndex
}

// NewSnapshot indexes an already resolved document. It is used by the browser
// capture path, which gets styles and listeners from the browser itself.
func NewSnapshot(source string, root *html.Node, styles pageindex.StyleResolver, listeners listener.Registry, logger *zap.Logger) *Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if listeners == nil {
		listeners = listener.Attributes{}
	}
	s := &Snapshot{
		ID:        uuid.New(),
		Source:    source,
		Root:      root,
		Styles:    styles,
		Listeners: listeners,
	}
	s.Index = pageindex.Build(root, styles, pageindex.WithLogger(logger.With(zap.String("snapshot_id", s.ID.String()))))
	return s
}

// Probe returns a mouse action probe over the snapshot's listeners.
func (s *Snapshot) Probe() *listener.Probe {
	return listener.NewProbe(s.Listeners)
}

type loadOptions struct {
	logger       *zap.Logger
	source       string
	scripts      bool
	recorderOpts []jsbind.Option
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithLogger sets the logger for the load and the index build.
func WithLogger(logger *zap.Logger) LoadOption {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSource records where the document came from.
func WithSource(source string) LoadOption {
	return func(o *loadOptions) { o.source = source }
}

// WithScripts enables evaluation of inline scripts to discover listeners
// registered from script. Without it only on* attributes count.
func WithScripts(enabled bool, opts ...jsbind.Option) LoadOption {
	return func(o *loadOptions) {
		o.scripts = enabled
		o.recorderOpts = opts
	}
}

// Load parses a static HTML document, resolves its author styles and
// listeners and builds its page index. contentType is the declared MIME type,
// used to pick the character encoding; it may be empty. Script failures are
// logged and do not fail the load.
func Load(ctx context.Context, r io.Reader, contentType string, opts ...LoadOption) (*Snapshot, error) {
	o := loadOptions{logger: zap.NewNop(), scripts: true}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.Named("dom")
	start := time.Now()

	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect document encoding: %w", err)
	}
	root, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML document: %w", err)
	}

	styles := style.Resolve(root, logger)

	var listeners listener.Registry = listener.Attributes{}
	if o.scripts {
		registry, err := jsbind.NewRecorder(root, logger, o.recorderOpts...).Run(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("document load cancelled: %w", ctxErr)
		}
		for _, scriptErr := range multierr.Errors(err) {
			logger.Warn("Inline script did not complete.", zap.String("source", o.source), zap.Error(scriptErr))
		}
		listeners = registry
	}

	s := NewSnapshot(o.source, root, styles, listeners, logger)
	logger.Debug("Snapshot loaded.",
		zap.String("snapshot_id", s.ID.String()),
		zap.String("source", o.source),
		zap.Int("elements", len(s.Index.Elements())),
		zap.Duration("duration", time.Since(start)),
	)
	return s, nil
}

// LoadFile loads a snapshot from an HTML file on disk.
func LoadFile(ctx context.Context, path string, opts ...LoadOption) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer f.Close()

	opts = append([]LoadOption{WithSource(path)}, opts...)
	return Load(ctx, f, "text/html", opts...)
}
