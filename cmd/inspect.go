package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	snapshot "github.com/xkilldash9x/litmus/internal/browser/dom"
	"github.com/xkilldash9x/litmus/internal/browser/jsbind"
	"github.com/xkilldash9x/litmus/internal/browser/session"
	"github.com/xkilldash9x/litmus/internal/config"
	"github.com/xkilldash9x/litmus/internal/describe"
	"github.com/xkilldash9x/litmus/internal/listener"
	"github.com/xkilldash9x/litmus/internal/observability"
	"github.com/xkilldash9x/litmus/internal/pageindex"
)

type inspectOptions struct {
	withoutFormControls bool
	elements            bool
	id                  string
	asJSON              bool
	noScripts           bool
}

// report is the output of one inspection.
type report struct {
	Source     string          `json:"source"`
	SnapshotID string          `json:"snapshot_id"`
	Text       string          `json:"text"`
	Elements   []elementReport `json:"elements,omitempty"`
	Element    *elementDetail  `json:"element,omitempty"`
}

type elementReport struct {
	Order       int    `json:"order"`
	Hierarchy   string `json:"hierarchy"`
	Kind        string `json:"kind"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	XPath       string `json:"xpath"`
	Description string `json:"description"`
}

type elementDetail struct {
	elementReport
	Text        string          `json:"text"`
	LabelBefore string          `json:"label_before"`
	LabelAfter  string          `json:"label_after"`
	Listeners   map[string]bool `json:"listeners"`
}

func newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <file|url|->",
		Short: "Render a page to text and inspect its elements",
		Long: `Inspect loads an HTML file (or stdin when the argument is "-"), or captures a live
page through a headless browser when the argument is an http(s) URL, and prints
its rendered text. With --elements every indexed element is listed; with --id a
single element is described together with its labeling text and mouse listeners.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("without-form-controls") {
				cfg.SetIndexWithoutFormControls(opts.withoutFormControls)
			}
			if opts.noScripts {
				cfg.SetIndexEvaluateScripts(false)
			}
			return runInspect(cmd.Context(), cfg, args[0], opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.withoutFormControls, "without-form-controls", false, "Leave form control contents out of the text. (Overrides config/env)")
	cmd.Flags().BoolVarP(&opts.elements, "elements", "e", false, "List every indexed element.")
	cmd.Flags().StringVar(&opts.id, "id", "", "Describe the element with this id.")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Write the report as JSON.")
	cmd.Flags().BoolVar(&opts.noScripts, "no-scripts", false, "Do not evaluate inline scripts when looking for listeners.")
	return cmd
}

func runInspect(ctx context.Context, cfg config.Interface, target string, opts *inspectOptions, in io.Reader, out io.Writer) error {
	logger := observability.GetLogger()

	snap, err := load(ctx, cfg, target, in, logger)
	if err != nil {
		return err
	}

	without := cfg.Index().WithoutFormControls
	r := report{Source: snap.Source, SnapshotID: snap.ID.String(), Text: renderedText(snap.Index, without)}

	if opts.elements {
		for _, n := range snap.Index.Elements() {
			r.Elements = append(r.Elements, newElementReport(snap.Index, n, without))
		}
	}
	if opts.id != "" {
		n, err := snap.Index.ElementByID(opts.id)
		if err != nil {
			return fmt.Errorf("cannot inspect element: %w", err)
		}
		r.Element = newElementDetail(snap, n, without)
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	}
	return writeReport(out, r)
}

// load reads the snapshot for target. http and https URLs are captured with
// the browser, "-" reads stdin and anything else is a file path.
func load(ctx context.Context, cfg config.Interface, target string, in io.Reader, logger *zap.Logger) (*snapshot.Snapshot, error) {
	if isRemote(target) {
		capturer, err := session.NewCapturer(ctx, cfg.Browser(), logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := capturer.Close(); err != nil {
				logger.Warn("Browser did not shut down cleanly.", zap.Error(err))
			}
		}()
		return capturer.Capture(ctx, target)
	}

	idx := cfg.Index()
	opts := []snapshot.LoadOption{
		snapshot.WithLogger(logger),
		snapshot.WithScripts(idx.EvaluateScripts,
			jsbind.WithTimeout(idx.ScriptTimeout),
			jsbind.WithMaxScriptBytes(idx.MaxScriptBytes),
			jsbind.WithMaxCallbacks(idx.MaxScriptCallbacks),
		),
	}
	if target == "-" {
		opts = append(opts, snapshot.WithSource("stdin"))
		return snapshot.Load(ctx, in, "", opts...)
	}

	path, err := homedir.Expand(target)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path '%s': %w", target, err)
	}
	return snapshot.LoadFile(ctx, path, opts...)
}

func isRemote(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func renderedText(idx *pageindex.PageIndex, without bool) string {
	if without {
		return idx.TextWithoutFormControls()
	}
	return idx.Text()
}

func newElementReport(idx *pageindex.PageIndex, n *html.Node, without bool) elementReport {
	span, _ := idx.Position(n)
	if without {
		span, _ = idx.PositionWithoutFormControls(n)
	}
	return elementReport{
		Order:       idx.Index(n),
		Hierarchy:   idx.Hierarchy(n),
		Kind:        idx.Kind(n).String(),
		Start:       span.Start,
		End:         span.End,
		XPath:       snapshot.GenerateUniqueXPath(n),
		Description: describe.Element(idx, n),
	}
}

func newElementDetail(snap *snapshot.Snapshot, n *html.Node, without bool) *elementDetail {
	idx := snap.Index
	d := &elementDetail{
		elementReport: newElementReport(idx, n, without),
		LabelBefore:   idx.LabelingTextBefore(n, 0),
		LabelAfter:    idx.LabelingTextAfter(n),
		Listeners:     make(map[string]bool),
	}
	if without {
		d.Text = idx.AsTextWithoutFormControls(n)
	} else {
		d.Text = idx.AsText(n)
	}
	probe := snap.Probe()
	for _, action := range listener.Actions() {
		d.Listeners[action.String()] = probe.HasMouseActionListener(action, n)
	}
	return d
}

func writeReport(out io.Writer, r report) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, r.Text)

	if len(r.Elements) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ORDER\tHIERARCHY\tSPAN\tXPATH\tDESCRIPTION")
		for _, e := range r.Elements {
			fmt.Fprintf(tw, "%d\t%s\t%d-%d\t%s\t%s\n", e.Order, e.Hierarchy, e.Start, e.End, e.XPath, e.Description)
		}
	}

	if e := r.Element; e != nil {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Element:\t%s\n", e.Description)
		fmt.Fprintf(tw, "XPath:\t%s\n", e.XPath)
		fmt.Fprintf(tw, "Order:\t%d (%s)\n", e.Order, e.Hierarchy)
		fmt.Fprintf(tw, "Span:\t%d-%d\n", e.Start, e.End)
		fmt.Fprintf(tw, "Text:\t%q\n", e.Text)
		fmt.Fprintf(tw, "Label before:\t%q\n", e.LabelBefore)
		fmt.Fprintf(tw, "Label after:\t%q\n", e.LabelAfter)
		var handled []string
		for _, action := range listener.Actions() {
			if e.Listeners[action.String()] {
				handled = append(handled, action.String())
			}
		}
		if len(handled) == 0 {
			handled = []string{"none"}
		}
		fmt.Fprintf(tw, "Listeners:\t%s\n", strings.Join(handled, ", "))
	}
	return tw.Flush()
}
