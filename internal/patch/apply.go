package patch

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/cbassuarez/flux/internal/fit"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/markup"
)

// Report lists what ApplySlotPatches did. Missing targets are not errors:
// the batch continues and the host decides what to do with them.
type Report struct {
	Applied []string              `json:"applied"`
	Missing []string              `json:"missing"`
	Fits    map[string]fit.Result `json:"fits,omitempty"`
}

// ApplyOption configures ApplySlotPatches.
type ApplyOption func(*applyConfig)

type applyConfig struct {
	policy   *bluemonday.Policy
	measurer fit.Measurer
	logger   *slog.Logger
}

// WithPolicy replaces the sanitisation policy. A nil policy disables
// sanitisation, for markup the caller produced itself.
func WithPolicy(p *bluemonday.Policy) ApplyOption {
	return func(c *applyConfig) { c.policy = p }
}

// WithMeasurer resolves shrink and scaleDown fits after each patch.
func WithMeasurer(m fit.Measurer) ApplyOption {
	return func(c *applyConfig) { c.measurer = m }
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) ApplyOption {
	return func(c *applyConfig) { c.logger = logger }
}

// Policy returns the sanitisation policy applied to incoming slot markup:
// user-generated-content rules plus the data-flux-* attributes and
// styling hooks that slot content uses. Inline style is kept verbatim on
// layout elements so nested reservations and cell variables survive.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataAttributes()
	p.AllowAttrs("class").Globally()
	p.AllowElements("section", "figure", "span", "div")
	p.AllowAttrs("style").OnElements("section", "figure", "span", "div")
	return p
}

// ApplySlotPatches replaces the inner content of each patched slot under
// root. For every id it finds the element with data-flux-id=id, then its
// data-flux-slot-inner descendant, and swaps that container's children
// for the parsed patch markup. Applying the same patches twice leaves the
// tree as after the first application.
func ApplySlotPatches(root *html.Node, patches map[string]string, opts ...ApplyOption) Report {
	cfg := applyConfig{policy: Policy(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	ids := make([]string, 0, len(patches))
	for id := range patches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := Report{Applied: []string{}, Missing: []string{}}
	for _, id := range ids {
		slot := markup.FindByID(root, id)
		var inner *html.Node
		if slot != nil {
			inner = markup.InnerContainer(slot)
		}
		if inner == nil {
			cfg.logger.Warn("patch target missing", slog.String("slot", id))
			report.Missing = append(report.Missing, id)
			continue
		}

		content := patches[id]
		if cfg.policy != nil {
			content = cfg.policy.Sanitize(content)
		}
		nodes, err := markup.ParseFragment(content, inner)
		if err != nil {
			cfg.logger.Warn("patch markup rejected", slog.String("slot", id), slog.Any("error", err))
			report.Missing = append(report.Missing, id)
			continue
		}

		for c := inner.FirstChild; c != nil; c = inner.FirstChild {
			inner.RemoveChild(c)
		}
		for _, n := range nodes {
			inner.AppendChild(n)
		}
		report.Applied = append(report.Applied, id)

		if cfg.measurer != nil {
			if res, ok := resolveFit(slot, inner, cfg.measurer); ok {
				if report.Fits == nil {
					report.Fits = make(map[string]fit.Result)
				}
				report.Fits[id] = res
			}
		}
	}
	return report
}

// ResolveFits resolves the fit policy of every slot under root in
// document order, outer slots before the slots nested in them.
func ResolveFits(root *html.Node, m fit.Measurer) map[string]fit.Result {
	fits := make(map[string]fit.Result)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := markup.Attr(n, markup.AttrFit); ok {
				if inner := markup.InnerContainer(n); inner != nil {
					if res, ok := resolveFit(n, inner, m); ok {
						id, _ := markup.Attr(n, markup.AttrID)
						fits[id] = res
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return fits
}

// resolveFit measures a patched slot and writes the resolved font size or
// scale onto its inner container. Static policies are skipped.
func resolveFit(slot, inner *html.Node, m fit.Measurer) (fit.Result, bool) {
	spec, ok := slotSpec(slot)
	if !ok || !spec.Fit.Dynamic() {
		return fit.Result{}, false
	}

	container, box := m.Measure(spec, markup.TextContent(inner))
	res := fit.Resolve(spec.Fit, container, box)
	switch spec.Fit {
	case ir.FitShrink:
		markup.SetAttr(inner, "style", "font-size:"+formatPx(res.FontSize))
	case ir.FitScaleDown:
		markup.SetAttr(inner, "style", fmt.Sprintf("display:inline-block;transform-origin:top left;transform:scale(%s)",
			strconv.FormatFloat(res.Scale, 'f', 4, 64)))
	}
	return res, true
}

func slotSpec(slot *html.Node) (ir.SlotSpec, bool) {
	fitAttr, _ := markup.Attr(slot, markup.AttrFit)
	policy, err := ir.ParseFitPolicy(fitAttr)
	if err != nil {
		return ir.SlotSpec{}, false
	}
	spec := ir.SlotSpec{Fit: policy}
	if w, ok := markup.Attr(slot, markup.AttrWidth); ok {
		spec.Reserve.Width, _ = ir.ParseLength(w)
	}
	if h, ok := markup.Attr(slot, markup.AttrHeight); ok {
		spec.Reserve.Height, _ = ir.ParseLength(h)
	}
	return spec, true
}

func formatPx(px float64) string {
	return strconv.FormatFloat(px, 'f', 2, 64) + "px"
}
