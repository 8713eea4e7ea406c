package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/cbassuarez/flux/internal/ir"
)

// PageSpec is the paper a document is typeset on.
type PageSpec struct {
	Size      string // A3, A4, A5, Letter or Legal
	Landscape bool
}

// paperInches maps page sizes to portrait width and height in inches.
var paperInches = map[string][2]float64{
	"a3":     {11.69, 16.54},
	"a4":     {8.27, 11.69},
	"a5":     {5.83, 8.27},
	"letter": {8.5, 11},
	"legal":  {8.5, 14},
}

// PageSpecOf reads the page settings carried in a render document.
func PageSpecOf(doc *ir.Document) PageSpec {
	spec := PageSpec{Size: "A4"}
	if s, ok := doc.Page["size"].(ir.String); ok && s != "" {
		spec.Size = string(s)
	}
	if o, ok := doc.Page["orientation"].(ir.String); ok {
		spec.Landscape = strings.EqualFold(string(o), "landscape")
	}
	return spec
}

// Paper returns the sheet width and height in inches, honouring the
// orientation. Unknown sizes fall back to A4.
func (p PageSpec) Paper() (w, h float64) {
	dims, ok := paperInches[strings.ToLower(p.Size)]
	if !ok {
		dims = paperInches["a4"]
	}
	w, h = dims[0], dims[1]
	if p.Landscape {
		w, h = h, w
	}
	return w, h
}

// Typesetter turns an HTML page into a PDF. It is an external
// collaborator: implementations may shell out or drive a browser.
type Typesetter interface {
	Typeset(ctx context.Context, html []byte, page PageSpec) ([]byte, error)
}

// RodTypesetter prints pages with headless Chromium through Rod. The
// browser is launched on first use and reused until Close.
type RodTypesetter struct {
	// ControlURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local headless Chrome.
	ControlURL string
	Logger     *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

func (r *RodTypesetter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *RodTypesetter) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.ControlURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("typeset: launch: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.logger().Info("typeset: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("typeset: connect: %w", err)
	}
	r.browser = b
	return b, nil
}

// Typeset implements Typesetter.
func (r *RodTypesetter) Typeset(ctx context.Context, html []byte, page PageSpec) ([]byte, error) {
	b, err := r.connect()
	if err != nil {
		return nil, err
	}

	p, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("typeset: new page: %w", err)
	}
	defer p.Close()
	p = p.Context(ctx)

	if err := p.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("typeset: set content: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("typeset: wait load: %w", err)
	}

	w, h := page.Paper()
	stream, err := p.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        &w,
		PaperHeight:       &h,
	})
	if err != nil {
		return nil, fmt.Errorf("typeset: print: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("typeset: read pdf: %w", err)
	}
	return data, nil
}

// Close shuts down the browser, and the local Chrome if one was launched.
func (r *RodTypesetter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Kill()
		r.lnch = nil
	}
	return err
}
