package export

import (
	"context"
	"log/slog"

	"github.com/cbassuarez/flux/internal/ir"
)

// DefaultConcurrency bounds simultaneous typesetter runs.
const DefaultConcurrency = 2

// Option configures an Exporter.
type Option func(*Exporter)

// WithTypesetter sets the PDF typesetter. Without one, PDF export fails
// with EXPORT_FAILED.
func WithTypesetter(ts Typesetter) Option {
	return func(e *Exporter) { e.ts = ts }
}

// WithConcurrency sets how many typesetter runs may be in flight.
func WithConcurrency(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.sem = make(chan struct{}, n)
		}
	}
}

// WithVerifier replaces VerifyPDF.
func WithVerifier(fn func([]byte) (int, error)) Option {
	return func(e *Exporter) { e.verify = fn }
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) { e.logger = logger }
}

// Exporter renders documents to files. PDF runs are rate-limited by a
// semaphore because each one drives a browser page.
type Exporter struct {
	ts     Typesetter
	sem    chan struct{}
	verify func([]byte) (int, error)
	logger *slog.Logger
}

// NewExporter returns an Exporter with DefaultConcurrency.
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{
		sem:    make(chan struct{}, DefaultConcurrency),
		verify: VerifyPDF,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders doc in the given format.
func (e *Exporter) Export(ctx context.Context, doc *ir.Document, format Format) ([]byte, error) {
	switch format {
	case FormatHTML:
		return HTML(doc)
	case FormatMarkdown:
		return Markdown(doc)
	case FormatPDF:
		return e.pdf(ctx, doc)
	}
	return nil, newError(CodeExportFailed, "unsupported format", nil)
}

func (e *Exporter) pdf(ctx context.Context, doc *ir.Document) ([]byte, error) {
	if e.ts == nil {
		return nil, newError(CodeExportFailed, "no typesetter configured", nil)
	}
	page, err := HTML(doc)
	if err != nil {
		return nil, err
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, newError(CodeExportFailed, "waiting for typesetter", ctx.Err())
	}
	defer func() { <-e.sem }()

	spec := PageSpecOf(doc)
	data, err := e.ts.Typeset(ctx, page, spec)
	if err != nil {
		e.logger.Error("typeset failed", "error", err)
		return nil, newError(CodeExportFailed, "typeset pdf", err)
	}

	pages, err := e.verify(data)
	if err != nil {
		return nil, err
	}
	e.logger.Info("pdf exported",
		slog.String("title", doc.Meta.Title),
		slog.String("size", spec.Size),
		slog.Int("pages", pages),
		slog.Int("bytes", len(data)))
	return data, nil
}
