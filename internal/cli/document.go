package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/loader"
	"github.com/cbassuarez/flux/internal/markup"
)

// loadedDocument is a parsed document with the hash of its source bytes.
type loadedDocument struct {
	Path string // absolute
	Doc  *ast.Document
	Hash string
}

// loadDocument reads and parses path. Failures carry a loader.LoadError
// so READ_FAILED and PARSE_FAILED reach the caller unchanged.
func loadDocument(path string) (*loadedDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &loader.LoadError{Code: loader.ErrCodeReadFailed, Path: path, Message: err.Error()}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &loader.LoadError{Code: loader.ErrCodeReadFailed, Path: path, Message: err.Error()}
	}
	doc, err := loader.Parse(abs, data)
	if err != nil {
		return nil, err
	}
	return &loadedDocument{Path: abs, Doc: doc, Hash: ir.SourceHash(data)}, nil
}

// PositionView is what step, tick and render report about a rendered
// document.
type PositionView struct {
	Title        string            `json:"title"`
	Docstep      int64             `json:"docstep"`
	Time         float64           `json:"time"`
	Seed         int64             `json:"seed"`
	DocumentHash string            `json:"document_hash"`
	Slots        map[string]string `json:"slots"`
	Document     json.RawMessage   `json:"document,omitempty"`
}

// newPositionView summarises doc. withIR embeds the canonical render IR.
func newPositionView(doc *ir.Document, withIR bool) (*PositionView, error) {
	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return nil, err
	}
	v := &PositionView{
		Title:        doc.Meta.Title,
		Docstep:      doc.Docstep,
		Time:         doc.Time,
		Seed:         doc.Seed,
		DocumentHash: hash,
		Slots:        make(map[string]string),
	}
	var slotErr error
	doc.Walk(func(n *ir.Node) bool {
		if !n.Kind.IsSlot() {
			return true
		}
		inner, err := markup.SlotInner(n)
		if err != nil && slotErr == nil {
			slotErr = err
		}
		v.Slots[n.ID] = inner
		return true
	})
	if slotErr != nil {
		return nil, slotErr
	}
	if withIR {
		canonical, err := doc.Canonical()
		if err != nil {
			return nil, err
		}
		v.Document = canonical
	}
	return v, nil
}

// writePositionText prints the position and one line per slot in
// document order.
func writePositionText(w io.Writer, doc *ir.Document, v *PositionView) {
	fmt.Fprintf(w, "%s: docstep %d, time %g, seed %d\n", v.Title, v.Docstep, v.Time, v.Seed)
	doc.Walk(func(n *ir.Node) bool {
		if n.Kind.IsSlot() {
			fmt.Fprintf(w, "  %s = %q\n", n.ID, v.Slots[n.ID])
		}
		return true
	})
}

// outputPosition reports a rendered document: status text, or the full
// render IR wrapped in a CLIResponse for json.
func outputPosition(f *OutputFormatter, doc *ir.Document, sessionID string) error {
	v, err := newPositionView(doc, f.Format == "json")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render document", err)
	}
	if f.Format == "json" {
		// Not indented: the embedded IR stays in canonical form.
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: v, SessionID: sessionID})
	}
	writePositionText(f.Writer, doc, v)
	if sessionID != "" {
		fmt.Fprintf(f.Writer, "journaled as session %s\n", sessionID)
	}
	return nil
}
