package viewer

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/kernel"
	"github.com/cbassuarez/flux/internal/markup"
	"github.com/cbassuarez/flux/internal/patch"
	"github.com/cbassuarez/flux/internal/render"
	"github.com/cbassuarez/flux/internal/store"
)

//go:embed viewer.js
var viewerScript string

// maxDiagnostics bounds the missing-slot reports kept per session.
const maxDiagnostics = 100

// Status is the session state reported to viewers.
type Status struct {
	ID         string   `json:"id"`
	Path       string   `json:"path"`
	Title      string   `json:"title"`
	Docstep    int64    `json:"docstep"`
	Time       float64  `json:"time"`
	Seed       int64    `json:"seed"`
	IntervalMS *float64 `json:"intervalMs"`
	Journal    string   `json:"journal,omitempty"`
}

// Session is one live document: a renderer, the hashes last sent to its
// viewer and an optional journal. Methods serialize on a per-session lock.
type Session struct {
	ID   string
	Path string

	mu          sync.Mutex
	renderer    *render.Renderer
	tracker     *patch.Tracker
	journal     *store.Store
	journalID   string
	lastDocstep int64
	diagnostics []string
	assetRoots  []string // bank roots relative to the document directory, slash-separated
	logger      *slog.Logger
}

func newSession(ctx context.Context, id, path string, doc *ast.Document, docHash string, m *Manager) (*Session, error) {
	r, err := render.NewRenderer(doc,
		render.WithSeed(m.seed),
		render.WithAssetCwd("/sessions/"+id+"/files"),
		render.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:       id,
		Path:     path,
		renderer: r,
		tracker:  patch.NewTracker(),
		logger:   m.logger.With(slog.String("session", id)),
	}
	for _, b := range doc.Assets.Banks {
		s.assetRoots = append(s.assetRoots, cleanAssetPath(b.Root))
	}

	if m.journal != nil {
		sess, err := m.journal.CreateSession(ctx, path, docHash, m.seed)
		if err != nil {
			return nil, fmt.Errorf("journal session: %w", err)
		}
		s.journal, s.journalID = m.journal, sess.ID
		if err := s.journal.WriteSnapshot(ctx, s.journalID, r.Snapshot()); err != nil {
			return nil, fmt.Errorf("journal session: %w", err)
		}
	}
	return s, nil
}

// ServesAsset reports whether name, relative to the document directory,
// lies under one of the document's asset bank roots. The document file
// itself is never served.
func (s *Session) ServesAsset(name string) bool {
	name = cleanAssetPath(name)
	if name == "" || filepath.Join(filepath.Dir(s.Path), filepath.FromSlash(name)) == filepath.Clean(s.Path) {
		return false
	}
	for _, root := range s.assetRoots {
		if root == "" || strings.HasPrefix(name, root+"/") {
			return true
		}
	}
	return false
}

// cleanAssetPath turns a relative path into slash form without leading
// or parent segments. The document directory itself is "".
func cleanAssetPath(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}

// Status reports the current docstep, time and interval hint.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

func (s *Session) status() Status {
	st := s.renderer.Status()
	hint := s.renderer.IntervalHint()
	return Status{
		ID:         s.ID,
		Path:       s.Path,
		Title:      s.renderer.Document().Meta.Title,
		Docstep:    st.Docstep,
		Time:       st.Time,
		Seed:       st.Seed,
		IntervalMS: hint.MS,
		Journal:    s.journalID,
	}
}

// Page renders the full HTML page and marks every slot as sent.
func (s *Session) Page() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.renderer.Render()
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Prime(doc); err != nil {
		return nil, err
	}
	return markup.Page(doc,
		markup.WithScript(viewerScript),
		markup.WithRootAttr("data-flux-session", s.ID))
}

// Advance runs n docsteps and returns the patches for changed slots.
func (s *Session) Advance(ctx context.Context, n int) (patch.PatchSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.renderer.Step(n); err != nil {
		return patch.PatchSet{}, err
	}
	return s.patches(ctx)
}

// Tick advances continuous time and returns the patches for changed
// slots. Documents with a timer interval also advance docsteps.
func (s *Session) Tick(ctx context.Context, seconds float64) (patch.PatchSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.renderer.Tick(seconds); err != nil {
		return patch.PatchSet{}, err
	}
	return s.patches(ctx)
}

// Patches returns the slots that changed since the last page or patch.
func (s *Session) Patches(ctx context.Context) (patch.PatchSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches(ctx)
}

func (s *Session) patches(ctx context.Context) (patch.PatchSet, error) {
	doc, err := s.renderer.Render()
	if err != nil {
		return patch.PatchSet{}, err
	}
	if doc.Docstep != s.lastDocstep {
		s.lastDocstep = doc.Docstep
		s.journalSnapshot(ctx)
	}
	return s.tracker.Next(doc)
}

// ApplyEvent forwards an event to the kernel and journals it.
func (s *Session) ApplyEvent(ctx context.Context, ev ast.Event) kernel.EventOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	docstep := s.renderer.Status().Docstep
	outcome := s.renderer.ApplyEvent(ev)
	if s.journal != nil {
		if _, err := s.journal.WriteEvent(ctx, s.journalID, docstep, ev, outcome); err != nil {
			s.logger.Error("journal event failed", "error", err)
		}
	}
	return outcome
}

// ReportMissing records slot ids a viewer could not find in its page.
// Reports are diagnostics only; the session keeps running.
func (s *Session) ReportMissing(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Warn("viewer missing slots", slog.Any("ids", ids))
	for _, id := range ids {
		if len(s.diagnostics) == maxDiagnostics {
			s.diagnostics = s.diagnostics[1:]
		}
		s.diagnostics = append(s.diagnostics, fmt.Sprintf("missing slot %q", id))
	}
	// The viewer lost track of these slots; resend them next time.
	s.tracker.Reset()
}

// Diagnostics returns the recorded viewer reports, oldest first.
func (s *Session) Diagnostics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.diagnostics...)
}

// journalSnapshot writes the current snapshot. Journal failures are
// logged; a viewer session never fails because its journal did.
func (s *Session) journalSnapshot(ctx context.Context) {
	if s.journal == nil {
		return
	}
	if err := s.journal.WriteSnapshot(ctx, s.journalID, s.renderer.Snapshot()); err != nil {
		s.logger.Error("journal snapshot failed", "error", err)
	}
}
