package viewer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/patch"
	"github.com/cbassuarez/flux/internal/render"
)

// EventResponse is the body returned by POST /sessions/{id}/events.
type EventResponse struct {
	Applied bool           `json:"applied"`
	Reason  string         `json:"reason,omitempty"`
	Patches patch.PatchSet `json:"patches"`
}

// DiagnosticsRequest is the body for POST /sessions/{id}/diagnostics.
type DiagnosticsRequest struct {
	Missing []string `json:"missing"`
}

// Handler serves the viewer HTTP surface for m.
type Handler struct {
	m      *Manager
	logger *slog.Logger
}

// NewHandler creates a handler for the sessions in m.
func NewHandler(m *Manager) *Handler {
	return &Handler{m: m, logger: m.logger}
}

// Router returns a chi router with every viewer route registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the viewer routes on r.
func (h *Handler) RegisterHTTP(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/sessions", h.handleList)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.handlePage)
		r.Delete("/", h.handleClose)
		r.Get("/status", h.handleStatus)
		r.Get("/patches", h.handlePatches)
		r.Post("/step", h.handleStep)
		r.Post("/tick", h.handleTick)
		r.Post("/events", h.handleEvent)
		r.Get("/diagnostics", h.handleDiagnostics)
		r.Post("/diagnostics", h.handleReportMissing)
		r.Get("/files/*", h.handleFiles)
	})
}

// session resolves the {id} URL parameter, writing a 404 when unknown.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.m.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

// GET /
// With exactly one session open the index redirects to its page.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	list := h.m.List()
	if len(list) == 1 {
		http.Redirect(w, r, "/sessions/"+list[0].ID, http.StatusFound)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// GET /sessions
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.m.List())
}

// GET /sessions/{id}
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	page, err := s.Page()
	if err != nil {
		h.logger.Error("Failed to render page", "session", s.ID, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// DELETE /sessions/{id}
func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.m.Close(chi.URLParam(r, "id")); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /sessions/{id}/status
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Status())
}

// GET /sessions/{id}/patches
func (h *Handler) handlePatches(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ps, err := s.Patches(r.Context())
	h.writePatches(w, s, ps, err)
}

// POST /sessions/{id}/step?n=1
func (h *Handler) handleStep(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	ps, err := s.Advance(r.Context(), n)
	h.writePatches(w, s, ps, err)
}

// MaxTickSeconds is the largest duration one tick request may carry.
const MaxTickSeconds = 3600

// POST /sessions/{id}/tick?seconds=0.5
func (h *Handler) handleTick(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	seconds, err := strconv.ParseFloat(r.URL.Query().Get("seconds"), 64)
	if err != nil {
		http.Error(w, "seconds must be a number", http.StatusBadRequest)
		return
	}
	if seconds > MaxTickSeconds {
		http.Error(w, "seconds must not exceed "+strconv.Itoa(MaxTickSeconds), http.StatusBadRequest)
		return
	}
	ps, err := s.Tick(r.Context(), seconds)
	if errors.Is(err, render.ErrNegativeTime) || errors.Is(err, render.ErrTickTooLarge) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writePatches(w, s, ps, err)
}

// POST /sessions/{id}/events
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var ev ast.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if ev.Type == "" {
		http.Error(w, "type required", http.StatusBadRequest)
		return
	}

	outcome := s.ApplyEvent(r.Context(), ev)
	ps, err := s.Patches(r.Context())
	if err != nil {
		h.logger.Error("Failed to build patches", "session", s.ID, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, EventResponse{Applied: outcome.Applied, Reason: outcome.Reason, Patches: ps})
}

// GET /sessions/{id}/diagnostics
func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Diagnostics())
}

// POST /sessions/{id}/diagnostics
func (h *Handler) handleReportMissing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DiagnosticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.ReportMissing(req.Missing)
	w.WriteHeader(http.StatusNoContent)
}

// GET /sessions/{id}/files/*
func (h *Handler) handleFiles(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !s.ServesAsset(chi.URLParam(r, "*")) {
		http.NotFound(w, r)
		return
	}
	prefix := "/sessions/" + s.ID + "/files"
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(filepath.Dir(s.Path))))
	fs.ServeHTTP(w, r)
}

func (h *Handler) writePatches(w http.ResponseWriter, s *Session, ps patch.PatchSet, err error) {
	if err != nil {
		h.logger.Error("Failed to build patches", "session", s.ID, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "status", status, "error", err)
	}
}
