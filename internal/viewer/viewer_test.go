package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/loader"
	"github.com/cbassuarez/flux/internal/patch"
	"github.com/cbassuarez/flux/internal/store"
	"github.com/cbassuarez/flux/internal/testutil"
)

// newTestServer opens the showcase document and serves it.
func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *Session) {
	t.Helper()
	path := testutil.WriteDocument(t, "showcase.json", testutil.ShowcaseJSON)
	m := NewManager(opts...)
	s, err := m.Open(context.Background(), path)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(m).Router())
	t.Cleanup(srv.Close)
	return srv, s
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestManagerOpenReusesSessionForPath(t *testing.T) {
	path := testutil.WriteDocument(t, "showcase.json", testutil.ShowcaseJSON)
	m := NewManager()

	a, err := m.Open(context.Background(), path)
	require.NoError(t, err)
	b, err := m.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, a, b)

	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Len(t, m.List(), 1)

	require.NoError(t, m.Close(a.ID))
	_, err = m.Get(a.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(a.ID), ErrSessionNotFound)
}

func TestManagerOpenMissingFile(t *testing.T) {
	m := NewManager()
	_, err := m.Open(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, loader.IsLoadError(err, loader.ErrCodeReadFailed))
	assert.Empty(t, m.List())
}

func TestManagerOpenInitError(t *testing.T) {
	path := testutil.WriteDocument(t, "broken.json", testutil.MissingGridJSON)
	_, err := NewManager().Open(context.Background(), path)
	require.Error(t, err)
}

func TestHandlerPage(t *testing.T) {
	srv, s := newTestServer(t)

	resp := get(t, srv.URL+"/sessions/"+s.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	assert.Contains(t, page, `data-flux-session="`+s.ID+`"`)
	assert.Contains(t, page, "/sessions/"+s.ID+"/files/media/plants/moss.png")
	assert.Contains(t, page, "applyPatches")
	assert.Contains(t, page, "function shrinkToFit(slot, inner)")
	assert.Contains(t, page, "function scaleDownToFit(slot, inner)")
	assert.Contains(t, page, "fitAll(slot);")
	assert.Contains(t, page, "fitAll(root);")

	// The page primed the tracker: nothing has changed since.
	ps := decode[patch.PatchSet](t, get(t, srv.URL+"/sessions/"+s.ID+"/patches"))
	assert.True(t, ps.Empty())
}

func TestHandlerIndexRedirectsToOnlySession(t *testing.T) {
	srv, s := newTestServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/sessions/"+s.ID, resp.Header.Get("Location"))
}

func TestHandlerStep(t *testing.T) {
	srv, s := newTestServer(t)
	get(t, srv.URL+"/sessions/"+s.ID)

	resp := post(t, srv.URL+"/sessions/"+s.ID+"/step?n=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ps := decode[patch.PatchSet](t, resp)
	assert.Equal(t, int64(1), ps.Docstep)
	assert.Equal(t, []string{"step", "word"}, ps.IDs())
	assert.Equal(t, "1", ps.SlotPatches["step"])
	assert.Equal(t, "two", ps.SlotPatches["word"])

	st := decode[Status](t, get(t, srv.URL+"/sessions/"+s.ID+"/status"))
	assert.Equal(t, int64(1), st.Docstep)
	assert.Equal(t, "Showcase", st.Title)
	require.NotNil(t, st.IntervalMS)
	assert.Equal(t, 1000.0, *st.IntervalMS)

	resp = post(t, srv.URL+"/sessions/"+s.ID+"/step?n=-2", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerTick(t *testing.T) {
	srv, s := newTestServer(t)
	get(t, srv.URL+"/sessions/"+s.ID)

	ps := decode[patch.PatchSet](t, post(t, srv.URL+"/sessions/"+s.ID+"/tick?seconds=1", ""))
	assert.Equal(t, int64(1), ps.Docstep)
	assert.Equal(t, []string{"clock", "step", "word"}, ps.IDs())
	assert.Equal(t, "1.0", ps.SlotPatches["clock"])

	for _, q := range []string{"seconds=-1", "seconds=NaN", "seconds=abc", "", "seconds=1e9", "seconds=3601"} {
		resp := post(t, srv.URL+"/sessions/"+s.ID+"/tick?"+q, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestHandlerEvents(t *testing.T) {
	srv, s := newTestServer(t)

	resp := post(t, srv.URL+"/sessions/"+s.ID+"/events", `{"type":"nudge","payload":{"level":9}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[EventResponse](t, resp)
	assert.True(t, out.Applied)
	assert.Equal(t, ast.Number(9), s.renderer.Snapshot().Param("level"))

	out = decode[EventResponse](t, post(t, srv.URL+"/sessions/"+s.ID+"/events", `{"type":"unheard"}`))
	assert.False(t, out.Applied)
	assert.NotEmpty(t, out.Reason)

	resp = post(t, srv.URL+"/sessions/"+s.ID+"/events", `{"payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = post(t, srv.URL+"/sessions/"+s.ID+"/events", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerDiagnostics(t *testing.T) {
	srv, s := newTestServer(t)
	get(t, srv.URL+"/sessions/"+s.ID)

	resp := post(t, srv.URL+"/sessions/"+s.ID+"/diagnostics", `{"missing":["clock"]}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	diags := decode[[]string](t, get(t, srv.URL+"/sessions/"+s.ID+"/diagnostics"))
	assert.Equal(t, []string{`missing slot "clock"`}, diags)

	// A report makes the next patch set resend every slot.
	ps := decode[patch.PatchSet](t, get(t, srv.URL+"/sessions/"+s.ID+"/patches"))
	assert.Contains(t, ps.IDs(), "clock")
}

func TestHandlerFiles(t *testing.T) {
	srv, s := newTestServer(t)
	dir := filepath.Join(filepath.Dir(s.Path), "media", "plants")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "moss.png"), []byte("moss"), 0o644))

	resp := get(t, srv.URL+"/sessions/"+s.ID+"/files/media/plants/moss.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "moss", string(body))

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(s.Path), "notes.txt"), []byte("private"), 0o644))
	for _, name := range []string{"showcase.json", "notes.txt", "media/", "media/plants/../../showcase.json"} {
		resp := get(t, srv.URL+"/sessions/"+s.ID+"/files/"+name)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, name)
	}
}

func TestSessionServesAsset(t *testing.T) {
	_, s := newTestServer(t)

	assert.True(t, s.ServesAsset("media/plants/moss.png"))
	assert.True(t, s.ServesAsset("/media/plants/sub/vine.png"))
	assert.False(t, s.ServesAsset("media/plantsx/moss.png"))
	assert.False(t, s.ServesAsset("media/plants"))
	assert.False(t, s.ServesAsset("showcase.json"))
	assert.False(t, s.ServesAsset("media/plants/../../showcase.json"))
	assert.False(t, s.ServesAsset(""))
}

func TestHandlerLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := NewHandler(NewManager(WithLogger(logger)))

	rec := httptest.NewRecorder()
	h.writeJSON(rec, http.StatusOK, math.NaN())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "Failed to encode response")
	assert.Contains(t, logs.String(), "NaN")
}

func TestHandlerUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"", "/status", "/patches", "/diagnostics"} {
		resp := get(t, srv.URL+"/sessions/nope"+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestHandlerClose(t *testing.T) {
	srv, s := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/"+s.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	list := decode[[]Status](t, get(t, srv.URL+"/sessions"))
	assert.Empty(t, list)
}

func TestSessionJournalReplays(t *testing.T) {
	journal, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	srv, s := newTestServer(t, WithStore(journal), WithSeed(5))
	require.NotEmpty(t, s.Status().Journal)

	post(t, srv.URL+"/sessions/"+s.ID+"/step?n=1", "")
	post(t, srv.URL+"/sessions/"+s.ID+"/events", `{"type":"nudge","payload":{"level":4}}`)
	post(t, srv.URL+"/sessions/"+s.ID+"/tick?seconds=1", "")

	ctx := context.Background()
	snaps, err := journal.ReadSnapshots(ctx, s.Status().Journal)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	events, err := journal.ReadEvents(ctx, s.Status().Journal)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].Docstep)

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	doc, err := loader.Parse(s.Path, data)
	require.NoError(t, err)
	res, err := journal.Replay(ctx, s.Status().Journal, doc, ir.SourceHash(data))
	require.NoError(t, err)
	assert.True(t, res.OK(), "%v", res.Divergences)
	assert.False(t, res.DocChanged)
}
