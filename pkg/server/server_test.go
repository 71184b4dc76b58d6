package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/matzehuels/limn/pkg/cache"
	"github.com/matzehuels/limn/pkg/observability"
	"github.com/matzehuels/limn/pkg/pipeline"
	"github.com/matzehuels/limn/pkg/server"
	"github.com/matzehuels/limn/pkg/session"
	"github.com/matzehuels/limn/pkg/store"
)

const rowScene = `
name = "row"

[[widgets]]
name = "window"
layout = "horizontal"
spacing = 10
constraints = [
  { kind = "top_left", args = [0, 0] },
  { kind = "size", args = [400, 100] },
]

[[widgets]]
name = "a"
parent = "window"
constraints = [{ kind = "size", args = [100, 80] }]

[[widgets]]
name = "b"
parent = "window"
constraints = [{ kind = "size", args = [100, 80] }]

[[widgets]]
name = "c"
parent = "window"
constraints = [{ kind = "size", args = [100, 80] }]
`

type widget struct {
	Name   string `json:"name"`
	Bounds struct {
		Left   float64 `json:"left"`
		Top    float64 `json:"top"`
		Right  float64 `json:"right"`
		Bottom float64 `json:"bottom"`
	} `json:"bounds"`
}

type created struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Conflict string   `json:"conflict"`
	Widgets  []widget `json:"widgets"`
}

type changes struct {
	Changed  []widget `json:"changed"`
	Conflict string   `json:"conflict"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type ServerSuite struct {
	suite.Suite
	now      time.Time
	sessions *session.Manager
	srv      *httptest.Server
	reg      *prometheus.Registry
}

func (s *ServerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.sessions = session.NewManager(time.Minute, session.WithClock(func() time.Time { return s.now }))
	st, err := store.NewFileStore(s.T().TempDir())
	s.Require().NoError(err)
	s.reg = prometheus.NewRegistry()
	observability.SetHTTPHooks(observability.NewPrometheusHooks(s.reg))
	s.srv = httptest.NewServer(server.New(s.sessions, server.WithStore(st), server.WithMetrics(s.reg)))
}

func (s *ServerSuite) TearDownTest() {
	s.srv.Close()
	observability.Reset()
}

func (s *ServerSuite) do(method, path, contentType, body string, out any) *http.Response {
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	s.Require().NoError(err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (s *ServerSuite) create() created {
	var c created
	resp := s.do(http.MethodPost, "/sessions", "application/toml", rowScene, &c)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Require().NotEmpty(c.ID)
	return c
}

func find(ws []widget, name string) (widget, bool) {
	for _, w := range ws {
		if w.Name == name {
			return w, true
		}
	}
	return widget{}, false
}

func (s *ServerSuite) TestCreateAndGet() {
	c := s.create()
	s.Equal("row", c.Name)
	s.Empty(c.Conflict)
	b, ok := find(c.Widgets, "b")
	s.Require().True(ok)
	s.InDelta(120, b.Bounds.Left, 1e-6)

	var got created
	resp := s.do(http.MethodGet, "/sessions/"+c.ID, "", "", &got)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(got.Widgets, 4)
	s.Contains(resp.Header.Get("Server"), "limn/")

	var list []created
	s.do(http.MethodGet, "/sessions", "", "", &list)
	s.Len(list, 1)
}

func (s *ServerSuite) TestEditsReturnChangedWidgets() {
	c := s.create()
	var ch changes
	resp := s.do(http.MethodPost, "/sessions/"+c.ID+"/edits", "application/json",
		`{"edits": [{"widget": "window", "side": "width", "value": 100, "strength": "strong"}]}`, &ch)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Empty(ch.Changed, "required size wins over the suggestion")

	var e apiError
	resp = s.do(http.MethodPost, "/sessions/"+c.ID+"/edits", "application/json",
		`{"edits": [{"widget": "nope", "side": "left", "value": 1}]}`, &e)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("NOT_FOUND", e.Error.Code)

	resp = s.do(http.MethodPost, "/sessions/"+c.ID+"/edits", "application/json", `{"edits": [{"widget": "a", "side": "middle"}]}`, &e)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = s.do(http.MethodPost, "/sessions/"+c.ID+"/edits", "application/json", `{"bogus": 1}`, &e)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("INVALID_INPUT", e.Error.Code)
}

func (s *ServerSuite) TestRemoveWidgetBridgesGap() {
	c := s.create()
	var ch changes
	resp := s.do(http.MethodDelete, "/sessions/"+c.ID+"/widgets/b", "", "", &ch)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(ch.Changed, 1)
	s.Equal("c", ch.Changed[0].Name)
	s.InDelta(120, ch.Changed[0].Bounds.Left, 1e-6)

	var e apiError
	resp = s.do(http.MethodDelete, "/sessions/"+c.ID+"/widgets/b", "", "", &e)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp = s.do(http.MethodDelete, "/sessions/"+c.ID+"/widgets/window", "", "", &e)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerSuite) TestHideAndUnhide() {
	c := s.create()
	resp := s.do(http.MethodPost, "/sessions/"+c.ID+"/widgets/a/hide", "", "", &changes{})
	s.Equal(http.StatusOK, resp.StatusCode)
	resp = s.do(http.MethodPost, "/sessions/"+c.ID+"/widgets/a/unhide", "", "", &changes{})
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *ServerSuite) TestSnapshotPersistence() {
	c := s.create()
	var snap struct {
		Entities []struct {
			Name string `json:"name"`
		} `json:"entities"`
	}
	resp := s.do(http.MethodGet, "/sessions/"+c.ID+"/snapshot", "", "", &snap)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(snap.Entities, 4)

	var rec store.Record
	resp = s.do(http.MethodPost, "/sessions/"+c.ID+"/snapshot", "", "", &rec)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Nil(rec.Snapshot)

	var loaded store.Record
	resp = s.do(http.MethodGet, "/snapshots/"+rec.ID, "", "", &loaded)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Require().NotNil(loaded.Snapshot)
	s.Len(loaded.Snapshot.Entities, 4)

	var e apiError
	resp = s.do(http.MethodGet, "/snapshots/00000000-0000-0000-0000-000000000000", "", "", &e)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("SNAPSHOT_NOT_FOUND", e.Error.Code)
}

func (s *ServerSuite) TestSessionLifecycle() {
	c := s.create()
	resp := s.do(http.MethodDelete, "/sessions/"+c.ID, "", "", nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	var e apiError
	resp = s.do(http.MethodGet, "/sessions/"+c.ID, "", "", &e)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("SESSION_NOT_FOUND", e.Error.Code)

	c = s.create()
	s.now = s.now.Add(2 * time.Minute)
	resp = s.do(http.MethodGet, "/sessions/"+c.ID, "", "", &e)
	s.Equal(http.StatusGone, resp.StatusCode)
}

func (s *ServerSuite) TestCreateErrors() {
	var e apiError
	resp := s.do(http.MethodPost, "/sessions", "application/json", `{"widgets": []}`, &e)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("INVALID_SCENE", e.Error.Code)

	var c created
	resp = s.do(http.MethodPost, "/sessions", "application/yaml", `
widgets:
  - name: root
    constraints: [{kind: size, args: [10, 10]}]
  - name: big
    parent: root
    constraints: [{kind: width, args: [20]}, {kind: bound_by}]
`, &c)
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.NotEmpty(c.Conflict)
}

func (s *ServerSuite) TestHealthAndMetrics() {
	var health struct {
		Status string `json:"status"`
		Build  struct {
			Version string `json:"version"`
		} `json:"build"`
	}
	resp := s.do(http.MethodGet, "/healthz", "", "", &health)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", health.Status)
	s.NotEmpty(health.Build.Version)

	resp = s.do(http.MethodGet, "/metrics", "", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	mfs, err := s.reg.Gather()
	s.Require().NoError(err)
	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	s.Contains(names, "limn_http_requests_total")
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func TestWithoutStore(t *testing.T) {
	h := server.New(session.NewManager(time.Minute))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshots/x", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics are opt-in")

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestSolveRoute(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	h := server.New(session.NewManager(time.Minute), server.WithRunner(pipeline.NewRunner(c, nil, nil)))

	solve := func(query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/solve"+query, strings.NewReader(rowScene))
		req.Header.Set("Content-Type", "application/toml")
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := solve("")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Limn-Cache"))
	assert.Contains(t, rec.Body.String(), `"name": "window"`)

	rec = solve("")
	assert.Equal(t, "hit", rec.Header().Get("X-Limn-Cache"))

	rec = solve("?format=dot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/vnd.graphviz", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "digraph constraints")

	rec = solve("?format=gif")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
