package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/limn/pkg/cache"
	apperr "github.com/matzehuels/limn/pkg/errors"
	limnio "github.com/matzehuels/limn/pkg/io"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/scene"
	"github.com/matzehuels/limn/pkg/session"
	"github.com/matzehuels/limn/pkg/store"
	"github.com/matzehuels/limn/pkg/tree"
)

type sessionResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Scene     string                `json:"scene"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
	Conflict  string                `json:"conflict,omitempty"`
	Widgets   []limnio.WidgetResult `json:"widgets,omitempty"`
}

type changesResponse struct {
	Changed []changedWidget `json:"changed"`
	// Conflict is set when the update hit a required conflict. The
	// changes that did apply are still listed.
	Conflict string `json:"conflict,omitempty"`
}

type changedWidget struct {
	Name   string    `json:"name"`
	Bounds tree.Rect `json:"bounds"`
}

type editsRequest struct {
	Edits []scene.Edit `json:"edits"`
}

func sceneFormat(contentType string) scene.Format {
	switch ct := strings.ToLower(contentType); {
	case strings.Contains(ct, "toml"):
		return scene.FormatTOML
	case strings.Contains(ct, "yaml"):
		return scene.FormatYAML
	}
	return scene.FormatJSON
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	sc, err := scene.Decode(r.Body, sceneFormat(r.Header.Get("Content-Type")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := sc.Build(tree.WithLogger(s.logger))
	if err != nil && !apperr.Is(err, apperr.ErrCodeConstraintConflict) {
		s.writeError(w, r, err)
		return
	}

	sess := s.sessions.Create(sc.Name, cache.Hash(sc.Canonical()), t)
	resp := describe(sess, limnio.NewResult(t))
	if err != nil {
		resp.Conflict = err.Error()
	}
	s.logger.Info("session created", "id", sess.ID, "scene", sc.Name, "widgets", t.Len())
	writeJSON(w, http.StatusCreated, resp)
}

func describe(sess *session.Session, res *limnio.Result) sessionResponse {
	resp := sessionResponse{
		ID:        sess.ID,
		Name:      sess.Name,
		Scene:     sess.SceneHash,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt(),
	}
	if res != nil {
		resp.Widgets = res.Widgets
	}
	return resp
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	list := s.sessions.List()
	out := make([]sessionResponse, 0, len(list))
	for _, sess := range list {
		out = append(out, describe(sess, nil))
	}
	writeJSON(w, http.StatusOK, out)
}

// withSession resolves {id} and runs fn with exclusive access to its tree.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(sess *session.Session, t *tree.Tree) error) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.Do(func(t *tree.Tree) error { return fn(sess, t) }); err != nil {
		s.writeError(w, r, err)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var res *limnio.Result
	_ = sess.Do(func(t *tree.Tree) error {
		res = limnio.NewResult(t)
		return nil
	})
	writeJSON(w, http.StatusOK, describe(sess, res))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		s.writeError(w, r, session.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEdits(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var req editsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "decode edits"))
		return
	}
	s.withSession(w, r, func(_ *session.Session, t *tree.Tree) error {
		dirty, err := scene.Apply(t, req.Edits)
		if apperr.GetCode(err) != "" {
			return err
		}
		writeChanges(w, dirty, err)
		return nil
	})
}

func (s *Server) handleRemoveWidget(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ *session.Session, t *tree.Tree) error {
		wd, err := findWidget(t, chi.URLParam(r, "name"))
		if err != nil {
			return err
		}
		if wd.ID() == t.Root().ID() {
			return apperr.New(apperr.ErrCodeInvalidInput, "cannot remove the root widget")
		}
		if err := t.Remove(wd.ID()); err != nil {
			return err
		}
		dirty, err := t.Update()
		writeChanges(w, dirty, err)
		return nil
	})
}

func (s *Server) handleHide(hide bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withSession(w, r, func(_ *session.Session, t *tree.Tree) error {
			wd, err := findWidget(t, chi.URLParam(r, "name"))
			if err != nil {
				return err
			}
			if hide {
				err = t.Hide(wd.ID())
			} else {
				err = t.Unhide(wd.ID())
			}
			if err != nil {
				return err
			}
			dirty, err := t.Update()
			writeChanges(w, dirty, err)
			return nil
		})
	}
}

func findWidget(t *tree.Tree, name string) (*tree.Widget, error) {
	wd, ok := t.Find(name)
	if !ok {
		return nil, apperr.New(apperr.ErrCodeNotFound, "unknown widget %q", name)
	}
	return wd, nil
}

func writeChanges(w http.ResponseWriter, dirty []*tree.Widget, err error) {
	resp := changesResponse{Changed: make([]changedWidget, 0, len(dirty))}
	for _, wd := range dirty {
		resp.Changed = append(resp.Changed, changedWidget{Name: wd.Name(), Bounds: wd.Bounds()})
	}
	status := http.StatusOK
	if err != nil {
		resp.Conflict = err.Error()
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func (s *Server) snapshot(r *http.Request) (*session.Session, *layout.Snapshot, error) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, nil, err
	}
	var snap *layout.Snapshot
	err = sess.Do(func(t *tree.Tree) error {
		var err error
		snap, err = t.Solver().Snapshot()
		return err
	})
	return sess, snap, err
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	_, snap, err := s.snapshot(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, apperr.New(apperr.ErrCodeUnsupported, "no snapshot store configured"))
		return
	}
	sess, snap, err := s.snapshot(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec := store.NewRecord(sess.Name, sess.SceneHash, snap)
	if err := s.store.Save(r.Context(), rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("snapshot saved", "session", sess.ID, "snapshot", rec.ID)
	rec.Snapshot = nil
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, apperr.New(apperr.ErrCodeUnsupported, "no snapshot store configured"))
		return
	}
	rec, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
