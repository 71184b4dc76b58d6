package server

import (
	"net/http"
	"strconv"

	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/pipeline"
	"github.com/matzehuels/limn/pkg/scene"
)

var contentTypes = map[string]string{
	pipeline.FormatJSON:     "application/json",
	pipeline.FormatSnapshot: "application/json",
	pipeline.FormatDOT:      "text/vnd.graphviz",
	pipeline.FormatSVG:      "image/svg+xml",
	pipeline.FormatPNG:      "image/png",
	pipeline.FormatPDF:      "application/pdf",
}

// handleSolve runs the cached pipeline for one scene and returns a single
// artifact. X-Limn-Cache reports whether the artifact came from the cache
// and X-Limn-Conflict is set when required constraints conflict.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatJSON
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "format"))
		return
	}
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	sc, err := scene.Decode(r.Body, sceneFormat(r.Header.Get("Content-Type")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Execute(r.Context(), sc, pipeline.Options{
		Formats:  []string{format},
		Detailed: detailed,
		Logger:   s.logger,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cacheState := "miss"
	if res.CacheInfo.RenderHit {
		cacheState = "hit"
	}
	w.Header().Set("X-Limn-Cache", cacheState)
	if res.Conflict != nil {
		w.Header().Set("X-Limn-Conflict", "true")
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}
