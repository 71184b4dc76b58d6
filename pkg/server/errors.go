package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperr "github.com/matzehuels/limn/pkg/errors"
	"github.com/matzehuels/limn/pkg/layout"
	"github.com/matzehuels/limn/pkg/session"
	"github.com/matzehuels/limn/pkg/store"
	"github.com/matzehuels/limn/pkg/tree"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// classify maps an error to a status code and an error code.
func classify(err error) (int, apperr.Code) {
	switch {
	case errors.Is(err, session.ErrExpired):
		return http.StatusGone, apperr.ErrCodeSessionNotFound
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, apperr.ErrCodeSessionNotFound
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, apperr.ErrCodeSnapshotNotFound
	case errors.Is(err, tree.ErrUnknownWidget):
		return http.StatusNotFound, apperr.ErrCodeNotFound
	case errors.Is(err, layout.ErrConstraintConflict):
		return http.StatusConflict, apperr.ErrCodeConstraintConflict
	}

	code := apperr.GetCode(err)
	switch code {
	case apperr.ErrCodeInvalidInput, apperr.ErrCodeInvalidScene, apperr.ErrCodeInvalidConstraint,
		apperr.ErrCodeInvalidStrength, apperr.ErrCodeInvalidFormat, apperr.ErrCodeInvalidPath:
		return http.StatusBadRequest, code
	case apperr.ErrCodeNotFound, apperr.ErrCodeSessionNotFound, apperr.ErrCodeSnapshotNotFound:
		return http.StatusNotFound, code
	case apperr.ErrCodeConstraintConflict:
		return http.StatusConflict, code
	case apperr.ErrCodeUnsupported:
		return http.StatusNotImplemented, code
	}
	return http.StatusInternalServerError, apperr.ErrCodeInternal
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := apperr.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
