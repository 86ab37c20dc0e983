package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/studybuddy/internal/domain"
	"github.com/conorfennell/studybuddy/internal/storage"
	"github.com/conorfennell/studybuddy/internal/study"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Message: msg})
}

// respondWithErr maps service errors to a status code. Unknown errors are
// logged and hidden behind a generic message.
func respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		respondWithError(w, http.StatusBadRequest, validationMessage(verrs))
	case errors.Is(err, storage.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrDuplicate):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidRating), errors.Is(err, study.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		respondWithErr(w, r, err)
		return false
	}
	return true
}
