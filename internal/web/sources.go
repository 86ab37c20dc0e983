package web

import (
	"net/http"

	banksync "github.com/conorfennell/studybuddy/internal/sync"
)

type sourceRequest struct {
	Path string `json:"path" validate:"required"`
}

type syncResponse struct {
	Reports []banksync.Report `json:"reports"`
	Error   string            `json:"error,omitempty"`
}

func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.svc.ListSources(r.Context())
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(sources))
	}
}

func (s *Server) handleAddSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sourceRequest
		if !s.decode(w, r, &req) {
			return
		}
		source, err := s.svc.AddSource(r.Context(), req.Path)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, source)
	}
}

// handleDeleteSource removes the source and the questions imported from it.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.RemoveSource(r.Context(), r.PathValue("id")); err != nil {
			respondWithErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync runs a sync in the foreground so the caller sees the result.
// Per-source failures are reported alongside the successful reports.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := s.svc.Sync(r.Context())
		resp := syncResponse{Reports: nonNil(reports)}
		if err != nil {
			resp.Error = err.Error()
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
