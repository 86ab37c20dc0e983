package web

import (
	"net/http"

	"github.com/conorfennell/studybuddy/internal/study"
)

type subjectRequest struct {
	Name   string   `json:"name" validate:"required,max=100"`
	Icon   string   `json:"icon" validate:"max=32"`
	Color  string   `json:"color" validate:"omitempty,hexcolor"`
	Topics []string `json:"topics" validate:"dive,required,max=100"`
}

func (req subjectRequest) input() study.SubjectInput {
	return study.SubjectInput{Name: req.Name, Icon: req.Icon, Color: req.Color, Topics: req.Topics}
}

// subjectPatch decodes PUT bodies. Omitted fields keep their stored value.
type subjectPatch struct {
	Name   *string   `json:"name" validate:"omitempty,max=100"`
	Icon   *string   `json:"icon" validate:"omitempty,max=32"`
	Color  *string   `json:"color" validate:"omitempty,hexcolor"`
	Topics *[]string `json:"topics" validate:"omitempty,dive,required,max=100"`
}

func (req subjectPatch) update() study.SubjectUpdate {
	return study.SubjectUpdate{Name: req.Name, Icon: req.Icon, Color: req.Color, Topics: req.Topics}
}

type topicRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (s *Server) handleListSubjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjects, err := s.svc.ListSubjects(r.Context())
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(subjects))
	}
}

func (s *Server) handleGetSubject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := s.svc.GetSubject(r.Context(), r.PathValue("id"))
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, subject)
	}
}

func (s *Server) handleCreateSubject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subjectRequest
		if !s.decode(w, r, &req) {
			return
		}
		subject, err := s.svc.CreateSubject(r.Context(), req.input())
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, subject)
	}
}

func (s *Server) handleUpdateSubject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subjectPatch
		if !s.decode(w, r, &req) {
			return
		}
		subject, err := s.svc.UpdateSubject(r.Context(), r.PathValue("id"), req.update())
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, subject)
	}
}

// handleDeleteSubject also deletes every question of the subject.
func (s *Server) handleDeleteSubject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.DeleteSubject(r.Context(), r.PathValue("id")); err != nil {
			respondWithErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleAddTopic() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req topicRequest
		if !s.decode(w, r, &req) {
			return
		}
		subject, err := s.svc.AddTopic(r.Context(), r.PathValue("id"), req.Name)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, subject)
	}
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
