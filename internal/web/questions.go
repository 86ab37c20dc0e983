package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/conorfennell/studybuddy/internal/srs"
	"github.com/conorfennell/studybuddy/internal/study"
)

type questionRequest struct {
	Subject   string `json:"subject" validate:"required"`
	TopicName string `json:"topicName" validate:"required,max=100"`
	Text      string `json:"text" validate:"required,max=4000"`
	Important bool   `json:"important"`
	Version   int64  `json:"version" validate:"gte=0"`
}

func (req questionRequest) input() study.QuestionInput {
	return study.QuestionInput{
		SubjectID: req.Subject,
		TopicName: req.TopicName,
		Text:      req.Text,
		Important: req.Important,
	}
}

type rateRequest struct {
	Rating  string `json:"rating" validate:"required"`
	Version int64  `json:"version" validate:"gte=0"`
}

type practiceRequest struct {
	Subject        string   `json:"subject"`
	Topics         []string `json:"topics" validate:"dive,required"`
	ResetDue       bool     `json:"resetDue"`
	ImportantFirst bool     `json:"importantFirst"`
	Randomize      bool     `json:"randomize"`
}

// filterFromQuery reads ?subject=<id>&topics=a,b.
func filterFromQuery(r *http.Request) srs.Filter {
	q := r.URL.Query()
	f := srs.Filter{SubjectID: q.Get("subject")}
	for _, t := range strings.Split(q.Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.Topics = append(f.Topics, t)
		}
	}
	return f
}

func orderFromQuery(r *http.Request) srs.Order {
	return srs.Order{
		ImportantFirst: boolParam(r, "importantFirst"),
		Randomize:      boolParam(r, "randomize"),
	}
}

func boolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

func (s *Server) handleListQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := s.svc.ListQuestions(r.Context(), study.QuestionFilter{
			Filter:        filterFromQuery(r),
			ImportantOnly: boolParam(r, "important"),
			DueOnly:       boolParam(r, "due"),
		})
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(questions))
	}
}

// handleDueQuestions returns the review queue: due questions grouped
// again, hard, medium, easy with unrated ones in the again group.
func (s *Server) handleDueQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := s.svc.Due(r.Context(), filterFromQuery(r), orderFromQuery(r))
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(questions))
	}
}

func (s *Server) handleImportantQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := s.svc.Important(r.Context(), filterFromQuery(r))
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(questions))
	}
}

func (s *Server) handlePracticeQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := s.svc.PracticeBacklog(r.Context(), filterFromQuery(r), orderFromQuery(r))
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(questions))
	}
}

func (s *Server) handleStartPractice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req practiceRequest
		if !s.decode(w, r, &req) {
			return
		}
		questions, err := s.svc.StartPractice(r.Context(),
			srs.Filter{SubjectID: req.Subject, Topics: req.Topics},
			srs.Order{ImportantFirst: req.ImportantFirst, Randomize: req.Randomize},
			req.ResetDue,
		)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(questions))
	}
}

func (s *Server) handleGetQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.svc.GetQuestion(r.Context(), r.PathValue("id"))
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

func (s *Server) handleCreateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if !s.decode(w, r, &req) {
			return
		}
		q, err := s.svc.CreateQuestion(r.Context(), req.input())
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, q)
	}
}

func (s *Server) handleUpdateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if !s.decode(w, r, &req) {
			return
		}
		q, err := s.svc.UpdateQuestion(r.Context(), r.PathValue("id"), req.input(), req.Version)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

func (s *Server) handleDeleteQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
			respondWithErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleRateQuestion applies a rating. A version in the body makes the
// write conditional; a stale one yields 409.
func (s *Server) handleRateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rateRequest
		if !s.decode(w, r, &req) {
			return
		}
		q, err := s.svc.Rate(r.Context(), r.PathValue("id"), req.Rating, req.Version)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

func (s *Server) handleToggleImportant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.svc.ToggleImportant(r.Context(), r.PathValue("id"))
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.svc.Stats(r.Context())
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, summary)
	}
}
