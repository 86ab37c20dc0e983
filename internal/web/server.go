package web

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/studybuddy/internal/study"
)

// Options tunes the HTTP layer.
type Options struct {
	// RateLimit is the sustained requests per second allowed per client.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	svc      *study.Service
	router   *http.ServeMux
	validate *validator.Validate
	handler  http.Handler
}

// NewServer creates and configures a new server.
func NewServer(svc *study.Service, opts Options) *Server {
	s := &Server{
		svc:      svc,
		router:   http.NewServeMux(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.routes()

	var h http.Handler = s.router
	if opts.RateLimit > 0 {
		h = newRateLimiter(opts.RateLimit, opts.RateBurst).middleware(h)
	}
	s.handler = logRequests(h)
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth())

	s.router.HandleFunc("GET /api/subjects", s.handleListSubjects())
	s.router.HandleFunc("POST /api/subjects", s.handleCreateSubject())
	s.router.HandleFunc("GET /api/subjects/{id}", s.handleGetSubject())
	s.router.HandleFunc("PUT /api/subjects/{id}", s.handleUpdateSubject())
	s.router.HandleFunc("DELETE /api/subjects/{id}", s.handleDeleteSubject())
	s.router.HandleFunc("POST /api/subjects/{id}/topics", s.handleAddTopic())

	s.router.HandleFunc("GET /api/questions", s.handleListQuestions())
	s.router.HandleFunc("POST /api/questions", s.handleCreateQuestion())
	s.router.HandleFunc("GET /api/questions/due", s.handleDueQuestions())
	s.router.HandleFunc("GET /api/questions/important", s.handleImportantQuestions())
	s.router.HandleFunc("GET /api/questions/practice", s.handlePracticeQuestions())
	s.router.HandleFunc("POST /api/questions/practice", s.handleStartPractice())
	s.router.HandleFunc("GET /api/questions/{id}", s.handleGetQuestion())
	s.router.HandleFunc("PUT /api/questions/{id}", s.handleUpdateQuestion())
	s.router.HandleFunc("DELETE /api/questions/{id}", s.handleDeleteQuestion())
	s.router.HandleFunc("PUT /api/questions/{id}/rate", s.handleRateQuestion())
	s.router.HandleFunc("PUT /api/questions/{id}/important", s.handleToggleImportant())

	s.router.HandleFunc("GET /api/stats", s.handleStats())

	s.router.HandleFunc("GET /api/sources", s.handleListSources())
	s.router.HandleFunc("POST /api/sources", s.handleAddSource())
	s.router.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /api/sync", s.handlePostSync())
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
