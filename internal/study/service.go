// Package study is the application layer: it loads questions from storage,
// runs them through the scheduler and keeps the stats aggregate current.
package study

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studybuddy/internal/domain"
	"github.com/conorfennell/studybuddy/internal/gitsource"
	"github.com/conorfennell/studybuddy/internal/srs"
	"github.com/conorfennell/studybuddy/internal/stats"
	"github.com/conorfennell/studybuddy/internal/storage"
	banksync "github.com/conorfennell/studybuddy/internal/sync"
)

// ErrInvalidInput marks a request the service refuses before touching storage.
var ErrInvalidInput = errors.New("study: invalid input")

// Service wires storage, scheduling and stats together.
type Service struct {
	db       *storage.DB
	now      func() time.Time
	loc      *time.Location
	reposDir string

	rngMu sync.Mutex // *rand.Rand is not safe for concurrent use
	rng   *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone that study days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithRand sets the random source used when shuffling queues.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// WithReposDir sets where git sources are checked out.
func WithReposDir(dir string) Option {
	return func(s *Service) { s.reposDir = dir }
}

// New returns a Service over db.
func New(db *storage.DB, opts ...Option) *Service {
	s := &Service{
		db:       db,
		now:      time.Now,
		loc:      time.Local,
		reposDir: "repos",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time in the study time zone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// SubjectInput holds the editable fields of a subject.
type SubjectInput struct {
	Name   string
	Icon   string
	Color  string
	Topics []string
}

func (in SubjectInput) subject(id string, createdAt time.Time) (domain.Subject, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Subject{}, fmt.Errorf("subject name is required: %w", ErrInvalidInput)
	}
	s := domain.Subject{
		ID:        id,
		Name:      name,
		Icon:      in.Icon,
		Color:     in.Color,
		Topics:    []domain.Topic{},
		CreatedAt: createdAt,
	}
	for _, t := range in.Topics {
		t = strings.TrimSpace(t)
		if t == "" {
			return domain.Subject{}, fmt.Errorf("topic name is required: %w", ErrInvalidInput)
		}
		s.Topics = append(s.Topics, domain.Topic{Name: t})
	}
	return s, nil
}

// ListSubjects returns every subject, newest first.
func (s *Service) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return s.db.ListSubjects(ctx)
}

// GetSubject returns one subject.
func (s *Service) GetSubject(ctx context.Context, id string) (*domain.Subject, error) {
	return s.db.GetSubject(ctx, id)
}

// CreateSubject stores a new subject.
func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (*domain.Subject, error) {
	subject, err := in.subject(uuid.NewString(), s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.db.InsertSubject(ctx, subject); err != nil {
		return nil, err
	}
	return &subject, nil
}

// SubjectUpdate is a partial edit of a subject. Nil fields keep their
// stored value.
type SubjectUpdate struct {
	Name   *string
	Icon   *string
	Color  *string
	Topics *[]string
}

// UpdateSubject applies the non-nil fields of up. A replacement topic list
// may not drop a topic that questions still use.
func (s *Service) UpdateSubject(ctx context.Context, id string, up SubjectUpdate) (*domain.Subject, error) {
	current, err := s.db.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	in := SubjectInput{Name: current.Name, Icon: current.Icon, Color: current.Color}
	for _, t := range current.Topics {
		in.Topics = append(in.Topics, t.Name)
	}
	if up.Name != nil {
		in.Name = *up.Name
	}
	if up.Icon != nil {
		in.Icon = *up.Icon
	}
	if up.Color != nil {
		in.Color = *up.Color
	}
	if up.Topics != nil {
		in.Topics = *up.Topics
	}
	subject, err := in.subject(id, current.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := s.db.UpdateSubject(ctx, subject); err != nil {
		return nil, err
	}
	return s.db.GetSubject(ctx, id)
}

// DeleteSubject removes a subject and all of its questions.
func (s *Service) DeleteSubject(ctx context.Context, id string) error {
	return s.db.DeleteSubject(ctx, id)
}

// AddTopic appends a topic to a subject.
func (s *Service) AddTopic(ctx context.Context, subjectID, name string) (*domain.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("topic name is required: %w", ErrInvalidInput)
	}
	return s.db.AddTopic(ctx, subjectID, name)
}

// QuestionFilter narrows ListQuestions.
type QuestionFilter struct {
	srs.Filter
	ImportantOnly bool
	DueOnly       bool
}

// ListQuestions returns matching questions, newest first.
func (s *Service) ListQuestions(ctx context.Context, f QuestionFilter) ([]domain.Question, error) {
	questions, err := s.db.ListQuestions(ctx, storage.QuestionQuery{
		SubjectID:     f.SubjectID,
		Topics:        f.Topics,
		ImportantOnly: f.ImportantOnly,
	})
	if err != nil {
		return nil, err
	}
	if f.DueOnly {
		questions = srs.SelectDue(questions, s.Now(), srs.Filter{})
	}
	return questions, nil
}

// GetQuestion returns one question.
func (s *Service) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	return s.db.GetQuestion(ctx, id)
}

// QuestionInput holds the editable fields of a question.
type QuestionInput struct {
	SubjectID string
	TopicName string
	Text      string
	Important bool
}

// resolve checks that the subject exists and owns the topic.
func (s *Service) resolve(ctx context.Context, in QuestionInput) (*domain.Subject, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("question text is required: %w", ErrInvalidInput)
	}
	subject, err := s.db.GetSubject(ctx, in.SubjectID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("subject %s does not exist: %w", in.SubjectID, ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if !subject.HasTopic(in.TopicName) {
		return nil, fmt.Errorf("topic %q is not in subject %s: %w", in.TopicName, subject.Name, ErrInvalidInput)
	}
	return subject, nil
}

// CreateQuestion stores a new, never-rated question that is due immediately.
func (s *Service) CreateQuestion(ctx context.Context, in QuestionInput) (*domain.Question, error) {
	subject, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	q := domain.NewQuestion(uuid.NewString(), strings.TrimSpace(in.Text), *subject, in.TopicName, s.Now())
	q.Important = in.Important
	if err := s.db.InsertQuestion(ctx, q); err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestion edits text, placement and importance. Scheduling state is
// untouched. A non-zero version must match the stored one.
func (s *Service) UpdateQuestion(ctx context.Context, id string, in QuestionInput, version int64) (*domain.Question, error) {
	q, err := s.db.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if version != 0 && version != q.Version {
		return nil, fmt.Errorf("question %s is at version %d, not %d: %w", id, q.Version, version, storage.ErrConflict)
	}
	subject, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	q.Text = strings.TrimSpace(in.Text)
	q.SubjectID = subject.ID
	q.SubjectName = subject.Name
	q.TopicName = in.TopicName
	q.Important = in.Important
	if err := s.db.UpdateQuestion(ctx, q, s.Now()); err != nil {
		return nil, err
	}
	return q, nil
}

// ToggleImportant flips the important flag.
func (s *Service) ToggleImportant(ctx context.Context, id string) (*domain.Question, error) {
	q, err := s.db.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Important = !q.Important
	if err := s.db.UpdateQuestion(ctx, q, s.Now()); err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteQuestion removes a question permanently.
func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	return s.db.DeleteQuestion(ctx, id)
}

func (s *Service) matching(ctx context.Context, f srs.Filter) ([]domain.Question, error) {
	return s.db.ListQuestions(ctx, storage.QuestionQuery{SubjectID: f.SubjectID, Topics: f.Topics})
}

// group runs srs.GroupAndOrder, drawing on the service's random source
// when o has none.
func (s *Service) group(questions []domain.Question, o srs.Order) []domain.Question {
	if o.Rand == nil && s.rng != nil && o.Randomize {
		s.rngMu.Lock()
		defer s.rngMu.Unlock()
		o.Rand = s.rng
	}
	return srs.GroupAndOrder(questions, o)
}

// Due returns the questions due now, grouped by rating and ordered by o.
func (s *Service) Due(ctx context.Context, f srs.Filter, o srs.Order) ([]domain.Question, error) {
	questions, err := s.matching(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.group(srs.SelectDue(questions, s.Now(), f), o), nil
}

// Important returns every important question regardless of due date.
func (s *Service) Important(ctx context.Context, f srs.Filter) ([]domain.Question, error) {
	questions, err := s.matching(ctx, f)
	if err != nil {
		return nil, err
	}
	return srs.SelectImportant(questions, f), nil
}

// PracticeBacklog returns questions last rated again or hard, regardless of
// due date.
func (s *Service) PracticeBacklog(ctx context.Context, f srs.Filter, o srs.Order) ([]domain.Question, error) {
	questions, err := s.matching(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.group(srs.SelectPracticeBacklog(questions, f), o), nil
}

// StartPractice returns the practice backlog. With resetDue every member is
// made due now, so it also shows up in the due queue.
func (s *Service) StartPractice(ctx context.Context, f srs.Filter, o srs.Order, resetDue bool) ([]domain.Question, error) {
	backlog, err := s.PracticeBacklog(ctx, f, o)
	if err != nil || !resetDue || len(backlog) == 0 {
		return backlog, err
	}

	now := s.Now()
	ids := make([]string, len(backlog))
	for i := range backlog {
		ids[i] = backlog[i].ID
	}
	if err := s.db.MarkDue(ctx, ids, now); err != nil {
		return nil, err
	}
	for i := range backlog {
		backlog[i].NextReviewAt = now
		backlog[i].UpdatedAt = now
		backlog[i].Version++
	}
	return backlog, nil
}

// Rate records a review of question id. The rating is validated before any
// write. A non-zero expectedVersion must match the stored version. The
// question and the stats aggregate are written in one transaction.
func (s *Service) Rate(ctx context.Context, id, rating string, expectedVersion int64) (*domain.Question, error) {
	r, err := domain.ParseRating(rating)
	if err != nil {
		return nil, err
	}
	now := s.Now()

	q, _, err := s.db.ReviewQuestion(ctx, id, now, func(q *domain.Question, st *domain.Stats) error {
		if expectedVersion != 0 && q.Version != expectedVersion {
			return fmt.Errorf("question %s is at version %d, not %d: %w", id, q.Version, expectedVersion, storage.ErrConflict)
		}
		outcome, err := srs.Schedule(*q, r, now)
		if err != nil {
			return err
		}
		outcome.Apply(q)
		stats.Record(st, r, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Stats returns the dashboard summary.
func (s *Service) Stats(ctx context.Context) (stats.Summary, error) {
	st, err := s.db.GetStats(ctx)
	if err != nil {
		return stats.Summary{}, err
	}
	questions, err := s.db.ListQuestions(ctx, storage.QuestionQuery{})
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Summarize(st, questions, s.Now()), nil
}

// ListSources returns every configured question bank.
func (s *Service) ListSources(ctx context.Context) ([]domain.Source, error) {
	return s.db.ListSources(ctx)
}

// AddSource registers a local directory or a git URL as a question bank.
func (s *Service) AddSource(ctx context.Context, path string) (*domain.Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("source path is required: %w", ErrInvalidInput)
	}
	typ := domain.SourceLocal
	if gitsource.IsRemote(path) {
		typ = domain.SourceGit
		if _, err := gitsource.LocalPath(s.reposDir, path); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalidInput)
		}
	} else if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return s.db.InsertSource(ctx, path, typ)
}

// RemoveSource deletes a source and the questions imported from it.
func (s *Service) RemoveSource(ctx context.Context, id string) error {
	return s.db.DeleteSource(ctx, id)
}

// Sync reconciles every source with the database.
func (s *Service) Sync(ctx context.Context) ([]banksync.Report, error) {
	return banksync.RunSync(ctx, s.db, s.reposDir, s.Now())
}
