package study

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/studybuddy/internal/domain"
	"github.com/conorfennell/studybuddy/internal/srs"
	"github.com/conorfennell/studybuddy/internal/storage"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newService(t *testing.T) (*Service, *clock) {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := &clock{now: t0}
	svc := New(db,
		WithClock(c.Now),
		WithLocation(time.UTC),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithReposDir(t.TempDir()),
	)
	return svc, c
}

func seed(t *testing.T, svc *Service) *domain.Subject {
	t.Helper()
	subject, err := svc.CreateSubject(context.Background(), SubjectInput{
		Name:   "Economics",
		Icon:   "💰",
		Color:  "#00aa00",
		Topics: []string{"Money", "Banking"},
	})
	require.NoError(t, err)
	return subject
}

func TestCreateQuestionValidatesSubjectAndTopic(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	subject := seed(t, svc)

	q, err := svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: " What is fiat money? "})
	require.NoError(t, err)
	assert.Equal(t, "What is fiat money?", q.Text)
	assert.Equal(t, "Economics", q.SubjectName)
	assert.Equal(t, domain.Unrated, q.Rating)
	assert.True(t, q.IsDue(t0))

	_, err = svc.CreateQuestion(ctx, QuestionInput{SubjectID: "missing", TopicName: "Money", Text: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Taxes", Text: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubjects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	subject := seed(t, svc)

	_, err := svc.CreateSubject(ctx, SubjectInput{Name: "Economics"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	_, err = svc.CreateSubject(ctx, SubjectInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	updated, err := svc.AddTopic(ctx, subject.ID, "Taxes")
	require.NoError(t, err)
	assert.Len(t, updated.Topics, 3)

	_, err = svc.AddTopic(ctx, subject.ID, "Taxes")
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	renamed, err := svc.UpdateSubject(ctx, subject.ID, SubjectUpdate{Name: ptr("Macroeconomics"), Topics: &[]string{"Money"}})
	require.NoError(t, err)
	assert.Equal(t, "Macroeconomics", renamed.Name)
	assert.Equal(t, subject.CreatedAt, renamed.CreatedAt)
	assert.Equal(t, []domain.Topic{{Name: "Money"}}, renamed.Topics)

	require.NoError(t, svc.DeleteSubject(ctx, subject.ID))
	_, err = svc.GetSubject(ctx, subject.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func ptr[T any](v T) *T { return &v }

func TestUpdateSubjectKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	subject := seed(t, svc)
	q, err := svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: "What is M1?"})
	require.NoError(t, err)

	renamed, err := svc.UpdateSubject(ctx, subject.ID, SubjectUpdate{Name: ptr("Econ")})
	require.NoError(t, err)
	assert.Equal(t, "Econ", renamed.Name)
	assert.Equal(t, subject.Icon, renamed.Icon)
	assert.Equal(t, subject.Color, renamed.Color)
	assert.Equal(t, subject.Topics, renamed.Topics)

	edited, err := svc.UpdateQuestion(ctx, q.ID, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: "What is M2?"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Econ", edited.SubjectName)

	_, err = svc.UpdateSubject(ctx, subject.ID, SubjectUpdate{Topics: &[]string{"Banking"}})
	assert.ErrorIs(t, err, storage.ErrConflict)

	stored, err := svc.GetSubject(ctx, subject.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasTopic("Money"))

	_, err = svc.UpdateSubject(ctx, subject.ID, SubjectUpdate{Name: ptr(" ")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRateSchedulesAndRecordsStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	subject := seed(t, svc)
	q, err := svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: "What is M1?"})
	require.NoError(t, err)

	rated, err := svc.Rate(ctx, q.ID, "medium", q.Version)
	require.NoError(t, err)
	assert.Equal(t, domain.Medium, rated.Rating)
	assert.Equal(t, t0.AddDate(0, 0, 7), rated.NextReviewAt.UTC())
	assert.Equal(t, 1, rated.Repetitions)
	assert.Equal(t, q.Version+1, rated.Version)

	summary, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalAnswers)
	assert.Equal(t, 1, summary.TodayAttempts)
	assert.Equal(t, 1, summary.Streak)
	assert.Equal(t, 100, summary.Retention)
	assert.Equal(t, 0, summary.DueNow)
}

func TestWritesUseServiceClock(t *testing.T) {
	ctx := context.Background()
	svc, c := newService(t)
	subject := seed(t, svc)
	q, err := svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: "What is M1?"})
	require.NoError(t, err)

	c.advance(time.Hour)
	rated, err := svc.Rate(ctx, q.ID, "hard", 0)
	require.NoError(t, err)
	assert.True(t, rated.UpdatedAt.Equal(c.now))

	c.advance(time.Hour)
	toggled, err := svc.ToggleImportant(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, toggled.UpdatedAt.Equal(c.now))

	c.advance(time.Hour)
	_, err = svc.StartPractice(ctx, srs.Filter{}, srs.Order{}, true)
	require.NoError(t, err)

	stored, err := svc.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(c.now))
	assert.True(t, stored.NextReviewAt.Equal(c.now))
}

func TestRateRejectsBeforeWriting(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	subject := seed(t, svc)
	q, err := svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: "What is M1?"})
	require.NoError(t, err)

	_, err = svc.Rate(ctx, q.ID, "great", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = svc.Rate(ctx, q.ID, "easy", q.Version+5)
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = svc.Rate(ctx, "missing", "easy", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stored, err := svc.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Unrated, stored.Rating)
	assert.Equal(t, q.Version, stored.Version)

	summary, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalAnswers)
}

func TestStaleVersionAfterConcurrentRate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	subject := seed(t, svc)
	q, err := svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: "What is M1?"})
	require.NoError(t, err)

	_, err = svc.Rate(ctx, q.ID, "easy", q.Version)
	require.NoError(t, err)
	_, err = svc.Rate(ctx, q.ID, "again", q.Version)
	assert.ErrorIs(t, err, storage.ErrConflict)

	// Without a version the last write wins.
	rated, err := svc.Rate(ctx, q.ID, "again", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Again, rated.Rating)
}

func TestDueQueueAndPractice(t *testing.T) {
	ctx := context.Background()
	svc, c := newService(t)
	subject := seed(t, svc)

	create := func(text, topic string, important bool) *domain.Question {
		q, err := svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: topic, Text: text, Important: important})
		require.NoError(t, err)
		return q
	}
	fresh := create("fresh", "Money", false)
	hard := create("hard", "Money", true)
	easy := create("easy", "Banking", false)
	again := create("again", "Banking", false)

	_, err := svc.Rate(ctx, hard.ID, "hard", 0)
	require.NoError(t, err)
	_, err = svc.Rate(ctx, easy.ID, "easy", 0)
	require.NoError(t, err)
	_, err = svc.Rate(ctx, again.ID, "again", 0)
	require.NoError(t, err)

	due, err := svc.Due(ctx, srs.Filter{}, srs.Order{})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, fresh.ID, due[0].ID)

	c.advance(72 * time.Hour)
	due, err = svc.Due(ctx, srs.Filter{}, srs.Order{ImportantFirst: true})
	require.NoError(t, err)
	ids := []string{}
	for _, q := range due {
		ids = append(ids, q.ID)
	}
	// Unrated groups with again; hard follows.
	assert.ElementsMatch(t, []string{fresh.ID, again.ID}, ids[:2])
	assert.Equal(t, hard.ID, ids[2])
	assert.Len(t, ids, 3)

	banking, err := svc.Due(ctx, srs.Filter{Topics: []string{"Banking"}}, srs.Order{})
	require.NoError(t, err)
	require.Len(t, banking, 1)
	assert.Equal(t, again.ID, banking[0].ID)

	important, err := svc.Important(ctx, srs.Filter{})
	require.NoError(t, err)
	require.Len(t, important, 1)
	assert.Equal(t, hard.ID, important[0].ID)

	c.now = t0.Add(time.Hour)
	backlog, err := svc.StartPractice(ctx, srs.Filter{}, srs.Order{}, true)
	require.NoError(t, err)
	require.Len(t, backlog, 2)
	assert.Equal(t, again.ID, backlog[0].ID)
	assert.Equal(t, hard.ID, backlog[1].ID)

	due, err = svc.Due(ctx, srs.Filter{}, srs.Order{})
	require.NoError(t, err)
	assert.Len(t, due, 3)
}

func TestListQuestionsAndToggleImportant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	subject := seed(t, svc)
	q, err := svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Money", Text: "one"})
	require.NoError(t, err)
	_, err = svc.CreateQuestion(ctx, QuestionInput{SubjectID: subject.ID, TopicName: "Banking", Text: "two"})
	require.NoError(t, err)

	toggled, err := svc.ToggleImportant(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Important)

	list, err := svc.ListQuestions(ctx, QuestionFilter{ImportantOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, q.ID, list[0].ID)

	list, err = svc.ListQuestions(ctx, QuestionFilter{DueOnly: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	updated, err := svc.UpdateQuestion(ctx, q.ID, QuestionInput{SubjectID: subject.ID, TopicName: "Banking", Text: "one, edited"}, toggled.Version)
	require.NoError(t, err)
	assert.Equal(t, "Banking", updated.TopicName)
	assert.False(t, updated.Important)

	_, err = svc.UpdateQuestion(ctx, q.ID, QuestionInput{SubjectID: subject.ID, TopicName: "Banking", Text: "stale"}, toggled.Version)
	assert.ErrorIs(t, err, storage.ErrConflict)

	require.NoError(t, svc.DeleteQuestion(ctx, q.ID))
	assert.ErrorIs(t, svc.DeleteQuestion(ctx, q.ID), storage.ErrNotFound)
}

func TestSourcesAndSync(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.md"), []byte("S: Art\nT: Dance\nQ: Name a dance form\n"), 0o644))

	src, err := svc.AddSource(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLocal, src.Type)

	git, err := svc.AddSource(ctx, "https://github.com/acme/bank.git")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGit, git.Type)
	require.NoError(t, svc.RemoveSource(ctx, git.ID))

	_, err = svc.AddSource(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	reports, err := svc.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Inserted)

	due, err := svc.Due(ctx, srs.Filter{}, srs.Order{})
	require.NoError(t, err)
	assert.Len(t, due, 1)

	require.NoError(t, svc.RemoveSource(ctx, src.ID))
	due, err = svc.Due(ctx, srs.Filter{}, srs.Order{})
	require.NoError(t, err)
	assert.Empty(t, due)
}
