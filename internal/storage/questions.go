package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/studybuddy/internal/domain"
)

const questionColumns = `id, text, subject_id, subject_name, topic_name, rating, next_review_at,
	last_reviewed_at, ease_factor, repetitions, interval_days, important, source_id, version,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (domain.Question, error) {
	var (
		q            domain.Question
		rating       sql.NullString
		lastReviewed sql.NullTime
		sourceID     sql.NullString
	)
	err := row.Scan(
		&q.ID,
		&q.Text,
		&q.SubjectID,
		&q.SubjectName,
		&q.TopicName,
		&rating,
		&q.NextReviewAt,
		&lastReviewed,
		&q.EaseFactor,
		&q.Repetitions,
		&q.Interval,
		&q.Important,
		&sourceID,
		&q.Version,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return domain.Question{}, err
	}
	if rating.Valid {
		q.Rating = domain.Rating(rating.String)
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		q.LastReviewedAt = &t
	}
	q.SourceID = sourceID.String
	return q, nil
}

func nullRating(r domain.Rating) sql.NullString {
	return sql.NullString{String: string(r), Valid: r.Rated()}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertQuestion stores a new question.
func (db *DB) InsertQuestion(ctx context.Context, q domain.Question) error {
	return db.insertQuestion(ctx, db.conn, q)
}

func (db *DB) insertQuestion(ctx context.Context, qr querier, q domain.Question) error {
	_, err := qr.ExecContext(ctx, db.rebind(`
		INSERT INTO questions (`+questionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		q.ID,
		q.Text,
		q.SubjectID,
		q.SubjectName,
		q.TopicName,
		nullRating(q.Rating),
		q.NextReviewAt.UTC(),
		nullTime(q.LastReviewedAt),
		q.EaseFactor,
		q.Repetitions,
		q.Interval,
		q.Important,
		nullString(q.SourceID),
		q.Version,
		q.CreatedAt.UTC(),
		q.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
	}
	return nil
}

// GetQuestion retrieves a question by its ID.
func (db *DB) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	return db.getQuestion(ctx, db.conn, id)
}

func (db *DB) getQuestion(ctx context.Context, qr querier, id string) (*domain.Question, error) {
	row := qr.QueryRowContext(ctx, db.rebind(`SELECT `+questionColumns+` FROM questions WHERE id = ?`), id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question %s: %w", id, err)
	}
	return &q, nil
}

// QuestionQuery narrows ListQuestions. Zero fields match everything.
type QuestionQuery struct {
	SubjectID     string
	Topics        []string
	ImportantOnly bool
	SourceID      string
}

// ListQuestions returns matching questions, newest first.
func (db *DB) ListQuestions(ctx context.Context, f QuestionQuery) ([]domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE 1 = 1`
	var args []any
	if f.SubjectID != "" {
		query += ` AND subject_id = ?`
		args = append(args, f.SubjectID)
	}
	if len(f.Topics) > 0 {
		query += ` AND topic_name IN (` + placeholders(len(f.Topics)) + `)`
		for _, t := range f.Topics {
			args = append(args, t)
		}
	}
	if f.ImportantOnly {
		query += ` AND important = ?`
		args = append(args, true)
	}
	if f.SourceID != "" {
		query += ` AND source_id = ?`
		args = append(args, f.SourceID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// UpdateQuestion writes every mutable field of q, provided the stored
// version still equals q.Version. On success q.Version is incremented and
// q.UpdatedAt is set to now.
func (db *DB) UpdateQuestion(ctx context.Context, q *domain.Question, now time.Time) error {
	return db.updateQuestion(ctx, db.conn, q, now)
}

func (db *DB) updateQuestion(ctx context.Context, qr querier, q *domain.Question, now time.Time) error {
	now = now.UTC()
	res, err := qr.ExecContext(ctx, db.rebind(`
		UPDATE questions
		SET text = ?, subject_id = ?, subject_name = ?, topic_name = ?, rating = ?,
		    next_review_at = ?, last_reviewed_at = ?, ease_factor = ?, repetitions = ?,
		    interval_days = ?, important = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`),
		q.Text,
		q.SubjectID,
		q.SubjectName,
		q.TopicName,
		nullRating(q.Rating),
		q.NextReviewAt.UTC(),
		nullTime(q.LastReviewedAt),
		q.EaseFactor,
		q.Repetitions,
		q.Interval,
		q.Important,
		now,
		q.ID,
		q.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update question %s: %w", q.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update question %s: %w", q.ID, err)
	}
	if n == 0 {
		if _, err := db.getQuestion(ctx, qr, q.ID); err != nil {
			return err
		}
		return fmt.Errorf("question %s at version %d: %w", q.ID, q.Version, ErrConflict)
	}
	q.Version++
	q.UpdatedAt = now
	return nil
}

// DeleteQuestion removes a question permanently.
func (db *DB) DeleteQuestion(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM questions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete question %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return nil
}

// QuestionExists reports whether a question with id is stored.
func (db *DB) QuestionExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT COUNT(*) FROM questions WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check question %s: %w", id, err)
	}
	return n > 0, nil
}

// ReviewFunc mutates a question and the stats aggregate inside ReviewQuestion.
// Returning an error aborts the transaction.
type ReviewFunc func(q *domain.Question, st *domain.Stats) error

// ReviewQuestion loads the question and the stats aggregate, applies fn, and
// writes both back in one transaction. The question update is conditional
// on its version, so a concurrent write in between yields ErrConflict.
// The question's updated_at is stamped with now.
func (db *DB) ReviewQuestion(ctx context.Context, id string, now time.Time, fn ReviewFunc) (*domain.Question, *domain.Stats, error) {
	var (
		q  *domain.Question
		st domain.Stats
	)
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		q, err = db.getQuestion(ctx, tx, id)
		if err != nil {
			return err
		}
		st, err = db.getStats(ctx, tx)
		if err != nil {
			return err
		}
		before := make(map[string]int, len(st.DailyAttempts))
		for day, n := range st.DailyAttempts {
			before[day] = n
		}

		if err := fn(q, &st); err != nil {
			return err
		}
		if err := db.updateQuestion(ctx, tx, q, now); err != nil {
			return err
		}
		return db.putStats(ctx, tx, st, before)
	})
	if err != nil {
		return nil, nil, err
	}
	return q, &st, nil
}

// MarkDue sets the next review of the given questions to at. The same
// instant is recorded as their updated_at.
func (db *DB) MarkDue(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{at.UTC(), at.UTC()}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		UPDATE questions
		SET next_review_at = ?, version = version + 1, updated_at = ?
		WHERE id IN (`+placeholders(len(ids))+`)
	`), args...)
	if err != nil {
		return fmt.Errorf("failed to mark %d questions due: %w", len(ids), err)
	}
	return nil
}
