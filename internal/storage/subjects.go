package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/studybuddy/internal/domain"
)

// InsertSubject stores a new subject and its topics.
func (db *DB) InsertSubject(ctx context.Context, s domain.Subject) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if err := db.checkSubjectName(ctx, tx, s.Name, ""); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, db.rebind(`
			INSERT INTO subjects (id, name, icon, color, created_at)
			VALUES (?, ?, ?, ?, ?)
		`), s.ID, s.Name, s.Icon, s.Color, s.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert subject %s: %w", s.Name, err)
		}
		return db.putTopics(ctx, tx, s.ID, s.Topics)
	})
}

// GetSubject retrieves a subject and its topics by ID.
func (db *DB) GetSubject(ctx context.Context, id string) (*domain.Subject, error) {
	return db.getSubject(ctx, db.conn, `id = ?`, id)
}

// FindSubjectByName retrieves a subject by its exact name.
func (db *DB) FindSubjectByName(ctx context.Context, name string) (*domain.Subject, error) {
	return db.getSubject(ctx, db.conn, `name = ?`, name)
}

func (db *DB) getSubject(ctx context.Context, qr querier, where string, arg any) (*domain.Subject, error) {
	var s domain.Subject
	err := qr.QueryRowContext(ctx, db.rebind(`
		SELECT id, name, icon, color, created_at FROM subjects WHERE `+where), arg).
		Scan(&s.ID, &s.Name, &s.Icon, &s.Color, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subject %v: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subject %v: %w", arg, err)
	}
	topics, err := db.listTopics(ctx, qr, s.ID)
	if err != nil {
		return nil, err
	}
	s.Topics = topics
	return &s, nil
}

// ListSubjects returns all subjects, newest first.
func (db *DB) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, icon, color, created_at FROM subjects ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	var subjects []domain.Subject
	for rows.Next() {
		var s domain.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Icon, &s.Color, &s.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		subjects = append(subjects, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	// Topics are loaded after the cursor is closed; sqlite runs on one connection.
	for i := range subjects {
		topics, err := db.listTopics(ctx, db.conn, subjects[i].ID)
		if err != nil {
			return nil, err
		}
		subjects[i].Topics = topics
	}
	return subjects, nil
}

func (db *DB) listTopics(ctx context.Context, qr querier, subjectID string) ([]domain.Topic, error) {
	rows, err := qr.QueryContext(ctx, db.rebind(`
		SELECT name FROM topics WHERE subject_id = ? ORDER BY position
	`), subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics for subject %s: %w", subjectID, err)
	}
	defer rows.Close()

	topics := []domain.Topic{}
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (db *DB) putTopics(ctx context.Context, qr querier, subjectID string, topics []domain.Topic) error {
	if _, err := qr.ExecContext(ctx, db.rebind(`DELETE FROM topics WHERE subject_id = ?`), subjectID); err != nil {
		return fmt.Errorf("failed to clear topics for subject %s: %w", subjectID, err)
	}
	seen := make(map[string]bool, len(topics))
	for i, t := range topics {
		if seen[t.Name] {
			return fmt.Errorf("topic %q: %w", t.Name, ErrDuplicate)
		}
		seen[t.Name] = true
		_, err := qr.ExecContext(ctx, db.rebind(`
			INSERT INTO topics (subject_id, name, position) VALUES (?, ?, ?)
		`), subjectID, t.Name, i)
		if err != nil {
			return fmt.Errorf("failed to insert topic %s: %w", t.Name, err)
		}
	}
	return nil
}

func (db *DB) checkSubjectName(ctx context.Context, qr querier, name, exceptID string) error {
	var n int
	err := qr.QueryRowContext(ctx, db.rebind(`
		SELECT COUNT(*) FROM subjects WHERE name = ? AND id <> ?
	`), name, exceptID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check subject name %s: %w", name, err)
	}
	if n > 0 {
		return fmt.Errorf("subject %q: %w", name, ErrDuplicate)
	}
	return nil
}

// UpdateSubject replaces a subject's fields and topics. A rename is copied
// to the denormalized subject name on its questions. Dropping a topic that
// questions still use yields ErrConflict.
func (db *DB) UpdateSubject(ctx context.Context, s domain.Subject) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.getSubject(ctx, tx, `id = ?`, s.ID); err != nil {
			return err
		}
		if err := db.checkSubjectName(ctx, tx, s.Name, s.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, db.rebind(`
			UPDATE subjects SET name = ?, icon = ?, color = ? WHERE id = ?
		`), s.Name, s.Icon, s.Color, s.ID)
		if err != nil {
			return fmt.Errorf("failed to update subject %s: %w", s.ID, err)
		}
		_, err = tx.ExecContext(ctx, db.rebind(`
			UPDATE questions SET subject_name = ? WHERE subject_id = ? AND subject_name <> ?
		`), s.Name, s.ID, s.Name)
		if err != nil {
			return fmt.Errorf("failed to rename questions of subject %s: %w", s.ID, err)
		}
		if err := db.checkTopicsInUse(ctx, tx, s); err != nil {
			return err
		}
		return db.putTopics(ctx, tx, s.ID, s.Topics)
	})
}

func (db *DB) checkTopicsInUse(ctx context.Context, qr querier, s domain.Subject) error {
	rows, err := qr.QueryContext(ctx, db.rebind(`
		SELECT DISTINCT topic_name FROM questions WHERE subject_id = ? ORDER BY topic_name
	`), s.ID)
	if err != nil {
		return fmt.Errorf("failed to list topics in use for subject %s: %w", s.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan topic name: %w", err)
		}
		if !s.HasTopic(name) {
			return fmt.Errorf("topic %q still has questions: %w", name, ErrConflict)
		}
	}
	return rows.Err()
}

// AddTopic appends a topic to a subject. An existing name yields ErrDuplicate.
func (db *DB) AddTopic(ctx context.Context, subjectID, name string) (*domain.Subject, error) {
	var s *domain.Subject
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		s, err = db.getSubject(ctx, tx, `id = ?`, subjectID)
		if err != nil {
			return err
		}
		if s.HasTopic(name) {
			return fmt.Errorf("topic %q: %w", name, ErrDuplicate)
		}
		_, err = tx.ExecContext(ctx, db.rebind(`
			INSERT INTO topics (subject_id, name, position) VALUES (?, ?, ?)
		`), subjectID, name, len(s.Topics))
		if err != nil {
			return fmt.Errorf("failed to add topic %s: %w", name, err)
		}
		s.Topics = append(s.Topics, domain.Topic{Name: name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteSubject removes a subject together with its topics and questions.
func (db *DB) DeleteSubject(ctx context.Context, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.getSubject(ctx, tx, `id = ?`, id); err != nil {
			return err
		}
		for _, stmt := range []string{
			`DELETE FROM questions WHERE subject_id = ?`,
			`DELETE FROM topics WHERE subject_id = ?`,
			`DELETE FROM subjects WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, db.rebind(stmt), id); err != nil {
				return fmt.Errorf("failed to delete subject %s: %w", id, err)
			}
		}
		return nil
	})
}
