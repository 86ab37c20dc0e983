package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conorfennell/studybuddy/internal/domain"
)

// GetStats loads the study aggregate.
func (db *DB) GetStats(ctx context.Context) (domain.Stats, error) {
	return db.getStats(ctx, db.conn)
}

func (db *DB) getStats(ctx context.Context, qr querier) (domain.Stats, error) {
	var (
		st        domain.Stats
		lastStudy sql.NullTime
	)
	err := qr.QueryRowContext(ctx, `
		SELECT total_answers, streak, last_study_at, again_count, hard_count, medium_count, easy_count
		FROM study_stats WHERE id = 1
	`).Scan(
		&st.TotalAnswers,
		&st.Streak,
		&lastStudy,
		&st.RatingCounts.Again,
		&st.RatingCounts.Hard,
		&st.RatingCounts.Medium,
		&st.RatingCounts.Easy,
	)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	if lastStudy.Valid {
		t := lastStudy.Time
		st.LastStudyAt = &t
	}

	rows, err := qr.QueryContext(ctx, `SELECT day, attempts FROM daily_attempts`)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to get daily attempts: %w", err)
	}
	defer rows.Close()

	st.DailyAttempts = make(map[string]int)
	for rows.Next() {
		var (
			day      string
			attempts int
		)
		if err := rows.Scan(&day, &attempts); err != nil {
			return domain.Stats{}, fmt.Errorf("failed to scan daily attempts row: %w", err)
		}
		st.DailyAttempts[day] = attempts
	}
	if err := rows.Err(); err != nil {
		return domain.Stats{}, fmt.Errorf("failed to get daily attempts: %w", err)
	}
	return st, nil
}

// putStats writes the aggregate row and every day whose count differs from before.
func (db *DB) putStats(ctx context.Context, qr querier, st domain.Stats, before map[string]int) error {
	_, err := qr.ExecContext(ctx, db.rebind(`
		UPDATE study_stats
		SET total_answers = ?, streak = ?, last_study_at = ?,
		    again_count = ?, hard_count = ?, medium_count = ?, easy_count = ?
		WHERE id = 1
	`),
		st.TotalAnswers,
		st.Streak,
		nullTime(st.LastStudyAt),
		st.RatingCounts.Again,
		st.RatingCounts.Hard,
		st.RatingCounts.Medium,
		st.RatingCounts.Easy,
	)
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	for day, n := range st.DailyAttempts {
		if prev, ok := before[day]; ok && prev == n {
			continue
		}
		_, err := qr.ExecContext(ctx, db.rebind(`
			INSERT INTO daily_attempts (day, attempts) VALUES (?, ?)
			ON CONFLICT (day) DO UPDATE SET attempts = excluded.attempts
		`), day, n)
		if err != nil {
			return fmt.Errorf("failed to update attempts for %s: %w", day, err)
		}
	}
	return nil
}
