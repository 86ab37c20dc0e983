package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studybuddy/internal/domain"
)

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		s           domain.Source
		lastScanned sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.Path, &s.Type, &lastScanned); err != nil {
		return domain.Source{}, err
	}
	if lastScanned.Valid {
		t := lastScanned.Time
		s.LastScanned = &t
	}
	return s, nil
}

// InsertSource inserts a new source path into the database and returns it.
func (db *DB) InsertSource(ctx context.Context, path string, typ domain.SourceType) (*domain.Source, error) {
	if _, err := db.FindSourceByPath(ctx, path); err == nil {
		return nil, fmt.Errorf("source %s: %w", path, ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	s := domain.Source{ID: uuid.NewString(), Path: path, Type: typ}
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO sources (id, path, type) VALUES (?, ?, ?)
	`), s.ID, s.Path, string(s.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	return &s, nil
}

// GetSource retrieves a source by ID.
func (db *DB) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	return db.getSource(ctx, `id = ?`, id)
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*domain.Source, error) {
	return db.getSource(ctx, `path = ?`, path)
}

func (db *DB) getSource(ctx context.Context, where string, arg string) (*domain.Source, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`SELECT id, path, type, last_scanned FROM sources WHERE `+where), arg)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get source %s: %w", arg, err)
	}
	return &s, nil
}

// ListSources retrieves all stored sources from the database.
func (db *DB) ListSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, path, type, last_scanned FROM sources ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, id string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(`UPDATE sources SET last_scanned = ? WHERE id = ?`), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source %s: %w", id, err)
	}
	return nil
}

// DeleteSource removes a source and the questions imported from it.
func (db *DB) DeleteSource(ctx context.Context, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM questions WHERE source_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete questions of source %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM sources WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete source %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
