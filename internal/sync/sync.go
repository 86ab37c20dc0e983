package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/studybuddy/internal/domain"
	"github.com/conorfennell/studybuddy/internal/fingerprint"
	"github.com/conorfennell/studybuddy/internal/gitsource"
	"github.com/conorfennell/studybuddy/internal/parser"
	"github.com/conorfennell/studybuddy/internal/storage"
)

// Defaults for subjects created by an import.
const (
	DefaultIcon  = "📚"
	DefaultColor = "#4f46e5"
)

// maxClones bounds concurrent git fetches.
const maxClones = 4

// Report summarises one source reconciliation.
type Report struct {
	SourceID string `json:"sourceId"`
	Path     string `json:"path"`
	Parsed   int    `json:"parsed"`
	Inserted int    `json:"inserted"`
	Orphaned int    `json:"orphaned"`
	Errors   int    `json:"errors"`
}

// RunSync fetches git sources into reposDir and reconciles every source.
// A failing source is logged and skipped; the returned error joins them.
func RunSync(ctx context.Context, db *storage.DB, reposDir string, now time.Time) ([]Report, error) {
	slog.Info("starting sync process for all sources")
	sources, err := db.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("no sources configured, add one with: studybuddy source add <path/or/url.git>")
		return nil, nil
	}

	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repos directory: %w", err)
	}

	// Git fetches run concurrently; reconciliation is sequential because
	// sqlite holds a single connection.
	dirs := make([]string, len(sources))
	fetchErrs := make([]error, len(sources))
	var g errgroup.Group
	g.SetLimit(maxClones)
	for i, source := range sources {
		if source.Type != domain.SourceGit {
			dirs[i] = source.Path
			continue
		}
		g.Go(func() error {
			localRepoPath, err := gitsource.LocalPath(reposDir, source.Path)
			if err != nil {
				fetchErrs[i] = err
				return nil
			}
			if err := gitsource.Sync(ctx, source.Path, localRepoPath); err != nil {
				fetchErrs[i] = err
				return nil
			}
			dirs[i] = localRepoPath
			return nil
		})
	}
	// Fetch failures are per source and land in fetchErrs.
	_ = g.Wait()

	var (
		reports []Report
		errs    []error
	)
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
		if fetchErrs[i] != nil {
			slog.Error("error syncing git repo", "url", source.Path, "error", fetchErrs[i])
			errs = append(errs, fmt.Errorf("source %s: %w", source.Path, fetchErrs[i]))
			continue
		}
		report, err := Reconcile(ctx, db, source, dirs[i], now)
		if err != nil {
			slog.Error("error reconciling source", "path", source.Path, "error", err)
			errs = append(errs, fmt.Errorf("source %s: %w", source.Path, err))
			continue
		}
		reports = append(reports, report)
	}
	slog.Info("sync process complete", "sources", len(sources), "failed", len(errs))
	return reports, errors.Join(errs...)
}

// Reconcile imports every question found under dir for source. New questions
// are inserted, questions no longer present are deleted, and existing ones
// keep their review history.
func Reconcile(ctx context.Context, db *storage.DB, source domain.Source, dir string, now time.Time) (Report, error) {
	report := Report{SourceID: source.ID, Path: source.Path}
	found := make(map[string]bool)
	subjects := make(map[string]*domain.Subject)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors++
			slog.Warn("problems parsing file", "path", path, "error", parseErr)
		}
		for _, card := range cards {
			report.Parsed++
			id := fingerprint.ID(card)
			found[id] = true

			inserted, err := importCard(ctx, db, subjects, card, id, source.ID, now)
			if err != nil {
				report.Errors++
				slog.Warn("failed to import question", "path", path, "line", card.Line, "error", err)
				continue
			}
			if inserted {
				slog.Debug("new question found, inserting", "id", id)
				report.Inserted++
			}
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	existing, err := db.ListQuestions(ctx, storage.QuestionQuery{SourceID: source.ID})
	if err != nil {
		return report, fmt.Errorf("error getting questions for source %s: %w", source.ID, err)
	}
	for _, q := range existing {
		if found[q.ID] {
			continue
		}
		slog.Info("orphaned question, deleting", "id", q.ID)
		if err := db.DeleteQuestion(ctx, q.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to delete orphaned question", "id", q.ID, "error", err)
			report.Errors++
			continue
		}
		report.Orphaned++
	}

	if err := db.UpdateSourceLastScanned(ctx, source.ID, now); err != nil {
		slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed", report.Parsed,
		"inserted", report.Inserted,
		"orphaned_deleted", report.Orphaned,
		"errors", report.Errors,
	)
	return report, nil
}

func importCard(ctx context.Context, db *storage.DB, subjects map[string]*domain.Subject, card domain.Card, id, sourceID string, now time.Time) (bool, error) {
	exists, err := db.QuestionExists(ctx, id)
	if err != nil || exists {
		return false, err
	}

	subject, err := ensureSubject(ctx, db, subjects, card.Subject, now)
	if err != nil {
		return false, err
	}
	if !subject.HasTopic(card.Topic) {
		updated, err := db.AddTopic(ctx, subject.ID, card.Topic)
		if err != nil && !errors.Is(err, storage.ErrDuplicate) {
			return false, err
		}
		if updated != nil {
			*subject = *updated
		}
	}

	q := domain.NewQuestion(id, card.Text, *subject, card.Topic, now)
	q.Important = card.Important
	q.SourceID = sourceID
	if err := db.InsertQuestion(ctx, q); err != nil {
		return false, err
	}
	return true, nil
}

func ensureSubject(ctx context.Context, db *storage.DB, cache map[string]*domain.Subject, name string, now time.Time) (*domain.Subject, error) {
	if s, ok := cache[name]; ok {
		return s, nil
	}
	s, err := db.FindSubjectByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		s = &domain.Subject{
			ID:        uuid.NewString(),
			Name:      name,
			Icon:      DefaultIcon,
			Color:     DefaultColor,
			Topics:    []domain.Topic{},
			CreatedAt: now,
		}
		err = db.InsertSubject(ctx, *s)
	}
	if err != nil {
		return nil, err
	}
	cache[name] = s
	return s, nil
}
