package srs

import (
	"slices"
	"time"

	"github.com/conorfennell/studybuddy/internal/domain"
)

// Filter restricts selection to a subject and/or a set of topic names.
// Zero fields match everything. Both dimensions must match when set; a
// question matches the topic dimension if its topic is any of Topics.
type Filter struct {
	SubjectID string
	Topics    []string
}

// Match reports whether q passes the filter.
func (f Filter) Match(q domain.Question) bool {
	if f.SubjectID != "" && q.SubjectID != f.SubjectID {
		return false
	}
	if len(f.Topics) > 0 && !slices.Contains(f.Topics, q.TopicName) {
		return false
	}
	return true
}

// SelectDue returns the questions matching f that are due at now: never
// rated, or NextReviewAt <= now. Input order is preserved.
func SelectDue(questions []domain.Question, now time.Time, f Filter) []domain.Question {
	return selectWhere(questions, f, func(q domain.Question) bool {
		return q.IsDue(now)
	})
}

// SelectImportant returns the questions matching f that are flagged
// important, regardless of due date.
func SelectImportant(questions []domain.Question, f Filter) []domain.Question {
	return selectWhere(questions, f, func(q domain.Question) bool {
		return q.Important
	})
}

// SelectPracticeBacklog returns the questions matching f last rated again
// or hard, regardless of due date. Selecting does not reschedule them.
func SelectPracticeBacklog(questions []domain.Question, f Filter) []domain.Question {
	return selectWhere(questions, f, func(q domain.Question) bool {
		return q.Rating == domain.Again || q.Rating == domain.Hard
	})
}

func selectWhere(questions []domain.Question, f Filter, keep func(domain.Question) bool) []domain.Question {
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if f.Match(q) && keep(q) {
			out = append(out, q)
		}
	}
	return out
}
