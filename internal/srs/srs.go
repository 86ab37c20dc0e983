// Package srs implements the review scheduling policy: how a recall rating
// moves a question's next review date, and which questions are due and in
// what order they are studied.
//
// Everything here is pure. Callers own persistence and the clock.
package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/studybuddy/internal/domain"
)

// Ease factor bounds. Adjustments are clamped into [MinEaseFactor, MaxEaseFactor].
const (
	MinEaseFactor = 1.3
	MaxEaseFactor = 3.0
)

// Policy holds the interval table and ease-factor adjustments.
// The ease factor is tracked for display and future use; it does not feed
// the interval.
type Policy struct {
	Intervals map[domain.Rating]int // days until the next review
	EaseDelta map[domain.Rating]float64
}

// DefaultPolicy returns the canonical table: again 1 day, hard 3 days,
// medium 7 days, easy 14 days.
func DefaultPolicy() *Policy {
	return &Policy{
		Intervals: map[domain.Rating]int{
			domain.Again:  1,
			domain.Hard:   3,
			domain.Medium: 7,
			domain.Easy:   14,
		},
		EaseDelta: map[domain.Rating]float64{
			domain.Again:  -0.2,
			domain.Hard:   -0.15,
			domain.Medium: 0,
			domain.Easy:   0.1,
		},
	}
}

var defaultPolicy = DefaultPolicy()

// Outcome is the recall state produced by a rating action.
type Outcome struct {
	Rating         domain.Rating `json:"rating"`
	EaseFactor     float64       `json:"easeFactor"`
	Repetitions    int           `json:"repetitions"`
	Interval       int           `json:"interval"`
	NextReviewAt   time.Time     `json:"nextReviewAt"`
	LastReviewedAt time.Time     `json:"lastReviewedAt"`
}

// Apply writes the outcome into q. Earlier ratings are overwritten.
func (o Outcome) Apply(q *domain.Question) {
	last := o.LastReviewedAt
	q.Rating = o.Rating
	q.EaseFactor = o.EaseFactor
	q.Repetitions = o.Repetitions
	q.Interval = o.Interval
	q.NextReviewAt = o.NextReviewAt
	q.LastReviewedAt = &last
}

// Schedule rates q with the default policy.
func Schedule(q domain.Question, rating domain.Rating, now time.Time) (Outcome, error) {
	return defaultPolicy.Schedule(q, rating, now)
}

// IntervalDays returns the number of days until the next review after rating.
func (p *Policy) IntervalDays(rating domain.Rating) (int, error) {
	if !rating.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, string(rating))
	}
	days, ok := p.Intervals[rating]
	if !ok {
		return 0, fmt.Errorf("%w: no interval for %q", ErrInvalidRating, string(rating))
	}
	return days, nil
}

// Schedule computes the recall state after q is rated at now.
// q is not modified; use Outcome.Apply to store the result.
func (p *Policy) Schedule(q domain.Question, rating domain.Rating, now time.Time) (Outcome, error) {
	days, err := p.IntervalDays(rating)
	if err != nil {
		return Outcome{}, err
	}
	if err := validate(q); err != nil {
		return Outcome{}, err
	}

	reps := 0
	if rating == domain.Medium || rating == domain.Easy {
		reps = q.Repetitions + 1
	}

	return Outcome{
		Rating:         rating,
		EaseFactor:     clampEase(q.EaseFactor + p.EaseDelta[rating]),
		Repetitions:    reps,
		Interval:       days,
		NextReviewAt:   now.Add(time.Duration(days) * 24 * time.Hour),
		LastReviewedAt: now,
	}, nil
}

func validate(q domain.Question) error {
	if q.Repetitions < 0 {
		return fmt.Errorf("%w: question %s has negative repetitions %d", ErrInvalidQuestionState, q.ID, q.Repetitions)
	}
	if math.IsNaN(q.EaseFactor) || math.IsInf(q.EaseFactor, 0) {
		return fmt.Errorf("%w: question %s has non-finite ease factor", ErrInvalidQuestionState, q.ID)
	}
	return nil
}

func clampEase(ef float64) float64 {
	return math.Max(MinEaseFactor, math.Min(MaxEaseFactor, ef))
}
