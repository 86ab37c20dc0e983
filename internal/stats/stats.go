// Package stats maintains the study aggregate: attempts per day, rating
// tallies, streak and the derived numbers shown on the dashboard.
package stats

import (
	"math"
	"time"

	"github.com/conorfennell/studybuddy/internal/domain"
	"github.com/conorfennell/studybuddy/internal/srs"
)

// Day returns the DailyAttempts key for t in t's location.
func Day(t time.Time) string {
	return t.Format(domain.DayLayout)
}

// Record applies one rating action at now to st.
// Days are taken in now's location; callers convert to the study time zone.
func Record(st *domain.Stats, r domain.Rating, now time.Time) {
	if st.DailyAttempts == nil {
		st.DailyAttempts = make(map[string]int)
	}
	st.DailyAttempts[Day(now)]++
	st.RatingCounts.Add(r)
	st.TotalAnswers++

	switch {
	case st.LastStudyAt == nil:
		st.Streak = 1
	case Day(st.LastStudyAt.In(now.Location())) == Day(now):
		if st.Streak == 0 {
			st.Streak = 1
		}
	case Day(st.LastStudyAt.In(now.Location())) == Day(now.AddDate(0, 0, -1)):
		st.Streak++
	default:
		st.Streak = 1
	}
	last := now
	st.LastStudyAt = &last
}

// Summary is the dashboard view of the aggregate and the question set.
type Summary struct {
	DueNow         int `json:"dueNow"`
	DueToday       int `json:"dueToday"`
	Retention      int `json:"retention"` // percent
	Progress       int `json:"progress"`  // attempts today minus yesterday
	TodayAttempts  int `json:"todayAttempts"`
	Streak         int `json:"streak"`
	ImportantCount int `json:"importantCount"`
	TotalQuestions int `json:"totalQuestions"`
	TotalAnswers   int `json:"totalAnswers"`
}

// Summarize derives the dashboard numbers at now.
func Summarize(st domain.Stats, questions []domain.Question, now time.Time) Summary {
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()).Add(-time.Nanosecond)
	today := st.DailyAttempts[Day(now)]
	yesterday := st.DailyAttempts[Day(now.AddDate(0, 0, -1))]

	return Summary{
		DueNow:         len(srs.SelectDue(questions, now, srs.Filter{})),
		DueToday:       len(srs.SelectDue(questions, endOfDay, srs.Filter{})),
		Retention:      Retention(st),
		Progress:       today - yesterday,
		TodayAttempts:  today,
		Streak:         CurrentStreak(st, now),
		ImportantCount: len(srs.SelectImportant(questions, srs.Filter{})),
		TotalQuestions: len(questions),
		TotalAnswers:   st.TotalAnswers,
	}
}

// Retention scores successful recalls against failed ones as a percentage
// of all answers: (medium + easy - hard - again) / total. Scores below zero
// are reported as zero.
func Retention(st domain.Stats) int {
	if st.TotalAnswers == 0 {
		return 0
	}
	c := st.RatingCounts
	pct := math.Round(float64(c.Medium+c.Easy-c.Hard-c.Again) / float64(st.TotalAnswers) * 100)
	return int(math.Max(0, pct))
}

// CurrentStreak returns the streak as of now. A streak survives until the
// end of the day after the last study day.
func CurrentStreak(st domain.Stats, now time.Time) int {
	if st.LastStudyAt == nil {
		return 0
	}
	last := Day(st.LastStudyAt.In(now.Location()))
	if last == Day(now) || last == Day(now.AddDate(0, 0, -1)) {
		return st.Streak
	}
	return 0
}
