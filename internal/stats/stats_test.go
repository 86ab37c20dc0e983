package stats

import (
	"testing"
	"time"

	"github.com/conorfennell/studybuddy/internal/domain"
)

var t0 = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func TestRecord(t *testing.T) {
	var st domain.Stats
	Record(&st, domain.Easy, t0)
	Record(&st, domain.Again, t0.Add(time.Hour))

	if st.TotalAnswers != 2 {
		t.Errorf("TotalAnswers = %d, want 2", st.TotalAnswers)
	}
	if st.DailyAttempts["2025-03-10"] != 2 {
		t.Errorf("DailyAttempts = %v", st.DailyAttempts)
	}
	if st.RatingCounts.Easy != 1 || st.RatingCounts.Again != 1 {
		t.Errorf("RatingCounts = %+v", st.RatingCounts)
	}
	if st.Streak != 1 {
		t.Errorf("Streak = %d, want 1", st.Streak)
	}
	if !st.LastStudyAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("LastStudyAt = %v", st.LastStudyAt)
	}
}

func TestStreak(t *testing.T) {
	testCases := []struct {
		name string
		days []int // day offsets from t0 of each study action
		want int
	}{
		{"single day", []int{0, 0, 0}, 1},
		{"three consecutive days", []int{0, 1, 2}, 3},
		{"gap resets", []int{0, 1, 3}, 1},
		{"gap then run", []int{0, 2, 3, 4}, 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var st domain.Stats
			for _, d := range tc.days {
				Record(&st, domain.Medium, t0.AddDate(0, 0, d))
			}
			if st.Streak != tc.want {
				t.Errorf("Streak = %d, want %d", st.Streak, tc.want)
			}
		})
	}
}

func TestCurrentStreak(t *testing.T) {
	var st domain.Stats
	Record(&st, domain.Easy, t0)
	Record(&st, domain.Easy, t0.AddDate(0, 0, 1))

	if got := CurrentStreak(st, t0.AddDate(0, 0, 1)); got != 2 {
		t.Errorf("same day streak = %d, want 2", got)
	}
	if got := CurrentStreak(st, t0.AddDate(0, 0, 2)); got != 2 {
		t.Errorf("next day streak = %d, want 2", got)
	}
	if got := CurrentStreak(st, t0.AddDate(0, 0, 3)); got != 0 {
		t.Errorf("lapsed streak = %d, want 0", got)
	}
	if got := CurrentStreak(domain.Stats{}, t0); got != 0 {
		t.Errorf("empty streak = %d, want 0", got)
	}
}

func TestRetention(t *testing.T) {
	testCases := []struct {
		name   string
		counts domain.RatingCounts
		want   int
	}{
		{"no answers", domain.RatingCounts{}, 0},
		{"all easy", domain.RatingCounts{Easy: 4}, 100},
		{"mixed", domain.RatingCounts{Again: 1, Hard: 1, Medium: 3, Easy: 3}, 50},
		{"rounds", domain.RatingCounts{Again: 1, Medium: 2}, 33},
		{"negative floors at zero", domain.RatingCounts{Again: 3, Easy: 1}, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.counts
			st := domain.Stats{RatingCounts: c, TotalAnswers: c.Again + c.Hard + c.Medium + c.Easy}
			if got := Retention(st); got != tc.want {
				t.Errorf("Retention = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	subject := domain.Subject{ID: "s", Name: "Polity"}
	due := domain.NewQuestion("due", "due", subject, "Preamble", t0)
	later := domain.NewQuestion("later", "later", subject, "Preamble", t0)
	later.Rating = domain.Hard
	later.NextReviewAt = t0.Add(2 * time.Hour)
	later.Important = true
	future := domain.NewQuestion("future", "future", subject, "Preamble", t0)
	future.Rating = domain.Easy
	future.NextReviewAt = t0.AddDate(0, 0, 14)

	st := domain.Stats{DailyAttempts: map[string]int{}}
	for i := 0; i < 3; i++ {
		Record(&st, domain.Easy, t0.AddDate(0, 0, -1))
	}
	Record(&st, domain.Again, t0)

	s := Summarize(st, []domain.Question{due, later, future}, t0)
	if s.DueNow != 1 {
		t.Errorf("DueNow = %d, want 1", s.DueNow)
	}
	if s.DueToday != 2 {
		t.Errorf("DueToday = %d, want 2", s.DueToday)
	}
	if s.Progress != -2 {
		t.Errorf("Progress = %d, want -2", s.Progress)
	}
	if s.Streak != 2 {
		t.Errorf("Streak = %d, want 2", s.Streak)
	}
	if s.ImportantCount != 1 || s.TotalQuestions != 3 || s.TotalAnswers != 4 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Retention != 50 {
		t.Errorf("Retention = %d, want 50", s.Retention)
	}
}
