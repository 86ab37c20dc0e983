package domain

import "time"

// DayLayout formats the keys of Stats.DailyAttempts.
const DayLayout = "2006-01-02"

// RatingCounts tallies every rating action ever recorded.
type RatingCounts struct {
	Again  int `json:"again"`
	Hard   int `json:"hard"`
	Medium int `json:"medium"`
	Easy   int `json:"easy"`
}

// Add increments the counter for r. Invalid ratings are ignored.
func (c *RatingCounts) Add(r Rating) {
	switch r {
	case Again:
		c.Again++
	case Hard:
		c.Hard++
	case Medium:
		c.Medium++
	case Easy:
		c.Easy++
	}
}

// Stats is the study aggregate shown to the user. It is display data,
// never an input to scheduling.
type Stats struct {
	TotalAnswers  int            `json:"totalAnswers"`
	Streak        int            `json:"streak"`
	LastStudyAt   *time.Time     `json:"lastStudyAt"`
	RatingCounts  RatingCounts   `json:"ratingCounts"`
	DailyAttempts map[string]int `json:"dailyAttempts"`
}
