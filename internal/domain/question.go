package domain

import "time"

// Defaults applied to newly created questions.
const (
	DefaultEaseFactor = 2.5
	DefaultInterval   = 1
)

// Question is a single reviewable prompt and its recall state.
type Question struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	SubjectID   string `json:"subjectId"`
	SubjectName string `json:"subjectName"`
	TopicName   string `json:"topicName"`

	Rating         Rating     `json:"rating"`
	NextReviewAt   time.Time  `json:"nextReviewAt"`
	LastReviewedAt *time.Time `json:"lastReviewedAt"`
	EaseFactor     float64    `json:"easeFactor"`
	Repetitions    int        `json:"repetitions"`
	Interval       int        `json:"interval"` // days
	Important      bool       `json:"important"`

	SourceID  string    `json:"sourceId,omitempty"` // empty for hand-written questions
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewQuestion returns an unrated question that is due immediately.
func NewQuestion(id, text string, subject Subject, topicName string, now time.Time) Question {
	return Question{
		ID:           id,
		Text:         text,
		SubjectID:    subject.ID,
		SubjectName:  subject.Name,
		TopicName:    topicName,
		Rating:       Unrated,
		NextReviewAt: now,
		EaseFactor:   DefaultEaseFactor,
		Interval:     DefaultInterval,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsDue reports whether q should be reviewed at now. Never-attempted
// questions are always due.
func (q Question) IsDue(now time.Time) bool {
	return !q.Rating.Rated() || !q.NextReviewAt.After(now)
}

// Topic is a named grouping inside a subject.
type Topic struct {
	Name string `json:"name"`
}

// Subject groups topics. It carries display metadata only.
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	Topics    []Topic   `json:"topics"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasTopic reports whether the subject contains a topic with the exact name.
func (s Subject) HasTopic(name string) bool {
	for _, t := range s.Topics {
		if t.Name == name {
			return true
		}
	}
	return false
}

// SourceType says where an import source's files come from.
type SourceType string

const (
	SourceLocal SourceType = "local"
	SourceGit   SourceType = "git"
)

// Source is a question bank location, either a local path or a git URL.
type Source struct {
	ID          string     `json:"id"`
	Path        string     `json:"path"`
	Type        SourceType `json:"type"`
	LastScanned *time.Time `json:"lastScanned"`
}
