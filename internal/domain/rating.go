package domain

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
)

// Rating is the user's recall assessment of a question.
// The zero value, Unrated, means the question was never attempted and is
// distinct from Again.
type Rating string

const (
	Unrated Rating = ""
	Again   Rating = "again"
	Hard    Rating = "hard"
	Medium  Rating = "medium"
	Easy    Rating = "easy"
)

// Ratings lists the valid ratings in bucket priority order.
var Ratings = [...]Rating{Again, Hard, Medium, Easy}

// ErrInvalidRating is returned when a string is not one of the four ratings.
var ErrInvalidRating = errors.New("invalid rating")

var (
	_ fmt.Stringer             = Rating("")
	_ json.Marshaler           = Rating("")
	_ json.Unmarshaler         = (*Rating)(nil)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// ParseRating parses one of "again", "hard", "medium" or "easy".
// The empty string is rejected: a rating action always carries a value.
func ParseRating(s string) (Rating, error) {
	r := Rating(s)
	if !r.IsValid() {
		return Unrated, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// IsValid reports whether r is one of the four ratings. Unrated is not valid.
func (r Rating) IsValid() bool {
	switch r {
	case Again, Hard, Medium, Easy:
		return true
	}
	return false
}

// Rated reports whether the question carrying r has been attempted.
func (r Rating) Rated() bool {
	return r != Unrated
}

// Bucket returns the rating used to group r for review. Unrated questions
// are reviewed alongside Again.
func (r Rating) Bucket() Rating {
	if r == Unrated {
		return Again
	}
	return r
}

func (r Rating) String() string {
	if r == Unrated {
		return "unrated"
	}
	return string(r)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalJSON encodes Unrated as null and any other rating as its string.
func (r Rating) MarshalJSON() ([]byte, error) {
	if r == Unrated {
		return []byte("null"), nil
	}
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRating, string(r))
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts null (Unrated) or one of the four rating strings.
func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Unrated
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRating, data)
	}
	return r.UnmarshalText([]byte(s))
}
