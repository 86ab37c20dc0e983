package srs

import (
	"math/rand/v2"
	"slices"

	"github.com/conorfennell/studybuddy/internal/domain"
)

// Order controls how GroupAndOrder arranges questions inside a bucket.
// Randomize takes precedence over ImportantFirst.
type Order struct {
	ImportantFirst bool
	Randomize      bool
	Rand           *rand.Rand // nil uses the global source
}

// GroupAndOrder buckets questions by rating (unrated counts as again) and
// concatenates the buckets again, hard, medium, easy. The input slice is not
// modified.
func GroupAndOrder(questions []domain.Question, o Order) []domain.Question {
	buckets := make(map[domain.Rating][]domain.Question, len(domain.Ratings))
	for _, q := range questions {
		b := q.Rating.Bucket()
		buckets[b] = append(buckets[b], q)
	}

	out := make([]domain.Question, 0, len(questions))
	for _, r := range domain.Ratings {
		bucket := buckets[r]
		switch {
		case o.Randomize:
			shuffle(bucket, o.Rand)
		case o.ImportantFirst:
			slices.SortStableFunc(bucket, func(a, b domain.Question) int {
				return importance(b) - importance(a)
			})
		}
		out = append(out, bucket...)
	}
	return out
}

func importance(q domain.Question) int {
	if q.Important {
		return 1
	}
	return 0
}

// shuffle is a Fisher-Yates permutation in place.
func shuffle(qs []domain.Question, rng *rand.Rand) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(qs) - 1; i > 0; i-- {
		j := intN(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}
