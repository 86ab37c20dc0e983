package srs

import (
	"errors"

	"github.com/conorfennell/studybuddy/internal/domain"
)

// Sentinel errors for the srs package.
// Use errors.Is to check: errors.Is(err, srs.ErrInvalidRating)
var (
	// ErrInvalidRating is domain.ErrInvalidRating, so callers match a bad
	// rating the same way whether it failed parsing or scheduling.
	ErrInvalidRating        = domain.ErrInvalidRating
	ErrInvalidQuestionState = errors.New("srs: invalid question state")
)
