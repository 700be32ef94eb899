package model

import (
	"fmt"

	apperrors "github.com/facechat/matching-server-go/internal/errors"
)

// MatchFilter is supplied with each start-matching request. It is never
// persisted.
type MatchFilter struct {
	Gender   Gender   `json:"gender"`
	Location []string `json:"location"`
	MinAge   int      `json:"minAge"`
	MaxAge   int      `json:"maxAge"`
}

// Validate checks the filter the way start-matching expects it: a known
// gender preference, known location tags, and a sane inclusive age range.
func (f *MatchFilter) Validate() error {
	if f == nil {
		return apperrors.InvalidFilter("filter is missing")
	}
	if !f.Gender.Valid() {
		return apperrors.InvalidFilter(fmt.Sprintf("unknown gender preference %q", f.Gender))
	}
	if f.MinAge > f.MaxAge || f.MinAge <= 0 {
		return apperrors.InvalidFilter(fmt.Sprintf("empty age range [%d, %d]", f.MinAge, f.MaxAge))
	}
	if !ValidLocations(f.Location) {
		return apperrors.InvalidFilter(fmt.Sprintf("unknown location tags %v", f.Location))
	}
	return nil
}

// AcceptsAge reports whether age falls inside the inclusive range.
func (f *MatchFilter) AcceptsAge(age int) bool {
	return age >= f.MinAge && age <= f.MaxAge
}

// AcceptsLocation reports whether the filter's tag set intersects the
// candidate's tag set.
func (f *MatchFilter) AcceptsLocation(candidate []string) bool {
	for _, want := range f.Location {
		for _, have := range candidate {
			if want == have {
				return true
			}
		}
	}
	return false
}
