package model

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderAll    Gender = "ALL"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderAll:
		return true
	}
	return false
}

// Matches reports whether a user of gender g satisfies the preference p.
// GenderAll as a preference matches anyone.
func (g Gender) Matches(p Gender) bool {
	return p == GenderAll || g == p
}

// MatchOutcome tags an entry in the append-only match event log.
type MatchOutcome string

const (
	MatchOutcomePending  MatchOutcome = "pending"
	MatchOutcomeExpired  MatchOutcome = "expired"
	MatchOutcomeDeclined MatchOutcome = "declined"
	MatchOutcomeMatched  MatchOutcome = "matched"
	MatchOutcomeCanceled MatchOutcome = "canceled"
)
