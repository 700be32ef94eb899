package model

import (
	"time"

	"github.com/lib/pq"
)

// User is a profile row. Identity comes from the external auth service; the
// coordinator stores only what matching and introductions need.
type User struct {
	ID        string         `db:"id" json:"id"`
	Nickname  string         `db:"nickname" json:"nickname"`
	Gender    Gender         `db:"gender" json:"gender"`
	Birth     time.Time      `db:"birth" json:"birth"`
	Location  pq.StringArray `db:"location" json:"location"`
	Interests pq.StringArray `db:"interests" json:"interests"`
	Purpose   string         `db:"purpose" json:"purpose"`
	Reported  int            `db:"reported" json:"reported"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// Age computes the user's age in full years as of now.
func (u *User) Age(now time.Time) int {
	return CalculateAge(u.Birth, now)
}

func CalculateAge(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

type CreateUserParams struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	Gender    Gender    `json:"gender"`
	Birth     time.Time `json:"birth"`
	Location  []string  `json:"location"`
	Interests []string  `json:"interests"`
	Purpose   string    `json:"purpose"`
}

// UpdateUserParams carries a partial profile update; nil fields keep the
// stored value.
type UpdateUserParams struct {
	Nickname  *string    `json:"nickname"`
	Birth     *time.Time `json:"birth"`
	Location  []string   `json:"location"`
	Interests []string   `json:"interests"`
	Purpose   *string    `json:"purpose"`
}
