package model

import (
	"time"

	"github.com/lib/pq"
)

type Images struct {
	UserID    string         `db:"user_id" json:"userId"`
	URLs      pq.StringArray `db:"urls" json:"urls"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// PrimaryURL returns the first stored image, the one shown at introduction.
func (i *Images) PrimaryURL() string {
	if len(i.URLs) == 0 {
		return ""
	}
	return i.URLs[0]
}
