package model

import (
	"time"

	"github.com/lib/pq"
)

// MatchLog is one append-only entry in the match event trail, keyed by the
// pair of identities involved and the outcome of that phase.
type MatchLog struct {
	ID        int64          `db:"id" json:"id"`
	UserIDs   pq.StringArray `db:"user_ids" json:"userIds"`
	Outcome   MatchOutcome   `db:"outcome" json:"outcome"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}
