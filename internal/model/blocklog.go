package model

import (
	"time"

	"github.com/lib/pq"
)

// BlockLog is a user's set of blocked identities. The matching engine only
// reads it; mutation happens through the report/block CRUD surface.
type BlockLog struct {
	UserID       string         `db:"user_id" json:"userId"`
	BlockUserIDs pq.StringArray `db:"block_user_ids" json:"blockUserIds"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

func (b *BlockLog) Blocks(userID string) bool {
	if b == nil {
		return false
	}
	for _, id := range b.BlockUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
