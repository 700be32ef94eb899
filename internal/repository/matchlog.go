package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/facechat/matching-server-go/internal/model"
)

// MatchLogRepository is the append-only match event trail. Entries are never
// updated; old ones are purged by the cleanup job.
type MatchLogRepository interface {
	Create(ctx context.Context, outcome model.MatchOutcome, userIDs []string) (*model.MatchLog, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.MatchLog, error)
	CountByOutcome(ctx context.Context, outcome model.MatchOutcome) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx *sqlx.Tx) MatchLogRepository
}

type matchLogDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type matchLogRepo struct {
	db matchLogDB
}

func NewMatchLogRepository(db *sqlx.DB) MatchLogRepository {
	return &matchLogRepo{db: db}
}

func (r *matchLogRepo) WithTx(tx *sqlx.Tx) MatchLogRepository {
	return &matchLogRepo{db: tx}
}

func (r *matchLogRepo) Create(ctx context.Context, outcome model.MatchOutcome, userIDs []string) (*model.MatchLog, error) {
	var entry model.MatchLog
	err := r.db.GetContext(ctx, &entry, `
		INSERT INTO match_logs (user_ids, outcome)
		VALUES ($1, $2)
		RETURNING *
	`, pq.StringArray(userIDs), outcome)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *matchLogRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.MatchLog, error) {
	var entries []model.MatchLog
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM match_logs
		WHERE user_ids @> ARRAY[$1]::text[]
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *matchLogRepo) CountByOutcome(ctx context.Context, outcome model.MatchOutcome) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM match_logs WHERE outcome = $1
	`, outcome)
	return count, err
}

func (r *matchLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM match_logs WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
