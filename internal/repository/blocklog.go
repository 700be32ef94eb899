package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/facechat/matching-server-go/internal/model"
)

type BlockLogRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.BlockLog, error)
	AddBlock(ctx context.Context, userID, blockedUserID string) error
	WithTx(tx *sqlx.Tx) BlockLogRepository
}

type blockLogDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type blockLogRepo struct {
	db blockLogDB
}

func NewBlockLogRepository(db *sqlx.DB) BlockLogRepository {
	return &blockLogRepo{db: db}
}

func (r *blockLogRepo) WithTx(tx *sqlx.Tx) BlockLogRepository {
	return &blockLogRepo{db: tx}
}

func (r *blockLogRepo) FindByUserID(ctx context.Context, userID string) (*model.BlockLog, error) {
	var blockLog model.BlockLog
	err := r.db.GetContext(ctx, &blockLog, `
		SELECT * FROM block_logs WHERE user_id = $1
	`, userID)
	return HandleNotFound(&blockLog, err)
}

func (r *blockLogRepo) AddBlock(ctx context.Context, userID, blockedUserID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO block_logs (user_id, block_user_ids)
		VALUES ($1, ARRAY[$2]::text[])
		ON CONFLICT (user_id) DO UPDATE SET
			block_user_ids = array_append(block_logs.block_user_ids, $2::text),
			updated_at = $3
		WHERE NOT block_logs.block_user_ids @> ARRAY[$2]::text[]
	`, userID, blockedUserID, time.Now())
	return err
}
