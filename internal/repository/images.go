package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/facechat/matching-server-go/internal/model"
)

type ImagesRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Images, error)
	Upsert(ctx context.Context, userID string, urls []string) (*model.Images, error)
	DeleteByUserID(ctx context.Context, userID string) error
	WithTx(tx *sqlx.Tx) ImagesRepository
}

type imagesDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type imagesRepo struct {
	db imagesDB
}

func NewImagesRepository(db *sqlx.DB) ImagesRepository {
	return &imagesRepo{db: db}
}

func (r *imagesRepo) WithTx(tx *sqlx.Tx) ImagesRepository {
	return &imagesRepo{db: tx}
}

func (r *imagesRepo) FindByUserID(ctx context.Context, userID string) (*model.Images, error) {
	var images model.Images
	err := r.db.GetContext(ctx, &images, `
		SELECT * FROM images WHERE user_id = $1
	`, userID)
	return HandleNotFound(&images, err)
}

func (r *imagesRepo) Upsert(ctx context.Context, userID string, urls []string) (*model.Images, error) {
	var images model.Images
	err := r.db.GetContext(ctx, &images, `
		INSERT INTO images (user_id, urls)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			urls = EXCLUDED.urls,
			updated_at = $3
		RETURNING *
	`, userID, pq.StringArray(urls), time.Now())
	if err != nil {
		return nil, err
	}
	return &images, nil
}

func (r *imagesRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM images WHERE user_id = $1
	`, userID)
	return err
}
