package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/facechat/matching-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	Update(ctx context.Context, id string, params model.UpdateUserParams) (*model.User, error)
	IncrementReported(ctx context.Context, id string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

// userDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type userDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type userRepo struct {
	db userDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (id, nickname, gender, birth, location, interests, purpose)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.ID, params.Nickname, params.Gender, params.Birth,
		pq.StringArray(params.Location), pq.StringArray(params.Interests), params.Purpose)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, id string, params model.UpdateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET
			nickname = COALESCE($2, nickname),
			birth = COALESCE($3, birth),
			location = COALESCE($4, location),
			interests = COALESCE($5, interests),
			purpose = COALESCE($6, purpose),
			updated_at = $7
		WHERE id = $1
		RETURNING *
	`, id, params.Nickname, params.Birth,
		stringArrayOrNil(params.Location), stringArrayOrNil(params.Interests),
		params.Purpose, time.Now())
	return HandleNotFound(&user, err)
}

func (r *userRepo) IncrementReported(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			reported = reported + 1,
			updated_at = $2
		WHERE id = $1
	`, id, time.Now())
	return err
}

func stringArrayOrNil(values []string) interface{} {
	if values == nil {
		return nil
	}
	return pq.StringArray(values)
}
