package storage

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/courtreserve/libs/db"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user model.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Username, user.PasswordHash, user.Role)
	if IsUniqueViolation(err) {
		return fmt.Errorf("create user %q: %w", user.Username, ErrUsernameTaken)
	}
	return classify("create user", err)
}

// EnsureUser inserts user unless the username already exists. It reports
// whether a row was created.
func (r *UserRepository) EnsureUser(ctx context.Context, user model.User) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
	`, user.ID, user.Username, user.PasswordHash, user.Role)
	if err != nil {
		return false, classify("ensure user", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var user model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, username, password_hash, role
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	var user model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, username, password_hash, role
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}
