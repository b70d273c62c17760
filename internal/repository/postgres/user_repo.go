package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/shop-users/internal/errs"
	"github.com/and161185/shop-users/internal/model"
)

const userColumns = `id, username, email, pwd_hash, phone, real_name, avatar_url, status, created_at, updated_at`

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row. A racing insert that slips past the service's
// existence checks is reported as a conflict on the violated column.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (username, email, pwd_hash, phone, real_name, avatar_url, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, updated_at`
	if u.Status == "" {
		u.Status = model.StatusActive
	}
	err := r.db.Pool.QueryRow(ctx, q, u.Username, u.Email, u.PwdHash, u.Phone, u.RealName, u.AvatarURL, string(u.Status)).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == "users_email_key" {
			return errs.Conflict("email already exists")
		}
		return errs.Conflict("username already exists")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, username))
}

// ExistsByUsername reports whether username is taken.
func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`
	return r.exists(ctx, q, username)
}

// ExistsByEmail reports whether email is taken.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`
	return r.exists(ctx, q, email)
}

func (r *UserRepo) exists(ctx context.Context, q string, arg string) (bool, error) {
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return ok, nil
}

// UpdateProfile applies the non-nil fields and bumps updated_at.
func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error) {
	const q = `
UPDATE users SET
  phone = COALESCE($2, phone),
  real_name = COALESCE($3, real_name),
  avatar_url = COALESCE($4, avatar_url),
  updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	return scanUser(r.db.Pool.QueryRow(ctx, q, id, upd.Phone, upd.RealName, upd.AvatarURL))
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u      model.User
		status string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PwdHash, &u.Phone, &u.RealName, &u.AvatarURL,
		&status, &u.CreatedAt, &u.UpdatedAt)
	switch {
	case err == nil:
		u.Status = model.Status(status)
		return &u, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, errs.ErrNotFound
	default:
		return nil, fmt.Errorf("scan user: %w", err)
	}
}
