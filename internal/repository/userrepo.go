// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/shop-users/internal/model"
)

// UserRepository is the identity store. Uniqueness of username and email is
// enforced by the store itself, so Create may fail with a conflict even after
// the Exists checks passed.
type UserRepository interface {
	// Create inserts a new user and fills ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// ExistsByUsername reports whether the username is taken.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// ExistsByEmail reports whether the email is taken.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// UpdateProfile applies the non-nil fields of upd and returns the updated row.
	UpdateProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error)
}
