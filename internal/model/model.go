// Package model defines domain entities used by services and repositories.
package model

import "time"

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// User represents an account stored on the server. The password is kept only as a bcrypt hash.
type User struct {
	ID        int64  // PK, assigned by the store
	Username  string // unique, immutable
	Email     string // unique
	PwdHash   string // bcrypt, salt embedded
	Phone     string // E.164 or empty
	RealName  string
	AvatarURL string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the account may log in.
func (u *User) Active() bool { return u.Status == StatusActive }

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Phone           string
	RealName        string
}

// LoginInput is a credential pair.
type LoginInput struct {
	Username string
	Password string
}

// Session is returned once on successful login and never stored.
type Session struct {
	UserID    int64
	Username  string
	Token     string
	TokenType string // always "Bearer"
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

// TokenTypeBearer is the scheme name returned with issued tokens.
const TokenTypeBearer = "Bearer"

// ProfileUpdate carries optional profile fields; nil means "leave as is".
type ProfileUpdate struct {
	Phone     *string
	RealName  *string
	AvatarURL *string
}

// Empty reports whether no field is set.
func (p ProfileUpdate) Empty() bool {
	return p.Phone == nil && p.RealName == nil && p.AvatarURL == nil
}
